package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/invoices", "201", 0.05)
	RecordHTTPRequest("POST", "/api/invoices", "201", 0.1)
	RecordHTTPRequest("POST", "/api/invoices", "422", 0.02)

	ok := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/invoices", "201"))
	rejected := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/invoices", "422"))
	assert.Equal(t, float64(2), ok)
	assert.Equal(t, float64(1), rejected)
}

func TestRecordGatewayRequest(t *testing.T) {
	GatewayRequestsTotal.Reset()

	RecordGatewayRequest("createInvoice", nil)
	RecordGatewayRequest("createInvoice", assert.AnError)

	ok := testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("createInvoice", "ok"))
	failed := testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("createInvoice", "error"))
	assert.Equal(t, float64(1), ok)
	assert.Equal(t, float64(1), failed)
}

func TestRecordSettlement(t *testing.T) {
	SettlementsTotal.Reset()

	RecordSettlement("settled")
	RecordSettlement("duplicate")
	RecordSettlement("duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(SettlementsTotal.WithLabelValues("settled")))
	assert.Equal(t, float64(2), testutil.ToFloat64(SettlementsTotal.WithLabelValues("duplicate")))
}
