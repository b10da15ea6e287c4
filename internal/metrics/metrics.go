package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpass_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channelpass_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	InvoicesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpass_invoices_created_total",
			Help: "Total number of gateway invoices created",
		},
		[]string{"target_type"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpass_settlements_total",
			Help: "Total number of settlement attempts by outcome",
		},
		[]string{"result"},
	)

	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpass_gateway_requests_total",
			Help: "Total number of Crypto Pay API calls",
		},
		[]string{"method", "outcome"},
	)

	PromoRedemptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channelpass_promo_redemptions_total",
			Help: "Total number of promo code redemptions",
		},
	)

	SweepExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channelpass_sweep_expired_total",
			Help: "Total number of subscriptions expired by the sweeper",
		},
	)

	SweepWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channelpass_sweep_warnings_total",
			Help: "Total number of expiry warnings emitted by the sweeper",
		},
	)

	NotificationsQueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channelpass_notifications_queued_total",
			Help: "Total number of notifications pushed to the queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordGatewayRequest(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GatewayRequestsTotal.WithLabelValues(method, outcome).Inc()
}

func RecordSettlement(result string) {
	SettlementsTotal.WithLabelValues(result).Inc()
}
