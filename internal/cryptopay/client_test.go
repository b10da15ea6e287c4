package cryptopay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/createInvoice", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("Crypto-Pay-API-Token"))

		var req CreateInvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "USDT", req.Asset)
		assert.Equal(t, "9.99", req.Amount)
		// Below-minimum TTL is clamped up before the request goes out.
		assert.Equal(t, MinExpiresIn, req.ExpiresIn)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": Invoice{
				InvoiceID:     101,
				Status:        StatusActive,
				Asset:         "USDT",
				Amount:        "9.99",
				BotInvoiceURL: "https://t.me/CryptoBot?start=abc",
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 0)
	inv, err := c.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Asset:     "USDT",
		Amount:    "9.99",
		ExpiresIn: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), inv.InvoiceID)
	assert.Equal(t, "https://t.me/CryptoBot?start=abc", inv.URL())
}

func TestCreateInvoice_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    false,
			"error": map[string]interface{}{"code": 401, "name": "UNAUTHORIZED"},
		})
	}))
	defer srv.Close()

	c := NewClient("bad-token", srv.URL, 0)
	_, err := c.CreateInvoice(context.Background(), CreateInvoiceRequest{Asset: "USDT", Amount: "1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Name)
}

func TestGetInvoice_Unknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/getInvoices", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"items": []Invoice{}},
		})
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 0)
	inv, err := c.GetInvoice(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestDeleteInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/deleteInvoice", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": true})
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 0)
	deleted, err := c.DeleteInvoice(context.Background(), 101)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func signBody(token string, body []byte) string {
	key := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewClient("test-token", "http://unused", 0)
	body := []byte(`{"update_id":1,"update_type":"invoice_paid"}`)

	assert.True(t, c.VerifyWebhookSignature(body, signBody("test-token", body)))

	// Tampered body fails.
	tampered := []byte(`{"update_id":1,"update_type":"invoice_paid","x":1}`)
	assert.False(t, c.VerifyWebhookSignature(tampered, signBody("test-token", body)))

	// Signature made with a different token fails.
	assert.False(t, c.VerifyWebhookSignature(body, signBody("other-token", body)))

	assert.False(t, c.VerifyWebhookSignature(body, ""))
}

func TestInvoiceURL_Fallback(t *testing.T) {
	inv := &Invoice{PayURL: "https://pay.crypt.bot/old"}
	assert.Equal(t, "https://pay.crypt.bot/old", inv.URL())
}
