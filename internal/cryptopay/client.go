package cryptopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ironsan2kk-pixel/back-sub000/internal/metrics"
)

// SignatureHeader carries the webhook HMAC, per the gateway docs.
const SignatureHeader = "crypto-pay-api-signature"

const (
	// expires_in bounds accepted by createInvoice, in seconds.
	MinExpiresIn = 60
	MaxExpiresIn = 2678400

	maxDescriptionLen = 1024
	maxPayloadLen     = 4096
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) (err error) {
	defer func() { metrics.RecordGatewayRequest(method, err) }()

	var body bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&body).Encode(params); err != nil {
			return fmt.Errorf("cryptopay %s: encode params: %w", method, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+method, &body)
	if err != nil {
		return fmt.Errorf("cryptopay %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cryptopay %s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("cryptopay %s: decode response (http %d): %w", method, resp.StatusCode, err)
	}

	if !env.Ok {
		if env.Error != nil {
			return fmt.Errorf("cryptopay %s: %w", method, env.Error)
		}
		return fmt.Errorf("cryptopay %s: request rejected (http %d)", method, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("cryptopay %s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if len(req.Description) > maxDescriptionLen {
		req.Description = req.Description[:maxDescriptionLen]
	}
	if len(req.Payload) > maxPayloadLen {
		return nil, fmt.Errorf("cryptopay createInvoice: payload exceeds %d bytes", maxPayloadLen)
	}
	if req.ExpiresIn != 0 {
		if req.ExpiresIn < MinExpiresIn {
			req.ExpiresIn = MinExpiresIn
		}
		if req.ExpiresIn > MaxExpiresIn {
			req.ExpiresIn = MaxExpiresIn
		}
	}

	inv := &Invoice{}
	if err := c.call(ctx, "createInvoice", req, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice returns the invoice or nil when the gateway no longer knows it.
func (c *Client) GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	params := map[string]string{
		"invoice_ids": strconv.FormatInt(invoiceID, 10),
	}

	var result struct {
		Items []Invoice `json:"items"`
	}
	if err := c.call(ctx, "getInvoices", params, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, nil
	}
	return &result.Items[0], nil
}

func (c *Client) DeleteInvoice(ctx context.Context, invoiceID int64) (bool, error) {
	params := map[string]int64{"invoice_id": invoiceID}

	var deleted bool
	if err := c.call(ctx, "deleteInvoice", params, &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

func (c *Client) GetBalance(ctx context.Context) ([]Balance, error) {
	var balances []Balance
	if err := c.call(ctx, "getBalance", nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// VerifyWebhookSignature checks the HMAC a webhook carries before anything in
// the body is parsed. The key is SHA256 of the API token, the signature is
// hex HMAC-SHA256 of the raw body, compared constant-time.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	key := sha256.Sum256([]byte(c.token))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
