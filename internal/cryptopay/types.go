package cryptopay

import (
	"encoding/json"
	"fmt"
)

type InvoiceStatus string

const (
	StatusActive  InvoiceStatus = "active"
	StatusPaid    InvoiceStatus = "paid"
	StatusExpired InvoiceStatus = "expired"
)

// Invoice mirrors the gateway's invoice object. Amounts are decimal strings
// on the wire and stay strings here; callers parse them when arithmetic is
// needed.
type Invoice struct {
	InvoiceID      int64         `json:"invoice_id"`
	Hash           string        `json:"hash"`
	Asset          string        `json:"asset"`
	Amount         string        `json:"amount"`
	PayURL         string        `json:"pay_url"`
	BotInvoiceURL  string        `json:"bot_invoice_url"`
	Description    string        `json:"description"`
	Status         InvoiceStatus `json:"status"`
	Payload        string        `json:"payload"`
	CreatedAt      string        `json:"created_at"`
	PaidAt         string        `json:"paid_at,omitempty"`
	ExpirationDate string        `json:"expiration_date,omitempty"`
	AllowComments  bool          `json:"allow_comments"`
	AllowAnonymous bool          `json:"allow_anonymous"`
}

// URL returns the address a user opens to pay, preferring the current field
// over the deprecated one.
func (i *Invoice) URL() string {
	if i.BotInvoiceURL != "" {
		return i.BotInvoiceURL
	}
	return i.PayURL
}

type Balance struct {
	CurrencyCode string `json:"currency_code"`
	Available    string `json:"available"`
	Onhold       string `json:"onhold"`
}

type CreateInvoiceRequest struct {
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	Payload        string `json:"payload,omitempty"`
	PaidBtnName    string `json:"paid_btn_name,omitempty"`
	PaidBtnURL     string `json:"paid_btn_url,omitempty"`
	AllowComments  *bool  `json:"allow_comments,omitempty"`
	AllowAnonymous *bool  `json:"allow_anonymous,omitempty"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
}

type WebhookUpdate struct {
	UpdateID    int64   `json:"update_id"`
	UpdateType  string  `json:"update_type"`
	RequestDate string  `json:"request_date"`
	Payload     Invoice `json:"payload"`
}

const UpdateInvoicePaid = "invoice_paid"

// ParseWebhookUpdate decodes a verified webhook body. Callers must check the
// signature first; this function assumes the bytes are trusted.
func ParseWebhookUpdate(rawBody []byte) (*WebhookUpdate, error) {
	u := &WebhookUpdate{}
	if err := json.Unmarshal(rawBody, u); err != nil {
		return nil, fmt.Errorf("cryptopay: decode webhook update: %w", err)
	}
	return u, nil
}

// APIError is the gateway's explicit error envelope.
type APIError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cryptopay api error %d: %s", e.Code, e.Name)
}
