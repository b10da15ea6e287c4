package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// InvoiceResponse describes a created purchase. A fully discounted purchase
// has no gateway invoice: invoice_id is 0, pay_url is empty and status is
// already paid.
type InvoiceResponse struct {
	PaymentID int64  `json:"payment_id"`
	InvoiceID int64  `json:"invoice_id"`
	PayURL    string `json:"pay_url"`
	Amount    string `json:"amount"`
	Discount  string `json:"discount"`
	Status    string `json:"status"`
}
