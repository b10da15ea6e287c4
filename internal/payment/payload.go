package payment

import (
	"encoding/json"
	"fmt"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
)

// InvoicePayload rides inside the gateway invoice's opaque payload field, so
// a bare webhook callback is self-describing without a DB lookup. Keys are
// single letters to stay well under the gateway's size cap.
type InvoicePayload struct {
	UserID      int64  `json:"u"`
	TargetType  string `json:"t"`
	TargetID    int64  `json:"i"`
	PlanID      int64  `json:"p"`
	PromocodeID *int64 `json:"promo,omitempty"`
}

func EncodePayload(userID int64, targetType channel.TargetType, targetID, planID int64, promocodeID *int64) (string, error) {
	data, err := json.Marshal(InvoicePayload{
		UserID:      userID,
		TargetType:  string(targetType),
		TargetID:    targetID,
		PlanID:      planID,
		PromocodeID: promocodeID,
	})
	if err != nil {
		return "", fmt.Errorf("encode invoice payload: %w", err)
	}
	return string(data), nil
}

func DecodePayload(raw string) (*InvoicePayload, error) {
	p := &InvoicePayload{}
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("decode invoice payload: %w", err)
	}
	return p, nil
}
