// Package gateway talks to the external payment processor.
package gateway

import (
	"context"
	"errors"
)

// ErrDeclined marks a definitive negative answer from the processor, as
// opposed to a transport or availability failure.
var ErrDeclined = errors.New("payment declined")

type IntentRequest struct {
	Amount   float64
	Currency string
	Metadata map[string]string
	// IdempotencyKey makes retried creations return the same intent.
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type ConfirmRequest struct {
	IntentID        string
	PaymentMethodID string
	Reference       string
}

// Confirmation describes a succeeded confirmation.
type Confirmation struct {
	TransactionID string
	Status        string
	Last4         string
	Brand         string
	ReceiptURL    string
}

type RefundRequest struct {
	IntentID       string
	Reason         string
	IdempotencyKey string
}

type Refund struct {
	ID     string
	Amount float64
	Reason string
	Status string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// ConfirmIntent returns an error wrapping ErrDeclined when the processor
	// refused the payment.
	ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
}
