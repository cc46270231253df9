package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe implements Gateway on top of Stripe payment intents.
type Stripe struct {
	api *client.API
}

func NewStripe(secretKey string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api}
}

func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(domain.ToMinorUnits(req.Amount)),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (s *Stripe) ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	params.Context = ctx
	params.AddExpand("latest_charge")
	if req.Reference != "" {
		params.AddMetadata("reference", req.Reference)
	}

	pi, err := s.api.PaymentIntents.Confirm(req.IntentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, stripeErr.Msg)
		}
		return nil, fmt.Errorf("confirm payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: payment intent is %s", ErrDeclined, pi.Status)
	}

	conf := &Confirmation{TransactionID: pi.ID, Status: string(pi.Status)}
	if ch := pi.LatestCharge; ch != nil {
		conf.TransactionID = ch.ID
		conf.ReceiptURL = ch.ReceiptURL
		if details := ch.PaymentMethodDetails; details != nil && details.Card != nil {
			conf.Last4 = details.Card.Last4
			conf.Brand = fmt.Sprint(details.Card.Brand)
		}
	}
	return conf, nil
}

var stripeRefundReasons = map[string]bool{
	"duplicate":             true,
	"fraudulent":            true,
	"requested_by_customer": true,
}

func (s *Stripe) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	// Stripe only accepts a fixed set of reasons; free text goes to metadata.
	if stripeRefundReasons[req.Reason] {
		params.Reason = stripe.String(req.Reason)
	} else {
		params.Reason = stripe.String("requested_by_customer")
		if req.Reason != "" {
			params.AddMetadata("reason", req.Reason)
		}
	}

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	reason := req.Reason
	if reason == "" {
		reason = string(r.Reason)
	}
	return &Refund{
		ID:     r.ID,
		Amount: domain.FromMinorUnits(r.Amount),
		Reason: reason,
		Status: string(r.Status),
	}, nil
}
