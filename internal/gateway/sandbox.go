package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// DeclinedPaymentMethod is always refused by the sandbox.
const DeclinedPaymentMethod = "pm_card_declined"

type OutcomeSource interface {
	Outcome() (approved bool, reason string)
}

// RandomOutcome approves roughly 95% of confirmations.
type RandomOutcome struct{}

func (RandomOutcome) Outcome() (bool, string) {
	randomInt := rand.Intn(101) // 101 because Intn is exclusive of the upper bound
	return calcOutcome(randomInt)
}

var refusalReasons = []string{
	"insufficient_funds",
	"expired_card",
	"do_not_honor",
	"fraudulent",
	"card_velocity_exceeded",
}

func calcOutcome(randomInt int) (bool, string) {
	if randomInt < 95 {
		return true, ""
	}
	otherReason := randomInt - 95
	if otherReason == 0 || otherReason > len(refusalReasons) {
		return false, "unknown reason"
	}
	return false, refusalReasons[otherReason-1]
}

type sandboxIntent struct {
	amount       float64
	currency     string
	confirmation *Confirmation
	refund       *Refund
}

// Sandbox is an in-process gateway used when no processor credentials are
// configured and in tests.
type Sandbox struct {
	mu        sync.Mutex
	outcome   OutcomeSource
	intents   map[string]*sandboxIntent
	byIdemKey map[string]string
}

func NewSandbox(outcome OutcomeSource) *Sandbox {
	if outcome == nil {
		outcome = RandomOutcome{}
	}
	return &Sandbox{
		outcome:   outcome,
		intents:   make(map[string]*sandboxIntent),
		byIdemKey: make(map[string]string),
	}
}

func (s *Sandbox) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byIdemKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_confirmation"}, nil
	}

	id := "pi_" + uuid.NewString()
	s.intents[id] = &sandboxIntent{amount: req.Amount, currency: req.Currency}
	if req.IdempotencyKey != "" {
		s.byIdemKey[req.IdempotencyKey] = id
	}
	return &Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_confirmation"}, nil
}

func (s *Sandbox) ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[req.IntentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", req.IntentID)
	}
	if intent.confirmation != nil {
		return intent.confirmation, nil
	}

	if req.PaymentMethodID == DeclinedPaymentMethod {
		return nil, fmt.Errorf("%w: card_declined", ErrDeclined)
	}
	if approved, reason := s.outcome.Outcome(); !approved {
		return nil, fmt.Errorf("%w: %s", ErrDeclined, reason)
	}

	intent.confirmation = &Confirmation{
		TransactionID: "ch_" + uuid.NewString(),
		Status:        "succeeded",
		Last4:         "4242",
		Brand:         "visa",
		ReceiptURL:    "https://sandbox.invalid/receipts/" + req.IntentID,
	}
	return intent.confirmation, nil
}

func (s *Sandbox) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[req.IntentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", req.IntentID)
	}
	if intent.confirmation == nil {
		return nil, fmt.Errorf("payment intent %s has no successful charge", req.IntentID)
	}
	if intent.refund != nil {
		return intent.refund, nil
	}

	intent.refund = &Refund{
		ID:     "re_" + uuid.NewString(),
		Amount: intent.amount,
		Reason: req.Reason,
		Status: "succeeded",
	}
	return intent.refund, nil
}
