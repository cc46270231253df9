package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/gateway"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/google/uuid"
)

type PaymentIntent struct {
	Payment      *domain.Payment
	ClientSecret string
}

type ConfirmPaymentRequest struct {
	PaymentID       string
	PaymentMethodID string
	UpiID           string
	BankName        string
	WalletName      string
}

type PaymentService struct {
	payments       repository.PaymentRepository
	orders         *OrderService
	gateway        gateway.Gateway
	currency       string
	confirmTimeout time.Duration
	events         *eventRecorder
	now            func() time.Time
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders *OrderService,
	gw gateway.Gateway,
	currency string,
	confirmTimeout time.Duration,
	outbox repository.OutboxRepository,
) *PaymentService {
	return &PaymentService{
		payments:       payments,
		orders:         orders,
		gateway:        gw,
		currency:       currency,
		confirmTimeout: confirmTimeout,
		events:         newEventRecorder(outbox),
		now:            time.Now,
	}
}

// CreatePaymentIntent opens the single payment of an order at the gateway.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, p domain.Principal, orderID string, method domain.PaymentMethod) (*PaymentIntent, error) {
	if !method.IsValid() {
		return nil, domain.InvalidArgument("invalid payment method %q", method)
	}

	order, err := s.orders.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID {
		return nil, domain.Forbidden("not authorized to pay for this order")
	}

	// An order has one payment whatever became of it.
	_, err = s.payments.GetPaymentByOrder(ctx, orderID)
	if err == nil {
		return nil, domain.Conflict("payment already exists for this order")
	}
	if !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.InvalidState("cannot pay for a cancelled order")
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.IntentRequest{
		Amount:   order.TotalAmount,
		Currency: s.currency,
		Metadata: map[string]string{
			"orderId": order.ID,
			"userId":  order.UserID,
		},
		IdempotencyKey: "intent-" + order.ID,
	})
	if err != nil {
		log.Printf("gateway create intent for order %s error: %v", orderID, err)
		return nil, domain.UpstreamFailure(err, "failed to create payment intent")
	}

	now := s.now()
	payment := &domain.Payment{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		UserID:   order.UserID,
		Amount:   order.TotalAmount,
		Currency: s.currency,
		Method:   method,
		Status:   domain.PaymentStatusPending,
		Details: domain.GatewayDetails{
			PaymentIntentID: intent.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, paymentError(err, payment.ID)
	}

	return &PaymentIntent{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment confirms the intent once. A refusal or timeout marks the
// payment failed and leaves the order pending; the intent stays open so the
// client may confirm again.
func (s *PaymentService) ConfirmPayment(ctx context.Context, p domain.Principal, req ConfirmPaymentRequest) (*domain.Payment, error) {
	payment, err := s.loadPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != p.UserID {
		return nil, domain.Forbidden("not authorized to confirm this payment")
	}
	if !payment.Confirmable() {
		return nil, domain.InvalidState("payment is %s and cannot be confirmed", payment.Status)
	}

	order, err := s.orders.loadOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, domain.InvalidState("order is %s", order.Status)
	}

	previous := payment.Status
	if err := payment.StartProcessing(s.now()); err != nil {
		return nil, err
	}
	if err := s.payments.UpdatePayment(ctx, payment, previous); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, domain.InvalidState("payment is already being confirmed")
		}
		return nil, paymentError(err, payment.ID)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	conf, gwErr := s.gateway.ConfirmIntent(gwCtx, gateway.ConfirmRequest{
		IntentID:        payment.Details.PaymentIntentID,
		PaymentMethodID: req.PaymentMethodID,
		Reference:       payment.ID,
	})
	cancel()

	// The gateway round trip happened; record its outcome even if the
	// client went away meanwhile.
	bg := context.WithoutCancel(ctx)
	if gwErr != nil {
		payment.Fail(failureReason(gwErr), s.now())
		if err := s.payments.UpdatePayment(bg, payment, domain.PaymentStatusProcessing); err != nil {
			log.Printf("repo mark payment %s failed error: %v", payment.ID, err)
		}
		s.events.record(bg, payment.ID, domain.EventPaymentFailed, payment)
		log.Printf("gateway confirm payment %s error: %v", payment.ID, gwErr)
		return nil, domain.UpstreamFailure(gwErr, "payment confirmation failed: %s", payment.Details.FailureReason)
	}

	details := domain.GatewayDetails{
		TransactionID:   conf.TransactionID,
		PaymentMethodID: req.PaymentMethodID,
		Last4:           conf.Last4,
		Brand:           conf.Brand,
		ReceiptURL:      conf.ReceiptURL,
		UpiID:           req.UpiID,
		BankName:        req.BankName,
		WalletName:      req.WalletName,
	}
	if err := payment.Complete(details, s.now()); err != nil {
		return nil, err
	}
	if err := s.payments.UpdatePayment(bg, payment, domain.PaymentStatusProcessing); err != nil {
		log.Printf("repo mark payment %s completed error: %v", payment.ID, err)
		return nil, paymentError(err, payment.ID)
	}

	s.events.record(bg, payment.ID, domain.EventPaymentCompleted, payment)

	if _, err := s.orders.markProcessing(bg, payment.OrderID); err != nil {
		log.Printf("move order %s to processing after payment %s error: %v", payment.OrderID, payment.ID, err)
		if order, errGet := s.orders.loadOrder(bg, payment.OrderID); errGet == nil && order.Status == domain.OrderStatusCancelled {
			return nil, s.refundCancelled(bg, payment)
		}
	}
	return payment, nil
}

// refundCancelled gives back a charge captured for an order that was
// cancelled while the gateway was confirming it.
func (s *PaymentService) refundCancelled(ctx context.Context, payment *domain.Payment) error {
	const reason = "order cancelled during confirmation"
	refund, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		IntentID:       payment.Details.PaymentIntentID,
		Reason:         reason,
		IdempotencyKey: "refund-" + payment.ID,
	})
	if err != nil {
		log.Printf("gateway refund of payment %s for cancelled order %s error: %v", payment.ID, payment.OrderID, err)
		return domain.UpstreamFailure(err, "order was cancelled and the refund failed")
	}

	err = payment.MarkRefunded(domain.RefundDetails{
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Reason:   reason,
		Status:   refund.Status,
	}, s.now())
	if err != nil {
		return err
	}
	if err := s.payments.UpdatePayment(ctx, payment, domain.PaymentStatusCompleted); err != nil {
		log.Printf("repo mark payment %s refunded error: %v", payment.ID, err)
		return paymentError(err, payment.ID)
	}
	s.events.record(ctx, payment.ID, domain.EventPaymentRefunded, payment)
	return domain.InvalidState("order was cancelled, payment refunded")
}

// ProcessRefund refunds a completed payment and cancels its order, which
// returns the order's stock.
func (s *PaymentService) ProcessRefund(ctx context.Context, p domain.Principal, paymentID, reason string) (*domain.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.AccessibleBy(p) {
		return nil, domain.Forbidden("not authorized to refund this payment")
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return nil, domain.InvalidState("only completed payments can be refunded, payment is %s", payment.Status)
	}

	refund, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		IntentID:       payment.Details.PaymentIntentID,
		Reason:         reason,
		IdempotencyKey: "refund-" + payment.ID,
	})
	if err != nil {
		log.Printf("gateway refund payment %s error: %v", payment.ID, err)
		return nil, domain.UpstreamFailure(err, "refund failed")
	}

	bg := context.WithoutCancel(ctx)
	err = payment.MarkRefunded(domain.RefundDetails{
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Reason:   reason,
		Status:   refund.Status,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.payments.UpdatePayment(bg, payment, domain.PaymentStatusCompleted); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, domain.InvalidState("payment was refunded concurrently")
		}
		return nil, paymentError(err, payment.ID)
	}

	if _, err := s.orders.cancel(bg, payment.OrderID); err != nil {
		log.Printf("cancel order %s after refund of payment %s: %v", payment.OrderID, payment.ID, err)
	}
	s.events.record(bg, payment.ID, domain.EventPaymentRefunded, payment)
	return payment, nil
}

// RecoverStuckPayments fails payments whose confirmation was interrupted
// before the outcome was recorded, so their owners can confirm again.
func (s *PaymentService) RecoverStuckPayments(ctx context.Context, olderThan time.Duration) (int, error) {
	payments, err := s.payments.GetStuckPayments(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, payment := range payments {
		log.Printf("recovering stuck payment: %v", payment.ID)
		payment.Fail("confirmation interrupted", s.now())
		if err := s.payments.UpdatePayment(ctx, payment, domain.PaymentStatusProcessing); err != nil {
			// a confirmation finished in the meantime
			log.Printf("failed to recover payment %v: %v", payment.ID, err)
			continue
		}
		s.events.record(ctx, payment.ID, domain.EventPaymentFailed, payment)
		recovered++
	}
	return recovered, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, p domain.Principal, paymentID string) (*domain.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.AccessibleBy(p) {
		return nil, domain.Forbidden("not authorized to access this payment")
	}
	return payment, nil
}

func (s *PaymentService) loadPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, paymentError(err, paymentID)
	}
	return payment, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, gateway.ErrDeclined):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "payment gateway timed out"
	default:
		return "payment gateway unavailable"
	}
}
