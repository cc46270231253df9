package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "net_banking"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet:
		return true
	}
	return false
}

// GatewayDetails holds what the payment gateway reported about the transaction.
type GatewayDetails struct {
	PaymentIntentID string `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	TransactionID   string `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	PaymentMethodID string `bson:"payment_method_id,omitempty" json:"paymentMethodId,omitempty"`
	Last4           string `bson:"last4,omitempty" json:"last4,omitempty"`
	Brand           string `bson:"brand,omitempty" json:"brand,omitempty"`
	ReceiptURL      string `bson:"receipt_url,omitempty" json:"receiptUrl,omitempty"`
	UpiID           string `bson:"upi_id,omitempty" json:"upiId,omitempty"`
	BankName        string `bson:"bank_name,omitempty" json:"bankName,omitempty"`
	WalletName      string `bson:"wallet_name,omitempty" json:"walletName,omitempty"`
	FailureReason   string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
}

type RefundDetails struct {
	RefundID  string    `bson:"refund_id" json:"refundId"`
	Amount    float64   `bson:"amount" json:"amount"`
	Reason    string    `bson:"reason" json:"reason"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Payment records the single gateway transaction of an order.
type Payment struct {
	ID        string         `bson:"_id" json:"id"`
	OrderID   string         `bson:"order_id" json:"orderId"`
	UserID    string         `bson:"user_id" json:"userId"`
	Amount    float64        `bson:"amount" json:"amount"`
	Currency  string         `bson:"currency" json:"currency"`
	Method    PaymentMethod  `bson:"payment_method" json:"paymentMethod"`
	Status    PaymentStatus  `bson:"status" json:"status"`
	Details   GatewayDetails `bson:"payment_details" json:"paymentDetails"`
	Refund    *RefundDetails `bson:"refund_details,omitempty" json:"refundDetails,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updatedAt"`
}

// Confirmable reports whether the gateway may be asked to confirm this payment.
// A failed confirmation leaves the intent open, so failed payments can retry.
func (p *Payment) Confirmable() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusFailed
}

func (p *Payment) StartProcessing(now time.Time) error {
	if !p.Confirmable() {
		return InvalidState("payment is %s and cannot be confirmed", p.Status)
	}
	p.Status = PaymentStatusProcessing
	p.Details.FailureReason = ""
	p.UpdatedAt = now
	return nil
}

// Complete merges the gateway details and marks the payment completed.
func (p *Payment) Complete(details GatewayDetails, now time.Time) error {
	if p.Status != PaymentStatusProcessing {
		return InvalidState("payment is %s and cannot be completed", p.Status)
	}
	mergeDetails(&p.Details, details)
	p.Status = PaymentStatusCompleted
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Fail(reason string, now time.Time) {
	p.Status = PaymentStatusFailed
	p.Details.FailureReason = reason
	p.UpdatedAt = now
}

// MarkRefunded attaches refund details; only completed payments are refundable.
func (p *Payment) MarkRefunded(refund RefundDetails, now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return InvalidState("only completed payments can be refunded, payment is %s", p.Status)
	}
	refund.CreatedAt = now
	p.Refund = &refund
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = now
	return nil
}

func (p *Payment) AccessibleBy(pr Principal) bool {
	return pr.IsAdmin() || p.UserID == pr.UserID
}

func mergeDetails(dst *GatewayDetails, src GatewayDetails) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.PaymentIntentID, src.PaymentIntentID)
	set(&dst.TransactionID, src.TransactionID)
	set(&dst.PaymentMethodID, src.PaymentMethodID)
	set(&dst.Last4, src.Last4)
	set(&dst.Brand, src.Brand)
	set(&dst.ReceiptURL, src.ReceiptURL)
	set(&dst.UpiID, src.UpiID)
	set(&dst.BankName, src.BankName)
	set(&dst.WalletName, src.WalletName)
}
