package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// OpenOrderStatuses are the states an order can still leave.
var OpenOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped}

// CanTransitionTo validates a status change. Moves between open states are
// unconditional; terminal states never change again.
func CanTransitionTo(from, to OrderStatus) error {
	if !to.IsValid() {
		return InvalidArgument("invalid order status %q", to)
	}
	switch from {
	case OrderStatusDelivered:
		if to == OrderStatusCancelled {
			return InvalidTransition("cannot cancel a delivered order")
		}
		return InvalidTransition("order has been delivered and cannot change status")
	case OrderStatusCancelled:
		if to == OrderStatusCancelled {
			return InvalidTransition("order is already cancelled")
		}
		return InvalidTransition("order is cancelled and cannot change status")
	}
	return nil
}

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"productId"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
}

type ShippingAddress struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Country string `bson:"country" json:"country"`
	ZipCode string `bson:"zip_code" json:"zipCode"`
}

func (a ShippingAddress) Validate() error {
	for _, f := range []string{a.Street, a.City, a.State, a.Country, a.ZipCode} {
		if strings.TrimSpace(f) == "" {
			return InvalidArgument("please provide complete shipping address")
		}
	}
	return nil
}

// PaymentInfo is the client-supplied payment reference stored on the order.
type PaymentInfo struct {
	ID     string `bson:"id,omitempty" json:"id,omitempty"`
	Status string `bson:"status,omitempty" json:"status,omitempty"`
	Type   string `bson:"type,omitempty" json:"type,omitempty"`
}

// Order is an immutable snapshot of a purchase. Only Status and the tracking
// fields change after creation.
type Order struct {
	ID                string          `bson:"_id" json:"id"`
	UserID            string          `bson:"user_id" json:"userId"`
	Items             []OrderItem     `bson:"items" json:"items"`
	ShippingAddress   ShippingAddress `bson:"shipping_address" json:"shippingAddress"`
	PaymentInfo       PaymentInfo     `bson:"payment_info" json:"paymentInfo"`
	TotalAmount       float64         `bson:"total_amount" json:"totalAmount"`
	Status            OrderStatus     `bson:"status" json:"status"`
	TrackingNumber    string          `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `bson:"estimated_delivery,omitempty" json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `bson:"updated_at" json:"updatedAt"`
}

// NewOrder snapshots the cart lines at their price-at-add. The total is the
// cart total at this moment and is not recomputed later.
func NewOrder(id string, cart *Cart, addr ShippingAddress, info PaymentInfo, now time.Time) *Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return &Order{
		ID:              id,
		UserID:          cart.UserID,
		Items:           items,
		ShippingAddress: addr,
		PaymentInfo:     info,
		TotalAmount: SumLines(items, func(it OrderItem) (float64, int) {
			return it.Price, it.Quantity
		}),
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (o *Order) AccessibleBy(p Principal) bool {
	return p.IsAdmin() || o.UserID == p.UserID
}
