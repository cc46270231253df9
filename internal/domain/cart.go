package domain

import "time"

type CartItem struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Price     float64   `bson:"price" json:"price"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Cart is a per-user pre-purchase selection. TotalItems and TotalAmount are
// derived and recomputed by every mutating method.
type Cart struct {
	UserID      string     `bson:"user_id" json:"userId"`
	Items       []CartItem `bson:"items" json:"items"`
	TotalItems  int        `bson:"total_items" json:"totalItems"`
	TotalAmount float64    `bson:"total_amount" json:"totalAmount"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem adds quantity units of a product. An existing line keeps its
// original price and has the quantities summed.
func (c *Cart) AddItem(productID string, quantity int, price float64, now time.Time) error {
	if quantity < 1 {
		return InvalidArgument("quantity must be at least 1")
	}
	if i := c.indexOf(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
			AddedAt:   now,
		})
	}
	c.touch(now)
	return nil
}

func (c *Cart) UpdateQuantity(productID string, quantity int, now time.Time) error {
	if quantity < 1 {
		return InvalidArgument("quantity must be at least 1")
	}
	i := c.indexOf(productID)
	if i < 0 {
		return NotFound("product %s is not in the cart", productID)
	}
	c.Items[i].Quantity = quantity
	c.touch(now)
	return nil
}

// RemoveItem drops the line for productID; removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string, now time.Time) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
	c.touch(now)
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.touch(now)
}

func (c *Cart) Item(productID string) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recalculate refreshes the derived totals from the item list.
func (c *Cart) Recalculate() {
	items := 0
	for _, it := range c.Items {
		items += it.Quantity
	}
	c.TotalItems = items
	c.TotalAmount = SumLines(c.Items, func(it CartItem) (float64, int) {
		return it.Price, it.Quantity
	})
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.Recalculate()
}

func (c *Cart) indexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
