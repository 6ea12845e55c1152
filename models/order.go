package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// PendingState is the initial state of a staged order.
const PendingState = "pending"

// ConfirmedState is the state of an order whose payment the gateway
// has confirmed. Confirmed orders are never mutated again.
const ConfirmedState = "confirmed"

// ExpiredState marks an order that outlived its checkout window.
const ExpiredState = "expired"

// OrderStates are the possible values for the State field.
var OrderStates = []string{
	PendingState,
	ConfirmedState,
	ExpiredState,
}

// Order is a staged checkout intent. The ID is supplied by the caller
// at checkout time and doubles as the idempotency key: the primary-key
// constraint is the only duplicate-fulfillment guard in the system.
type Order struct {
	ID string `json:"id" gorm:"primary_key"`

	UserID string `json:"user_id" sql:"index"`
	Email  string `json:"email"`

	LineItems []*LineItem `json:"line_items"`

	// OrderName is the display name derived from the cart: the first
	// item's title, suffixed with "외 N건" when the cart holds more.
	OrderName string `json:"order_name"`

	Total uint64 `json:"total"`

	State string `json:"state" sql:"index"`

	PaymentProvider string `json:"payment_provider,omitempty"`

	CreatedAt time.Time  `json:"created_at" sql:"index"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	DeletedAt *time.Time `json:"-" sql:"index"`
}

// TableName returns the database table name for the Order model.
func (Order) TableName() string {
	return tableName("orders")
}

// NewOrder creates a pending order with the caller-supplied id.
func NewOrder(id, userID, email string, ttl time.Duration) *Order {
	now := time.Now()
	return &Order{
		ID:        id,
		UserID:    userID,
		Email:     email,
		State:     PendingState,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the checkout window has closed.
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// SetLineItems attaches the cart snapshot and derives the
// authoritative total and order name from it.
func (o *Order) SetLineItems(items []*LineItem) {
	o.LineItems = items
	o.Total = 0
	for _, item := range items {
		item.OrderID = o.ID
		o.Total += item.Price
	}
	if len(items) > 0 {
		o.OrderName = items[0].Title
		if len(items) > 1 {
			o.OrderName = fmt.Sprintf("%s 외 %d건", items[0].Title, len(items)-1)
		}
	}
}

// CreateOrder persists a staged order along with its line items.
// A colliding order id surfaces as a DuplicateOrderError, never as a
// silent overwrite.
func CreateOrder(tx *gorm.DB, order *Order) error {
	if rsp := tx.Create(order); rsp.Error != nil {
		if isUniqueViolation(rsp.Error) {
			return DuplicateOrderError{OrderID: order.ID}
		}
		return rsp.Error
	}
	for _, item := range order.LineItems {
		if rsp := tx.Create(item); rsp.Error != nil {
			return rsp.Error
		}
	}
	return nil
}
