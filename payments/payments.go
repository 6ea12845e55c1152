package payments

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	// StripeProvider is the string identifier for the Stripe payment provider.
	StripeProvider = "stripe"
	// PayPalProvider is the string identifier for the PayPal payment provider.
	PayPalProvider = "paypal"
)

// Provider represents a payment gateway that can confirm and refund
// payments for staged orders.
type Provider interface {
	Name() string
	NewConfirmer(ctx context.Context, r *http.Request, log logrus.FieldLogger) (Confirmer, error)
	NewRefunder(ctx context.Context, r *http.Request, log logrus.FieldLogger) (Refunder, error)
}

// Confirmer verifies a payment reference with the gateway. It must
// fail closed: any ambiguity (including a timeout) is a rejection, and
// no entitlement may be created on a rejection.
type Confirmer func(paymentRef, orderID string, amount uint64) (*Confirmation, error)

// Refunder reverses a previously confirmed payment with the provider.
type Refunder func(processorID string, amount uint64) (string, error)

// Confirmation is the gateway's acceptance of a payment.
type Confirmation struct {
	// ProcessorID is the gateway's transaction identifier.
	ProcessorID string
	// Method describes how the buyer paid, e.g. "card".
	Method string
	// Raw is the gateway response kept for audit.
	Raw map[string]interface{}
}

// PaymentRejectedError is returned when the gateway declines or
// cannot verify a payment.
type PaymentRejectedError struct {
	message string
}

// NewPaymentRejectedError wraps a gateway decline message.
func NewPaymentRejectedError(msg string) error {
	return &PaymentRejectedError{message: msg}
}

func (p *PaymentRejectedError) Error() string {
	return p.message
}

// IsRejection reports whether an error represents a gateway decline
// as opposed to an internal failure.
func IsRejection(err error) bool {
	_, ok := err.(*PaymentRejectedError)
	return ok
}
