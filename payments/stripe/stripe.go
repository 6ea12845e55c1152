package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/client"

	"github.com/studymall/studymall/payments"
)

// gatewayTimeout bounds every call to the Stripe API. A timed-out
// confirmation is treated as a rejection, never as a success.
const gatewayTimeout = 10 * time.Second

type stripePaymentProvider struct {
	client *client.API
}

// Config contains the Stripe-specific provider configuration.
type Config struct {
	SecretKey string `json:"secret_key"`
}

// NewPaymentProvider creates a Stripe payment provider.
func NewPaymentProvider(config Config) (payments.Provider, error) {
	if config.SecretKey == "" {
		return nil, errors.New("Stripe configuration missing secret_key")
	}

	s := stripePaymentProvider{
		client: &client.API{},
	}
	httpClient := &http.Client{Timeout: gatewayTimeout}
	s.client.Init(config.SecretKey, stripe.NewBackends(httpClient))
	return &s, nil
}

func (s *stripePaymentProvider) Name() string {
	return payments.StripeProvider
}

// NewConfirmer verifies a payment intent the browser already
// completed. The intent must have succeeded and its amount and
// order_id metadata must match the staged order.
func (s *stripePaymentProvider) NewConfirmer(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Confirmer, error) {
	return s.confirm, nil
}

func (s *stripePaymentProvider) confirm(paymentRef, orderID string, amount uint64) (*payments.Confirmation, error) {
	intent, err := s.client.PaymentIntents.Get(paymentRef, nil)
	if err != nil {
		return nil, payments.NewPaymentRejectedError(err.Error())
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, payments.NewPaymentRejectedError("payment has not succeeded: " + string(intent.Status))
	}
	if intent.Amount != int64(amount) {
		return nil, payments.NewPaymentRejectedError("payment amount does not match the order total")
	}
	if ref, ok := intent.Metadata["order_id"]; ok && ref != orderID {
		return nil, payments.NewPaymentRejectedError("payment belongs to a different order")
	}

	return &payments.Confirmation{
		ProcessorID: intent.ID,
		Method:      "card",
		Raw: map[string]interface{}{
			"id":       intent.ID,
			"amount":   intent.Amount,
			"currency": string(intent.Currency),
			"status":   string(intent.Status),
		},
	}, nil
}

func (s *stripePaymentProvider) NewRefunder(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Refunder, error) {
	return s.refund, nil
}

func (s *stripePaymentProvider) refund(processorID string, amount uint64) (string, error) {
	stripeAmount := int64(amount)
	ref, err := s.client.Refunds.New(&stripe.RefundParams{
		PaymentIntent: &processorID,
		Amount:        &stripeAmount,
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}
