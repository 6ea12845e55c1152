package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	paypalsdk "github.com/netlify/PayPal-Go-SDK"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/studymall/studymall/payments"
)

type paypalPaymentProvider struct {
	client *paypalsdk.Client
}

type paypalBodyParams struct {
	PaypalUserID string `json:"paypal_user_id"`
}

// Config contains the PayPal-specific provider configuration.
type Config struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
	Env      string `json:"env"`
}

// NewPaymentProvider creates a PayPal payment provider.
func NewPaymentProvider(config Config) (payments.Provider, error) {
	if config.ClientID == "" || config.Secret == "" {
		return nil, errors.New("missing PayPal client_id and/or secret")
	}

	var ppEnv string
	switch config.Env {
	case "production":
		ppEnv = paypalsdk.APIBaseLive
	case "sandbox":
		ppEnv = paypalsdk.APIBaseSandBox
	default:
		// used for testing
		ppEnv = config.Env
	}

	paypal, err := paypalsdk.NewClient(config.ClientID, config.Secret, ppEnv)
	if err != nil {
		return nil, errors.Wrap(err, "Error configuring paypal")
	}
	if _, err := paypal.GetAccessToken(); err != nil {
		return nil, errors.Wrap(err, "Error authorizing with paypal")
	}

	return &paypalPaymentProvider{client: paypal}, nil
}

func (p *paypalPaymentProvider) Name() string {
	return payments.PayPalProvider
}

// NewConfirmer executes a browser-approved PayPal payment. The payment
// reference is the PayPal payment id; the request body must carry the
// approving paypal_user_id.
func (p *paypalPaymentProvider) NewConfirmer(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Confirmer, error) {
	var bp paypalBodyParams
	bod, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	if err := json.NewDecoder(bod).Decode(&bp); err != nil {
		return nil, err
	}
	if bp.PaypalUserID == "" {
		return nil, errors.New("PayPal payments require a paypal_user_id")
	}

	return func(paymentRef, orderID string, amount uint64) (*payments.Confirmation, error) {
		return p.confirm(paymentRef, bp.PaypalUserID, amount)
	}, nil
}

func (p *paypalPaymentProvider) confirm(paymentID, userID string, amount uint64) (*payments.Confirmation, error) {
	payment, err := p.client.GetPayment(paymentID)
	if err != nil {
		return nil, payments.NewPaymentRejectedError(err.Error())
	}
	if len(payment.Transactions) != 1 {
		return nil, payments.NewPaymentRejectedError(fmt.Sprintf("the paypal payment must have exactly 1 transaction, had %v", len(payment.Transactions)))
	}
	trans := payment.Transactions[0]
	if trans.Amount == nil || trans.Amount.Total != formatAmount(amount) {
		return nil, payments.NewPaymentRejectedError("the amount in the transaction doesn't match the order total")
	}

	executeResult, err := p.client.ExecuteApprovedPayment(paymentID, userID)
	if err != nil {
		return nil, payments.NewPaymentRejectedError(err.Error())
	}

	return &payments.Confirmation{
		ProcessorID: executeResult.ID,
		Method:      "paypal",
		Raw: map[string]interface{}{
			"id":    executeResult.ID,
			"state": executeResult.State,
		},
	}, nil
}

func (p *paypalPaymentProvider) NewRefunder(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Refunder, error) {
	return p.refund, nil
}

func (p *paypalPaymentProvider) refund(processorID string, amount uint64) (string, error) {
	amt := &paypalsdk.Amount{
		Total:    formatAmount(amount),
		Currency: "USD",
	}
	ref, err := p.client.RefundSale(processorID, amt)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func formatAmount(amount uint64) string {
	return strconv.FormatFloat(float64(amount)/100, 'f', 2, 64)
}
