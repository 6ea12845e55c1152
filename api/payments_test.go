package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymall/studymall/models"
	"github.com/studymall/studymall/payments"
	tu "github.com/studymall/studymall/testutils"
)

type testProvider struct {
	name        string
	processorID string
	confirmErr  error
	refundErr   error
	refundID    string
}

func (p *testProvider) Name() string { return p.name }

func (p *testProvider) NewConfirmer(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Confirmer, error) {
	return func(paymentRef, orderID string, amount uint64) (*payments.Confirmation, error) {
		if p.confirmErr != nil {
			return nil, p.confirmErr
		}
		return &payments.Confirmation{
			ProcessorID: p.processorID,
			Method:      "card",
			Raw:         map[string]interface{}{"payment_ref": paymentRef},
		}, nil
	}, nil
}

func (p *testProvider) NewRefunder(ctx context.Context, r *http.Request, log logrus.FieldLogger) (payments.Refunder, error) {
	return func(processorID string, amount uint64) (string, error) {
		if p.refundErr != nil {
			return "", p.refundErr
		}
		return p.refundID, nil
	}, nil
}

func testProviders(prov *testProvider) map[string]payments.Provider {
	return map[string]payments.Provider{prov.name: prov}
}

func confirmBody(provider, ref string, amount uint64) string {
	return fmt.Sprintf(`{"provider": "%s", "payment_ref": "%s", "amount": %d}`, provider, ref, amount)
}

func TestPaymentConfirmation(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "test", processorID: "pi_12345"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("test", "pay_1", tu.FirstOrder.Total)), token))

	purchases := []models.Purchase{}
	extractPayload(t, http.StatusCreated, recorder, &purchases)
	require.Len(t, purchases, 2)
	for _, p := range purchases {
		assert.Equal(t, models.PaidState, p.PaymentState)
		assert.Equal(t, "pi_12345", p.ProcessorID)
		assert.EqualValues(t, 5, p.DownloadLimit)
		assert.EqualValues(t, 0, p.DownloadCount)
		assert.Equal(t, tu.TestUser.ID, p.UserID)
	}

	order := &models.Order{}
	require.NoError(t, conn.First(order, "id = ?", tu.FirstOrder.ID).Error)
	assert.Equal(t, models.ConfirmedState, order.State)
	assert.Equal(t, "test", order.PaymentProvider)
}

func TestPaymentConfirmationIdempotent(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "test", processorID: "pi_12345"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)
	url := "https://example.com/orders/" + tu.FirstOrder.ID + "/payments"
	body := confirmBody("test", "pay_1", tu.FirstOrder.Total)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST", url, strings.NewReader(body), token))
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	recorder = httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST", url, strings.NewReader(body), token))

	purchases := []models.Purchase{}
	extractPayload(t, http.StatusOK, recorder, &purchases)
	assert.Len(t, purchases, 2)

	var count uint64
	require.NoError(t, conn.Model(&models.Purchase{}).Where("order_id = ?", tu.FirstOrder.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestPaymentConfirmationAmountMismatch(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "test", processorID: "pi_12345"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("test", "pay_1", 100)), token))
	validateError(t, http.StatusBadRequest, recorder)
}

func TestPaymentConfirmationRejected(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{
		name:       "test",
		confirmErr: payments.NewPaymentRejectedError("card declined"),
	}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("test", "pay_1", tu.FirstOrder.Total)), token))
	validateError(t, http.StatusPaymentRequired, recorder)

	// no entitlement on a rejection, order stays retryable
	var count uint64
	require.NoError(t, conn.Model(&models.Purchase{}).Where("order_id = ?", tu.FirstOrder.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	order := &models.Order{}
	require.NoError(t, conn.First(order, "id = ?", tu.FirstOrder.ID).Error)
	assert.Equal(t, models.PendingState, order.State)
}

func TestPaymentConfirmationExpiredOrder(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "test", processorID: "pi_12345"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	original := timeNow
	timeNow = func() time.Time { return time.Now().Add(time.Hour) }
	defer func() { timeNow = original }()

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("test", "pay_1", tu.FirstOrder.Total)), token))
	validateError(t, http.StatusUnprocessableEntity, recorder)

	order := &models.Order{}
	require.NoError(t, conn.First(order, "id = ?", tu.FirstOrder.ID).Error)
	assert.Equal(t, models.ExpiredState, order.State)
}

func TestPaymentConfirmationDeactivatedProduct(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "test", processorID: "pi_12345"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	// pulled from the catalog between staging and payment
	require.NoError(t, conn.Model(tu.PaidProduct).Update("active", false).Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("test", "pay_1", tu.FirstOrder.Total)), token))
	validateError(t, http.StatusUnprocessableEntity, recorder)

	var count uint64
	require.NoError(t, conn.Model(&models.Purchase{}).Where("order_id = ?", tu.FirstOrder.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	order := &models.Order{}
	require.NoError(t, conn.First(order, "id = ?", tu.FirstOrder.ID).Error)
	assert.Equal(t, models.PendingState, order.State)
}

func TestPaymentConfirmationUnknownProvider(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/orders/"+tu.FirstOrder.ID+"/payments",
		strings.NewReader(confirmBody("nope", "pay_1", tu.FirstOrder.Total)), token))
	validateError(t, http.StatusBadRequest, recorder)
}

func TestPaymentRefund(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "stripe", refundID: "re_123"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.AdminUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/payments/"+tu.PaidPurchase.ID+"/refund",
		strings.NewReader(`{}`), token))

	purchase := &models.Purchase{}
	extractPayload(t, http.StatusOK, recorder, purchase)
	assert.Equal(t, models.RefundedState, purchase.PaymentState)

	stored := &models.Purchase{}
	require.NoError(t, conn.First(stored, "id = ?", tu.PaidPurchase.ID).Error)
	assert.Equal(t, models.RefundedState, stored.PaymentState)
}

func TestPaymentRefundRequiresAdmin(t *testing.T) {
	conn, config := db(t)
	prov := &testProvider{name: "stripe", refundID: "re_123"}
	a := testAPI(t, conn, config, testProviders(prov))
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "POST",
		"https://example.com/payments/"+tu.PaidPurchase.ID+"/refund",
		strings.NewReader(`{}`), token))
	validateError(t, http.StatusUnauthorized, recorder)
}

func TestPaymentListRequiresAdmin(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", "https://example.com/payments", nil, token))
	validateError(t, http.StatusUnauthorized, recorder)
}
