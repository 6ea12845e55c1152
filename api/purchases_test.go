package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymall/studymall/models"
	tu "github.com/studymall/studymall/testutils"
)

func TestPurchaseList(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", "https://example.com/purchases", nil, token))

	purchases := []models.Purchase{}
	extractPayload(t, http.StatusOK, recorder, &purchases)
	require.Len(t, purchases, 1)
	assert.Equal(t, tu.PaidPurchase.ID, purchases[0].ID)
	assert.Equal(t, "영어 단어장 중급", purchases[0].ProductTitle)
}

func TestPurchaseListHidesDeactivatedProducts(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	rsp := conn.Model(&models.Product{}).
		Where("id = ?", tu.SecondProduct.ID).
		Update("active", false)
	require.NoError(t, rsp.Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", "https://example.com/purchases", nil, token))

	purchases := []models.Purchase{}
	extractPayload(t, http.StatusOK, recorder, &purchases)
	assert.Len(t, purchases, 0)

	// the purchase row itself is untouched
	var count uint64
	require.NoError(t, conn.Model(&models.Purchase{}).Where("id = ?", tu.PaidPurchase.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPurchaseListHidesRefunded(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	rsp := conn.Model(&models.Purchase{}).
		Where("id = ?", tu.PaidPurchase.ID).
		Update("payment_state", models.RefundedState)
	require.NoError(t, rsp.Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", "https://example.com/purchases", nil, token))

	purchases := []models.Purchase{}
	extractPayload(t, http.StatusOK, recorder, &purchases)
	assert.Len(t, purchases, 0)
}

func TestPurchaseListRequiresAuth(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", "https://example.com/purchases", nil, ""))
	validateError(t, http.StatusUnauthorized, recorder)
}
