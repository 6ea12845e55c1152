package api

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymall/studymall/models"
	tu "github.com/studymall/studymall/testutils"
)

func downloadURL(productID string) string {
	return "https://example.com/downloads/" + productID
}

func TestDownloadWithEntitlement(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.SecondProduct.ID), nil, token))

	rsp := &downloadResponse{}
	extractPayload(t, http.StatusOK, recorder, rsp)
	assert.Equal(t, "english/vocab.pdf", rsp.URL)
	require.NotNil(t, rsp.Remaining)
	assert.EqualValues(t, 4, *rsp.Remaining)

	purchase := &models.Purchase{}
	require.NoError(t, conn.First(purchase, "id = ?", tu.PaidPurchase.ID).Error)
	assert.EqualValues(t, 1, purchase.DownloadCount)
	assert.NotNil(t, purchase.LastDownloadAt)

	product := &models.Product{}
	require.NoError(t, conn.First(product, "id = ?", tu.SecondProduct.ID).Error)
	assert.EqualValues(t, 1, product.DownloadCount)
}

func TestDownloadWithoutEntitlement(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.PaidProduct.ID), nil, token))
	validateError(t, http.StatusForbidden, recorder)
}

func TestDownloadQuotaExhausted(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	rsp := conn.Model(&models.Purchase{}).
		Where("id = ?", tu.PaidPurchase.ID).
		Update("download_count", tu.PaidPurchase.DownloadLimit)
	require.NoError(t, rsp.Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.SecondProduct.ID), nil, token))
	validateError(t, http.StatusForbidden, recorder)

	purchase := &models.Purchase{}
	require.NoError(t, conn.First(purchase, "id = ?", tu.PaidPurchase.ID).Error)
	assert.Equal(t, tu.PaidPurchase.DownloadLimit, purchase.DownloadCount)
}

func TestDownloadFreeProductBypass(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	// no purchase exists for the free product, two downloads both work
	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.FreeProduct.ID), nil, token))

		rsp := &downloadResponse{}
		extractPayload(t, http.StatusOK, recorder, rsp)
		assert.Equal(t, "samples/free.pdf", rsp.URL)
		assert.Nil(t, rsp.Remaining)
	}

	product := &models.Product{}
	require.NoError(t, conn.First(product, "id = ?", tu.FreeProduct.ID).Error)
	assert.EqualValues(t, 2, product.DownloadCount)
}

func TestDownloadDeactivatedProduct(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	rsp := conn.Model(&models.Product{}).
		Where("id = ?", tu.SecondProduct.ID).
		Update("active", false)
	require.NoError(t, rsp.Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.SecondProduct.ID), nil, token))
	validateError(t, http.StatusNotFound, recorder)

	// the failed attempt must not burn quota
	purchase := &models.Purchase{}
	require.NoError(t, conn.First(purchase, "id = ?", tu.PaidPurchase.ID).Error)
	assert.EqualValues(t, 0, purchase.DownloadCount)
}

func TestDownloadRefundedPurchase(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	rsp := conn.Model(&models.Purchase{}).
		Where("id = ?", tu.PaidPurchase.ID).
		Update("payment_state", models.RefundedState)
	require.NoError(t, rsp.Error)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.SecondProduct.ID), nil, token))
	validateError(t, http.StatusForbidden, recorder)
}

func TestDownloadInvalidProductID(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL("not-a-uuid"), nil, token))
	validateError(t, http.StatusBadRequest, recorder)
}

func TestDownloadRequiresAuth(t *testing.T) {
	conn, config := db(t)
	a := testAPI(t, conn, config, nil)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.FreeProduct.ID), nil, ""))
	validateError(t, http.StatusUnauthorized, recorder)
}

func TestDownloadStreamsFromLocalStore(t *testing.T) {
	conn, config := db(t)

	root, err := ioutil.TempDir("", "studymall-assets")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })
	require.NoError(t, os.MkdirAll(filepath.Join(root, "english"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "english", "vocab.pdf"), []byte("%PDF-1.4 test"), 0644))

	config.Downloads.Provider = "local"
	config.Downloads.LocalRoot = root

	a := testAPI(t, conn, config, nil)
	token := bearer(t, config, tu.TestUser)

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, authRequest(t, "GET", downloadURL(tu.SecondProduct.ID), nil, token))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "%PDF-1.4 test", recorder.Body.String())
}
