package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymall/studymall/conf"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
	"github.com/studymall/studymall/payments"
	tu "github.com/studymall/studymall/testutils"
)

func db(t *testing.T) (*gorm.DB, *conf.Configuration) {
	f, err := ioutil.TempFile("", "studymall-test-db")
	require.NoError(t, err)

	config := testConfig()
	config.DB.Driver = "sqlite3"
	config.DB.ConnURL = f.Name()

	conn, err := models.Connect(config)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		os.Remove(f.Name())
	})

	require.NoError(t, tu.LoadTestData(conn))
	return conn, config
}

func testConfig() *conf.Configuration {
	config := &conf.Configuration{}
	config.DB.Automigrate = true
	config.JWT.Secret = "testsecret"
	config.JWT.AdminGroupName = "admin"
	config.JWT.Expiry = time.Hour
	config.Downloads.MaxDownloads = 5
	config.Downloads.URLValidity = time.Hour
	config.Orders.PendingTTL = 30 * time.Minute
	config.Verification.CodeTTL = 10 * time.Minute
	config.Verification.MaxAttempts = 5
	config.Session.TTL = time.Hour
	config.Session.CookieName = "studymall_session"
	return config
}

func testAPI(t *testing.T, conn *gorm.DB, config *conf.Configuration, provs map[string]payments.Provider) *API {
	ctx, err := setupContext(context.Background(), config)
	require.NoError(t, err)
	if provs != nil {
		ctx = gcontext.WithPaymentProviders(ctx, provs)
	}
	return newAPIWithContext(ctx, config, conn, "testing")
}

func bearer(t *testing.T, config *conf.Configuration, user *models.User) string {
	token, err := issueToken(config.JWT.Secret, config.JWT.AdminGroupName, user, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return token
}

func authRequest(t *testing.T, method, url string, body io.Reader, token string) *http.Request {
	req := httptest.NewRequest(method, url, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func extractPayload(t *testing.T, code int, recorder *httptest.ResponseRecorder, what interface{}) {
	require.Equal(t, code, recorder.Code, "unexpected status, body: %s", recorder.Body.String())
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(what))
}

func validateError(t *testing.T, code int, recorder *httptest.ResponseRecorder) {
	assert := assert.New(t)
	if code != recorder.Code {
		assert.Fail(fmt.Sprintf("code mismatch: expected %d vs actual %d, body: %s", code, recorder.Code, recorder.Body.String()))
		return
	}

	errRsp := make(map[string]interface{})
	err := json.NewDecoder(recorder.Body).Decode(&errRsp)
	assert.Nil(err)

	errcode, exists := errRsp["code"]
	assert.True(exists)
	assert.EqualValues(code, errcode)

	_, exists = errRsp["msg"]
	assert.True(exists)
}
