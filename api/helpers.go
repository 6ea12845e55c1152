package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// timeNow is stubbed in tests that exercise order expiry.
var timeNow = time.Now

func sendJSON(w http.ResponseWriter, status int, obj interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		logrus.WithError(err).Errorf("Error encoding json response: %v", obj)
	}
	return nil
}

// addGetBody buffers the request body so payment providers can read it
// again through r.GetBody.
func addGetBody(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	if r.Body == nil {
		return r.Context(), nil
	}

	buf, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return nil, badRequestError("Could not read request body: %v", err)
	}

	r.GetBody = func() (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(buf)), nil
	}
	r.Body = ioutil.NopCloser(bytes.NewReader(buf))
	return r.Context(), nil
}
