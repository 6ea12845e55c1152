package api

import (
	"net/http"
)

// Index endpoint
func (a *API) Index(w http.ResponseWriter, r *http.Request) error {
	return sendJSON(w, http.StatusOK, map[string]string{
		"version":     a.version,
		"name":        "StudyMall",
		"description": "StudyMall is an API for selling downloadable study materials",
	})
}

// HealthCheck endpoint
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) error {
	return sendJSON(w, http.StatusOK, map[string]string{
		"version": a.version,
		"name":    "StudyMall",
	})
}
