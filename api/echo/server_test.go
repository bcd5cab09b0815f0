package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ta := newTestApp(t)

	req, rec := newRequest(http.MethodGet, "/health")
	ta.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	ta := newTestApp(t)

	req, rec := newRequest(http.MethodGet, "/api/v1/nope")
	ta.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ta := newTestApp(t)

	req, rec := newRequest(http.MethodGet, "/metrics")
	ta.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
