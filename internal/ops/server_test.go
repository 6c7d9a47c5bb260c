package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"missile-bot/internal/metrics"
)

type pinger struct{ err error }

func (p pinger) HealthCheck(context.Context) error { return p.err }

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := get(NewRouter(pinger{}, metrics.New()), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(NewRouter(pinger{err: assert.AnError}, metrics.New()), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	m.Attack("hit")
	r := NewRouter(pinger{}, m)

	get(r, "/healthz")
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `missile_attacks_total{result="hit"} 1`)
	assert.Contains(t, w.Body.String(), "/healthz")
}
