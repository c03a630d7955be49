package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	assert.Equal(t, "/v1/products/:id/checkout", canonicalPath("/v1/products/2b7c1d7e-6c1a-4a43-9a55-2c1f8f7d0b11/checkout"))
	assert.Equal(t, "/health", canonicalPath("/health"))
}

func TestHandlerExposesCheckoutCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RecordCheckout("completed", 10*time.Millisecond)
	RecordRevenue("discord", 1999)

	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `botscript_checkout_attempts_total{outcome="completed"}`))
	assert.True(t, strings.Contains(body, `botscript_http_requests_total{method="GET",path="/ping",status="200"}`))
}
