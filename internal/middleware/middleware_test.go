package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRedact(t *testing.T) {
	data := map[string]interface{}{
		"card_number": "4242 4242 4242 4242",
		"CVV":         "123",
		"card_name":   "Jean Dupont",
		"title":       "Booster",
		"nested": map[string]interface{}{
			"password": "hunter22",
			"email":    "jean@example.com",
		},
		"items": []interface{}{
			map[string]interface{}{"expiry_date": "12/30"},
		},
	}

	Redact(data)

	assert.Equal(t, redacted, data["card_number"])
	assert.Equal(t, redacted, data["CVV"])
	assert.Equal(t, redacted, data["card_name"])
	assert.Equal(t, "Booster", data["title"])

	nested := data["nested"].(map[string]interface{})
	assert.Equal(t, redacted, nested["password"])
	assert.Equal(t, "jean@example.com", nested["email"])

	item := data["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, redacted, item["expiry_date"])
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]string{
		"":                        "en",
		"fr":                      "fr",
		"fr-FR,fr;q=0.9,en;q=0.8": "fr",
		"en-GB,en;q=0.9":          "en",
		"de-DE,de;q=0.9":          "en",
		"FR-ca":                   "fr",
	}

	for header, expected := range tests {
		assert.Equal(t, expected, ParseLanguage(header, "en"), "header %q", header)
	}
}

func TestExtractResource(t *testing.T) {
	path := "/v1/products/8a0c6b5e-3f3b-4f55-9d0e-1d1c2f3a4b5c/checkout"
	assert.Equal(t, "products", extractResourceType(path))
	assert.Equal(t, "8a0c6b5e-3f3b-4f55-9d0e-1d1c2f3a4b5c", extractResourceID(path))
	assert.Equal(t, "", extractResourceID("/v1/auth/signup"))
	assert.Equal(t, "health", extractResourceType("/health"))
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// Buckets are independent per client
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterDropsIdleVisitors(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	now = now.Add(visitorTTL + cleanupInterval + time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PerMinute(1).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)

	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}
