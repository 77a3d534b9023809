package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protected(tokens *utils.TokenIssuer, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(tokens)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey)+"|"+c.GetString(ContextEmailKey))
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret")
	r := protected(tokens)
	token, _, err := tokens.Issue("u-1", "alice", "a@x.io", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1|a@x.io", w.Body.String())

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer nope"} {
		assert.Equal(t, http.StatusUnauthorized, get(r, header).Code, header)
	}

	other, _, err := utils.NewTokenIssuer("other").Issue("u-1", "alice", "a@x.io", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+other).Code)
}

func TestAuthRequiredRejectsRevoked(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret")
	token, exp, err := tokens.Issue("u-2", "bob", "b@x.io", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(context.Background(), token, exp)

	w := get(protected(tokens), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestAdminOnly(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret")
	r := protected(tokens, AdminOnly([]string{"root"}))

	admin, _, _ := tokens.Issue("u-1", "root", "r@x.io", time.Hour)
	user, _, _ := tokens.Issue("u-2", "alice", "a@x.io", time.Hour)

	assert.Equal(t, http.StatusOK, get(r, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+user).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/me", RateLimitMiddleware(4), func(c *gin.Context) { c.Status(http.StatusOK) })

	// burst is half the per-minute rate
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code)
}

func TestMetricsMiddlewareAndBasicAuth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/me", MetricsBasicAuth("prom", "pw"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.SetBasicAuth("prom", "pw")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/me", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRejections.WithLabelValues("401_unauthorized")))
}

func TestMetricsBasicAuthOpenWhenUnset(t *testing.T) {
	r := gin.New()
	r.GET("/me", MetricsBasicAuth("", ""), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, get(r, "").Code)
}
