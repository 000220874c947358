package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddleware(testSecret, testIssuer))
	router.GET("/protected", func(c *gin.Context) {
		key, _ := c.Get("api_key")
		c.String(http.StatusOK, key.(string))
	})
	return router
}

func requestWithAuth(router http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware_Valid(t *testing.T) {
	w := requestWithAuth(protectedRouter(), "Bearer "+testToken(t, testIssuer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client-1", w.Body.String())
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": testIssuer})
	otherKeyToken, err := otherKey.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "wrong issuer", header: "Bearer " + testToken(t, "someone-else")},
		{name: "expired", header: "Bearer " + expiredToken},
		{name: "wrong secret", header: "Bearer " + otherKeyToken},
		{name: "garbage", header: "Bearer not-a-token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := requestWithAuth(protectedRouter(), tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(NewRateLimiter(0.001, 1)))
	router.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimiter_ReusesLimiterPerKey(t *testing.T) {
	limiter := NewRateLimiter(10, 20)

	assert.Same(t, limiter.GetLimiter("a"), limiter.GetLimiter("a"))
	assert.NotSame(t, limiter.GetLimiter("a"), limiter.GetLimiter("b"))
}

func TestRateLimiter_PrunesIdleKeys(t *testing.T) {
	limiter := NewRateLimiter(10, 20)
	clock := time.Now()
	limiter.now = func() time.Time { return clock }

	limiter.GetLimiter("old")
	clock = clock.Add(30 * time.Minute)
	limiter.GetLimiter("recent")
	assert.Equal(t, 2, limiter.Len())

	clock = clock.Add(45 * time.Minute)
	limiter.GetLimiter("recent")
	assert.Equal(t, 1, limiter.Len())
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/fails", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})
	router.GET("/answered", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad", Code: "BAD"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fails", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/answered", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "INTERNAL_ERROR")
}
