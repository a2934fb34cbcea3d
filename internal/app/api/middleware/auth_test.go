package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/pkg/config"
)

const testSecret = "test-secret"

func adminTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Admin: config.AdminConfig{JWTSecret: testSecret}}
	r := gin.New()
	r.Use(AdminAuthMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator_id": c.GetString("operator_id")})
	})
	return r
}

func signToken(t *testing.T, role, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"sub":  "op-1",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAdminAuthMiddleware_AllowsAdminToken(t *testing.T) {
	r := adminTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "op-1")
}

func TestAdminAuthMiddleware_RejectsMissingToken(t *testing.T) {
	r := adminTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_RejectsWrongSecret(t *testing.T) {
	r := adminTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", "other-secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_RejectsNonAdminRole(t *testing.T) {
	r := adminTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "support", testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
