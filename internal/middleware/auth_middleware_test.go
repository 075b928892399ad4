package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("middleware-secret")

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/any", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("username"), "id": c.GetString("userID")})
	})
	r.GET("/admin", AuthMiddleware(secret), RoleAuthMiddleware("Admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func request(t *testing.T, r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine()
	token, err := utils.GenerateAccessToken(secret, time.Minute, "u-1", "ana", "Staff")
	require.NoError(t, err)

	w := request(t, r, "/any", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"ana","id":"u-1"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/any", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/any", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/any", "Bearer not-a-token").Code)

	foreign, err := utils.GenerateAccessToken([]byte("other-secret"), time.Minute, "u-1", "ana", "Admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/any", "Bearer "+foreign).Code)
}

func TestRoleAuthMiddleware(t *testing.T) {
	r := newEngine()
	staff, err := utils.GenerateAccessToken(secret, time.Minute, "u-1", "ana", "Staff")
	require.NoError(t, err)
	admin, err := utils.GenerateAccessToken(secret, time.Minute, "u-2", "boss", "admin")
	require.NoError(t, err)

	w := request(t, r, "/admin", "Bearer "+staff)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	assert.Equal(t, http.StatusNoContent, request(t, r, "/admin", "Bearer "+admin).Code)
}
