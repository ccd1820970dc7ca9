package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-store-pos/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/me", RequireStoreUser(), func(c *gin.Context) {
		actor, _ := auth.ActorFromContext(c.Request.Context())
		c.String(http.StatusOK, actor.StoreID.String())
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.GET("/super", RequireSuperAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, tokens
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsMissingOrBadTokens(t *testing.T) {
	r, _ := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "garbage").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGuards(t *testing.T) {
	r, tokens := newRouter(t)
	store := uuid.New()

	cashier, err := tokens.Issue(auth.Actor{UserID: uuid.New(), StoreID: store})
	require.NoError(t, err)
	admin, err := tokens.Issue(auth.Actor{UserID: uuid.New(), StoreID: store, IsAdmin: true})
	require.NoError(t, err)
	super, err := tokens.IssueSuperAdmin("root")
	require.NoError(t, err)

	w := get(r, "/api/me", cashier)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.String(), w.Body.String())

	assert.Equal(t, http.StatusForbidden, get(r, "/api/admin", cashier).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/api/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/super", admin).Code)

	assert.Equal(t, http.StatusNoContent, get(r, "/api/super", super).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/me", super).Code)
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit("lots")
	assert.Error(t, err)

	mw, err := RateLimit("2-M")
	require.NoError(t, err)
	r := gin.New()
	r.Use(mw)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/health", "").Code)
}
