package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
)

const testSecret = "test-secret"

type userMap map[uint]models.User

func (m userMap) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperrors.NotFound("users.get", "user")
	}
	return &u, nil
}

func init() { gin.SetMode(gin.TestMode) }

func newAuthRouter(users UserLookup, roles ...models.RoleID) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(testSecret, users)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		a := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "role": a.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	users := userMap{
		10: {UserID: 10, Email: "dosen@univ.ac.id", RoleID: models.RoleDosen, IsActive: true},
		11: {UserID: 11, Email: "off@univ.ac.id", RoleID: models.RoleDosen},
	}
	router := newAuthRouter(users)

	token, expires, err := SignToken(testSecret, time.Hour, users[10])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	w := call(router, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":10,"role":1}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(router, "").Code)

	wrong, _, err := SignToken("other-secret", time.Hour, users[10])
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(router, wrong).Code)

	expired, _, err := SignToken(testSecret, -time.Minute, users[10])
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(router, expired).Code)

	inactive, _, err := SignToken(testSecret, time.Hour, users[11])
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(router, inactive).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 10, RoleID: models.RoleDosen})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(router, unsigned).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleFromUserRowWins(t *testing.T) {
	// The token was issued while the user was a reviewer; the row says Dosen.
	users := userMap{20: {UserID: 20, RoleID: models.RoleDosen, IsActive: true}}
	token, _, err := SignToken(testSecret, time.Hour, models.User{UserID: 20, RoleID: models.RoleReviewer})
	require.NoError(t, err)

	w := call(newAuthRouter(users, models.RoleReviewer), token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(newAuthRouter(users, models.RoleDosen, models.RoleAdmin), token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignTokenNeedsSecret(t *testing.T) {
	_, _, err := SignToken("", time.Hour, models.User{UserID: 1})
	assert.Error(t, err)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.univ.ac.id"}), SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.univ.ac.id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.univ.ac.id", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.univ.ac.id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	const given = "3f1c2b8e-0d4a-4c55-9a51-2f3a8e7b6c10"
	req.Header.Set("X-Request-ID", given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, given, entries[1].ContextMap()["request_id"])
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}
