// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPreferredLanguage(t *testing.T) {
	supported := map[string]bool{"en": true, "es": true}

	assert.Equal(t, "es", preferredLanguage("es-MX,es;q=0.9,en;q=0.8", supported))
	assert.Equal(t, "en", preferredLanguage("fr-FR,de;q=0.5", supported))
	assert.Equal(t, "en", preferredLanguage("", supported))
	assert.Equal(t, "es", preferredLanguage("de, es_ES", supported))
}

func protectedRouter(roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthRequired(), RoleRequired(roles...), func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c)
		c.String(http.StatusOK, role+" "+utils.GetUserEmailFromContext(c))
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := protectedRouter(models.UserRoleEditor, models.UserRoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT(uuid.New(), "editor@example.com", "editor", 1)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "editor editor@example.com", w.Body.String())
}

func TestRoleRequiredForbidsOtherRoles(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := protectedRouter(models.UserRoleAdmin)

	token, err := utils.GenerateJWT(uuid.New(), "reviewer@example.com", "reviewer", 1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRecoveryReturns500(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Handler panicked", hook.LastEntry().Message)
}

func TestRequestLoggerLevels(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing/42", nil))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "/missing/:id", hook.LastEntry().Data["route"])
	assert.Equal(t, "warning", hook.LastEntry().Level.String())
}
