package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/internal/service"
)

func newAuth() *service.AuthService {
	return service.NewAuthService(service.AuthConfig{Secret: "test-secret", Issuer: "rtd-test"})
}

func protectedRouter(auth *service.AuthService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(auth), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).UserID)
	})
	return r
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := protectedRouter(newAuth(), models.RoleStaff)
	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "not-a-jwt").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAndRolesAllowStaff(t *testing.T) {
	auth := newAuth()
	token, err := auth.IssueToken("staff-1", models.RoleStaff, "", time.Minute)
	require.NoError(t, err)

	w := call(protectedRouter(auth, models.RoleStaff), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "staff-1", w.Body.String())
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	auth := newAuth()
	token, err := auth.IssueToken("parent-1", models.RoleParent, "fam-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(protectedRouter(auth, models.RoleStaff), token).Code)
}

func TestRequireRolesAlwaysAdmitsAdmin(t *testing.T) {
	auth := newAuth()
	token, err := auth.IssueToken("admin-1", models.RoleAdmin, "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(protectedRouter(auth), token).Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireRoles(models.RoleStaff), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
}

type observation struct {
	method string
	path   string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/students/abc", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{http.MethodGet, "/students/:id", http.StatusNoContent}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}

func TestMetricsToleratesNilObserver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
