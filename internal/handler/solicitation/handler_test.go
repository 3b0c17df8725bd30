package solicitation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/agilpa/solicitation-api/internal/middleware"
	"github.com/agilpa/solicitation-api/internal/model"
)

// newSigningRouter registers the routes behind a stub that injects the
// caller's department, the way Authenticate does after token checks.
func newSigningRouter(dept model.Department) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("")
	group.Use(func(c *gin.Context) {
		c.Set(middleware.ContextDepartment, string(dept))
	})
	h := NewHandler(nil, middleware.NewAuthMiddleware(nil))
	h.RegisterRoutes(group)
	return engine
}

func TestSigningRoutesRequireSefin(t *testing.T) {
	engine := newSigningRouter(model.DepartmentSOSFU)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signing-tasks/some-id/sign", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/signing-tasks/some-id/reject", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSigningRoutesAdmitSefin(t *testing.T) {
	engine := newSigningRouter(model.DepartmentSEFIN)

	// The guard lets SEFIN through; the handler then rejects the bogus
	// task ID, proving the request reached it.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signing-tasks/some-id/sign", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
