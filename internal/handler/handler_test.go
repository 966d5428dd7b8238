package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ipes-academic-api/internal/middleware"
	"github.com/noah-isme/ipes-academic-api/internal/models"
)

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *errorBody         `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func studentActor() *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "user-st", Role: models.RoleStudent, StudentID: "st-1"})
}

func bedelActor() *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "user-bedel", Role: models.RoleBedel})
}

// newTestRouter mounts routes behind a stub that installs actor as the request principal.
func newTestRouter(actor *models.Principal, register func(r gin.IRoutes)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", func(c *gin.Context) {
		if actor != nil {
			c.Set(middleware.ContextPrincipalKey, actor)
		}
		c.Next()
	})
	register(group)
	return router
}

func perform(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}
