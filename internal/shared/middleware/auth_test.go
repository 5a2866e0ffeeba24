package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/shared/identity"
	"library-backend/pkg/jwt"
)

func newAuthRouter(tokens *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	api := r.Group("/", AuthMiddleware(tokens))
	api.GET("/me", func(c *gin.Context) {
		id, _ := identity.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": id.Email, "role": id.Role})
	})
	api.GET("/staff", RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
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

func Test_AuthMiddleware(t *testing.T) {
	tokens := jwt.NewManager("secret", time.Hour)
	r := newAuthRouter(tokens)

	student, err := tokens.GenerateAccessToken(uuid.NewString(), "s@school.test", "student", uuid.NewString())
	require.NoError(t, err)
	librarian, err := tokens.GenerateAccessToken(uuid.NewString(), "l@library.test", "librarian", "")
	require.NoError(t, err)
	forged, err := jwt.NewManager("other", time.Hour).GenerateAccessToken(uuid.NewString(), "x@x.test", "admin", "")
	require.NoError(t, err)
	badRole, err := tokens.GenerateAccessToken(uuid.NewString(), "x@x.test", "janitor", "")
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"foreign signature", "/me", forged, http.StatusUnauthorized},
		{"unknown role", "/me", badRole, http.StatusUnauthorized},
		{"student reads own identity", "/me", student, http.StatusOK},
		{"student on staff route", "/staff", student, http.StatusForbidden},
		{"librarian on staff route", "/staff", librarian, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func Test_AuthMiddleware_MalformedHeader(t *testing.T) {
	r := newAuthRouter(jwt.NewManager("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
