package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docchat/internal/pkg/jwtutil"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", handlers...)
	return r
}

func TestAuthJWT_SetsTokenIdentifier(t *testing.T) {
	token, err := jwtutil.GenerateToken("secret", "docchat", time.Hour, 3, "carol", "docchat|3")
	require.NoError(t, err)

	var got string
	r := newEngine(AuthJWT("secret"), func(c *gin.Context) {
		got = TokenIdentifier(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "docchat|3", got)
}

func TestAuthJWT_Rejects(t *testing.T) {
	r := newEngine(AuthJWT("secret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(RequestLogger(zerolog.New(&buf)), func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestTokenIdentifier_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", TokenIdentifier(c))
}

func TestBearerToken(t *testing.T) {
	tok, problem := bearerToken("bearer abc")
	assert.Equal(t, "abc", tok)
	assert.Empty(t, problem)

	_, problem = bearerToken("  ")
	assert.Equal(t, "missing authorization header", problem)

	_, problem = bearerToken("Token abc")
	assert.Equal(t, "invalid authorization scheme", problem)
}
