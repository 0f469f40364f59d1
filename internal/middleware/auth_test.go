package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/dragon-companion/internal/utils"
)

func newTestEngine(jwt *utils.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), Recovery())
	engine.GET("/me", Auth(jwt), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.String(http.StatusOK, userID)
	})
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return engine
}

func TestAuth(t *testing.T) {
	jwt := utils.NewJWTManager("secret", "couple-app")
	engine := newTestEngine(jwt)
	token, err := jwt.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"Bearer头", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "alice"},
		{"X-Access-Token头", func(r *http.Request) { r.Header.Set("X-Access-Token", token) }, http.StatusOK, "alice"},
		{"Query参数", func(r *http.Request) { r.URL.RawQuery = "token=" + token }, http.StatusOK, "alice"},
		{"缺少令牌", func(r *http.Request) {}, http.StatusUnauthorized, `"code":7000`},
		{"无效令牌", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, `"code":7003`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	engine := newTestEngine(utils.NewJWTManager("secret", ""))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"request_id":"req-1"`)
	assert.Contains(t, w.Body.String(), `"code":1000`)
}
