package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LogsPerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success logs info", http.StatusOK, zapcore.InfoLevel},
		{"client error logs warn", http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{"server error logs error", http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base, logs := observedLogger()
			router := gin.New()
			router.Use(GinMiddleware(base))
			status := tc.status
			router.GET("/ping", func(c *gin.Context) { c.Status(status) })

			w := performRequest(router, http.MethodGet, "/ping?q=1")
			assert.Equal(t, tc.status, w.Code)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, "request completed", entry.Message)
			assert.Equal(t, tc.level, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, int64(tc.status), fields["status"])
			assert.Equal(t, "/ping", fields["path"])
			assert.Equal(t, "1", fields["query"])
		})
	}
}

func TestGinMiddleware_StoresRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base, logs := observedLogger()

	router := gin.New()
	router.Use(GinMiddleware(base))
	router.GET("/x", func(c *gin.Context) {
		GetGinLogger(c).Info("from handler")
		c.Status(http.StatusOK)
	})

	performRequest(router, http.MethodGet, "/x")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "from handler", logs.All()[0].Message)
	assert.Contains(t, logs.All()[0].ContextMap(), "method")
}

func TestGetGinLogger_MissingReturnsNop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	log := GetGinLogger(c)
	require.NotNil(t, log)
	log.Info("ignored")
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base, logs := observedLogger()

	router := gin.New()
	router.Use(Recovery(base))
	router.GET("/boom", func(c *gin.Context) {
		panic("treasury exploded")
	})

	w := performRequest(router, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic in handler", entry.Message)
	assert.Equal(t, "treasury exploded", entry.ContextMap()["panic"])
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base, logs := observedLogger()

	router := gin.New()
	router.Use(Recovery(base))
	router.GET("/fine", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := performRequest(router, http.MethodGet, "/fine")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, logs.Len())
}
