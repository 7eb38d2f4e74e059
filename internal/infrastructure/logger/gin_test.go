package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newGinTestRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logger))
	r.Use(GinMiddleware(logger))
	return r
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newGinTestRouter(zap.New(core))

	r.GET("/bills", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bills?month=2025-08", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/bills", fields["path"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "month=2025-08", fields["query"])
}

func TestGinMiddlewareLogsActor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newGinTestRouter(zap.New(core))

	r.POST("/bills/generate", func(c *gin.Context) {
		c.Set("jwt_user_id", "acct-42")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bills/generate", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "acct-42", logs.All()[0].ContextMap()["user_id"])
}

func TestGinMiddlewareWarnsOnClientError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newGinTestRouter(zap.New(core))

	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestRecoveryCatchesPanic(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newGinTestRouter(zap.New(core))

	r.GET("/boom", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var foundPanic bool
	for _, entry := range logs.All() {
		if entry.Message == "Panic recovered" {
			foundPanic = true
		}
	}
	assert.True(t, foundPanic)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// Without a logger set, a no-op logger is returned
	require.NotNil(t, GetGinLogger(c))

	l := zap.NewNop()
	c.Set("logger", l)
	assert.Same(t, l, GetGinLogger(c))
}
