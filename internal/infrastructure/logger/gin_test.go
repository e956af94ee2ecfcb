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

func serveLogged(t *testing.T, level zapcore.Level, register func(*gin.Engine), method, target string) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	register(engine)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w, recorded
}

func accessLog(t *testing.T, recorded *observer.ObservedLogs) *observer.LoggedEntry {
	t.Helper()
	logs := recorded.All()
	for i := range logs {
		if logs[i].Message == "http request" {
			return &logs[i]
		}
	}
	return nil
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs successful requests at info", func(t *testing.T) {
		w, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/settlements", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) })
		}, http.MethodGet, "/settlements")

		assert.Equal(t, http.StatusOK, w.Code)
		entry := accessLog(t, recorded)
		require.NotNil(t, entry)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)

		fields := make(map[string]zapcore.Field)
		for _, f := range entry.Context {
			fields[f.Key] = f
		}
		assert.Contains(t, fields, "status")
		assert.Contains(t, fields, "latency")
		assert.Contains(t, fields, "client_ip")
		assert.Contains(t, fields, "method")
		assert.Contains(t, fields, "path")
	})

	t.Run("logs 4xx at warn and 5xx at error", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.WarnLevel, func(e *gin.Engine) {
			e.GET("/bad", func(c *gin.Context) { c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false}) })
		}, http.MethodGet, "/bad")
		entry := accessLog(t, recorded)
		require.NotNil(t, entry)
		assert.Equal(t, zapcore.WarnLevel, entry.Level)

		_, recorded = serveLogged(t, zapcore.ErrorLevel, func(e *gin.Engine) {
			e.GET("/boom", func(c *gin.Context) { c.JSON(http.StatusInternalServerError, gin.H{"success": false}) })
		}, http.MethodGet, "/boom")
		entry = accessLog(t, recorded)
		require.NotNil(t, entry)
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	})

	t.Run("captures query string", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/settlements", func(c *gin.Context) { c.Status(http.StatusOK) })
		}, http.MethodGet, "/settlements?status=SUBMITTED&page=2")

		entry := accessLog(t, recorded)
		require.NotNil(t, entry)
		found := false
		for _, f := range entry.Context {
			if f.Key == "query" {
				found = true
				assert.Contains(t, f.String, "status=SUBMITTED")
			}
		}
		assert.True(t, found)
	})

	t.Run("skips health probes", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
			e.GET("/ready", func(c *gin.Context) { c.Status(http.StatusOK) })
		}, http.MethodGet, "/health")

		assert.Nil(t, accessLog(t, recorded))
	})

	t.Run("carries request id and authenticated user", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		core, recorded := observer.New(zapcore.InfoLevel)

		engine := gin.New()
		engine.Use(func(c *gin.Context) {
			c.Set("request_id", "req-778812")
			c.Next()
		})
		engine.Use(GinMiddleware(zap.New(core)))
		engine.GET("/settlements", func(c *gin.Context) {
			c.Set("jwt_user_id", "f2c3a6e1-0000-0000-0000-000000000042")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/settlements", nil)
		engine.ServeHTTP(w, req)

		entry := accessLog(t, recorded)
		require.NotNil(t, entry)
		fields := make(map[string]string)
		for _, f := range entry.Context {
			fields[f.Key] = f.String
		}
		assert.Equal(t, "req-778812", fields["request_id"])
		assert.Equal(t, "f2c3a6e1-0000-0000-0000-000000000042", fields["user_id"])
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) {
		panic("nil settlement line")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	assert.NotPanics(t, func() {
		engine.ServeHTTP(w, req)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "panic recovered", logs[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the request-scoped logger", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)
		var got *zap.Logger

		engine := gin.New()
		engine.Use(GinMiddleware(zap.New(core)))
		engine.GET("/settlements", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/settlements", nil)
		engine.ServeHTTP(w, req)

		assert.NotNil(t, got)
	})

	t.Run("falls back to a no-op logger", func(t *testing.T) {
		var got *zap.Logger
		engine := gin.New()
		engine.GET("/settlements", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/settlements", nil)
		engine.ServeHTTP(w, req)

		require.NotNil(t, got)
		assert.NotPanics(t, func() { got.Info("noop") })
	})
}
