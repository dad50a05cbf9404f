package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
	_, err = New("bogus", EnvProduction)
	assert.Error(t, err)
}

func TestProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput("info", EnvProduction, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Debug("dropped")
	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "v", entry["k"])
	assert.Contains(t, entry, "timestamp")
}

func TestDevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput("debug", EnvDevelopment, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Debug("hello")
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), "DEBUG")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestGinMiddlewareAssignsID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))

	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = RequestID(c)
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	header := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(header)
	require.NoError(t, err)
	assert.Equal(t, header, seen)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, header, fields["request_id"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}

func TestGinMiddlewareKeepsValidIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(GinMiddleware(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid\nforged")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid\nforged", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(GinMiddleware(log), Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Something went wrong!", body["title"])
	assert.Equal(t, "/boom", body["instance"])

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestAuditSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewAuditSink(zap.New(core))

	sink.Emit(context.Background(), tokenauth.AuditEvent{
		Timestamp: time.Now(),
		EventType: "login_success",
		UserID:    "u1",
		IP:        "10.0.0.1",
		Success:   true,
	})
	sink.Emit(context.Background(), tokenauth.AuditEvent{
		Timestamp: time.Now(),
		EventType: "refresh_reuse_detected",
		UserID:    "u1",
		Error:     "refresh_token_revoked",
		Metadata:  map[string]string{"family_revoked": "2"},
	})

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, "audit", all[0].LoggerName)
	assert.Equal(t, "10.0.0.1", all[0].ContextMap()["ip"])

	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
	fields := all[1].ContextMap()
	assert.Equal(t, "refresh_token_revoked", fields["error_code"])
	assert.Equal(t, "2", fields["meta.family_revoked"])
	assert.NotContains(t, fields, "ip")
}
