package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLogger_DevEnvironment проверяет создание логгера для dev окружения
func TestNewLogger_DevEnvironment(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("dev", "debug", "test-service", WithOutput(&buf))
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Info("Test message")
	log.With(String("test", "value")).Info("Test message with field")

	out := buf.String()
	assert.Contains(t, out, "Test message")
	assert.Contains(t, out, "test-service")
	// консольный формат, не JSON
	assert.False(t, strings.HasPrefix(out, "{"))
}

// TestNewLogger_ProdEnvironment проверяет JSON формат для prod окружения
func TestNewLogger_ProdEnvironment(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("prod", "info", "test-service", WithOutput(&buf))
	require.NoError(t, err)

	log.Info("Test message", Int("port", 8000))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Test message", entry["msg"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "prod", entry["environment"])
	assert.Equal(t, float64(8000), entry["port"])
}

// TestNewLogger_ConsoleFormat проверяет явный консольный формат вне dev
func TestNewLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("prod", "info", "test-service", WithOutput(&buf), WithFormat("console"))
	require.NoError(t, err)

	log.Info("console line")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

// TestLogger_Levels проверяет фильтрацию по уровню логирования
func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("prod", "warn", "test-service", WithOutput(&buf))
	require.NoError(t, err)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

// TestLogger_UnknownLevel проверяет, что неизвестный уровень сводится к info
func TestLogger_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("prod", "verbose", "test-service", WithOutput(&buf))
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

// TestFields проверяет конструкторы полей
func TestFields(t *testing.T) {
	assert.Equal(t, "key", String("key", "v").Key)
	assert.Equal(t, "n", Int64("n", 1).Key)
	assert.Equal(t, "f", Float64("f", 1.5).Key)
	assert.Equal(t, "b", Bool("b", true).Key)
	assert.Equal(t, "d", Duration("d", time.Second).Key)
	assert.Equal(t, "a", Any("a", []int{1}).Key)
	assert.Equal(t, "error", Error(errors.New("boom")).Key)
	assert.Equal(t, "nil", Error(nil).String)
}

// TestCtxField проверяет извлечение request_id из контекста
func TestCtxField(t *testing.T) {
	assert.Equal(t, "unknown", CtxField(context.Background()).String)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
	assert.Equal(t, "req-1", CtxField(ctx).String)
}

// TestNewNop проверяет no-op логгер
func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("nothing")
	log.With(String("k", "v")).Error("nothing")
	assert.NoError(t, log.Sync())
}
