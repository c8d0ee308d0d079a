package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferedZap(buf *bytes.Buffer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func TestNewZapLogger(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZapLogger(newBufferedZap(&buf), Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	require.NotNil(t, adapter)
	assert.Equal(t, Info, adapter.(*ZapLogger).LogLevel)
	assert.Equal(t, 100*time.Millisecond, adapter.(*ZapLogger).SlowThreshold)
}

func TestZapLogger_LogMode(t *testing.T) {
	logger := NewZapLogger(zap.NewNop(), Config{LogLevel: Error})

	infoLogger := logger.LogMode(Info)
	assert.Equal(t, Info, infoLogger.(*ZapLogger).LogLevel)
	assert.Equal(t, Error, logger.(*ZapLogger).LogLevel)
}

func TestZapLogger_Trace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZapLogger(newBufferedZap(&buf), Config{LogLevel: Info, SlowThreshold: time.Millisecond})

	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "INSERT INTO orders (total) VALUES (10)", 1
	}, nil)
	assert.Contains(t, buf.String(), "INSERT INTO orders")
	assert.Contains(t, buf.String(), `"rows":1`)

	buf.Reset()
	logger.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", -1
	}, nil)
	assert.Contains(t, buf.String(), "SLOW SQL executed")
	assert.NotContains(t, buf.String(), `"rows"`)

	buf.Reset()
	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "DELETE FROM orders", 0
	}, errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	logger.LogMode(Silent).Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 2", 0
	}, nil)
	assert.Empty(t, buf.String())
}

func TestZapLogger_Levels(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZapLogger(newBufferedZap(&buf), Config{LogLevel: Warn})

	logger.Info(ctx, "hidden %d", 1)
	assert.Empty(t, buf.String())

	logger.Warn(ctx, "entity %s has no key", "Order")
	assert.Contains(t, buf.String(), "entity Order has no key")
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, ZapLevel(Error))
	assert.Equal(t, zapcore.WarnLevel, ZapLevel(Warn))
	assert.Equal(t, zapcore.InfoLevel, ZapLevel(Info))
	assert.Equal(t, zapcore.FatalLevel, ZapLevel(Silent))
}

func TestZapLogger_TraceCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(newBufferedZap(&buf), Config{LogLevel: Info})

	ctx := WithCommand(context.Background(), Command{Dialect: "postgres", Kind: "INSERT", Entity: "Sales.Order", InTransaction: true})
	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return `INSERT INTO "orders" ("number") VALUES ('A-1')`, 1
	}, nil)
	assert.Contains(t, buf.String(), `"dialect":"postgres"`)
	assert.Contains(t, buf.String(), `"command":"INSERT"`)
	assert.Contains(t, buf.String(), `"entity":"Sales.Order"`)
	assert.Contains(t, buf.String(), `"tx":"true"`)
}
