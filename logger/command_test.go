package logger

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "", Command{}.String())
	assert.Equal(t, "[sqlite SELECT Customer]", Command{Dialect: "sqlite", Kind: "SELECT", Entity: "Customer"}.String())
	assert.Equal(t, "[mysql DELETE tx]", Command{Dialect: "mysql", Kind: "DELETE", InTransaction: true}.String())

	_, ok := CommandFrom(context.Background())
	assert.False(t, ok)
	c, ok := CommandFrom(WithCommand(context.Background(), Command{Kind: "KEY"}))
	assert.True(t, ok)
	assert.Equal(t, "KEY", c.Kind)
}

func TestDefaultLoggerTraceCommand(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Info})

	ctx := WithCommand(context.Background(), Command{Dialect: "sqlite", Kind: "UPDATE", Entity: "Employee"})
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `UPDATE "employees" SET "name" = 'Grace' WHERE "id" = 5`, 1
	}, nil)
	assert.Contains(t, buf.String(), `[sqlite UPDATE Employee] UPDATE "employees"`)
}
