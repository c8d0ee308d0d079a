package logger

import (
	"context"
	"strings"
)

// Command describes the statement a trace belongs to
type Command struct {
	Dialect       string
	Entity        string
	Kind          string
	InTransaction bool
}

type commandKey struct{}

// WithCommand returns ctx carrying c
func WithCommand(ctx context.Context, c Command) context.Context {
	return context.WithValue(ctx, commandKey{}, c)
}

// CommandFrom returns the command stored by WithCommand
func CommandFrom(ctx context.Context) (Command, bool) {
	if ctx == nil {
		return Command{}, false
	}
	c, ok := ctx.Value(commandKey{}).(Command)
	return c, ok
}

// Fields lists the non empty attributes as key/value pairs
func (c Command) Fields() [][2]string {
	var fields [][2]string
	if c.Dialect != "" {
		fields = append(fields, [2]string{"dialect", c.Dialect})
	}
	if c.Kind != "" {
		fields = append(fields, [2]string{"command", c.Kind})
	}
	if c.Entity != "" {
		fields = append(fields, [2]string{"entity", c.Entity})
	}
	if c.InTransaction {
		fields = append(fields, [2]string{"tx", "true"})
	}
	return fields
}

// String formats the command as "[dialect command entity tx]"
func (c Command) String() string {
	fields := c.Fields()
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f[0] == "tx" {
			parts = append(parts, "tx")
			continue
		}
		parts = append(parts, f[1])
	}
	return "[" + strings.Join(parts, " ") + "]"
}
