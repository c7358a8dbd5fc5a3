package authsync

import (
	"fmt"
	"strings"
)

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print(line("[DBG] AUTHSYNC ", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print(line("[INF] AUTHSYNC ", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print(line("[WRN] AUTHSYNC ", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print(line("[ERR] AUTHSYNC ", msg, args...))
}

// line renders key/value pairs after the message. A trailing key without a
// value is printed as is.
func line(prefix, msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	b.WriteString("\n")
	return b.String()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

// DefaultLogger writes to stdout with level prefixes.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
