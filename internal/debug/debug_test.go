package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func withDebugEnabled(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := EnableDebug
	oldMCP := MCPMode
	EnableDebug = "true"
	MCPMode = false
	buf := &bytes.Buffer{}
	SetDebugOutput(buf)
	t.Cleanup(func() {
		EnableDebug = old
		MCPMode = oldMCP
		SetDebugOutput(nil)
	})
	return buf
}

func TestLogComponents(t *testing.T) {
	buf := withDebugEnabled(t)

	LogScan("scanned %d files\n", 3)
	LogResolve("resolved %s\n", "total")
	LogScope("scope has %d files\n", 2)
	LogWatch("event on %s\n", "main.go")

	out := buf.String()
	for _, want := range []string{"[DEBUG:SCAN]", "[DEBUG:RESOLVE]", "[DEBUG:SCOPE]", "[DEBUG:WATCH]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMCPModeSuppressesOutput(t *testing.T) {
	buf := withDebugEnabled(t)
	SetMCPMode(true)
	defer SetMCPMode(false)

	Printf("should not appear\n")
	LogMCP("should not appear either\n")

	if buf.Len() != 0 {
		t.Errorf("expected no output in MCP mode, got %q", buf.String())
	}
}

func TestIsDebugEnabled_EnvOverride(t *testing.T) {
	old := EnableDebug
	EnableDebug = "false"
	defer func() { EnableDebug = old }()

	os.Setenv("DEBUG", "1")
	defer os.Unsetenv("DEBUG")

	if !IsDebugEnabled() {
		t.Error("DEBUG=1 should enable debug output")
	}
}

func TestFatalReturnsError(t *testing.T) {
	withDebugEnabled(t)

	err := Fatal("bad state: %s", "oops")
	if err == nil {
		t.Fatal("Fatal must return an error")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("error should carry the message, got %v", err)
	}
}

func TestNoOutputWithoutWriter(t *testing.T) {
	old := EnableDebug
	EnableDebug = "true"
	defer func() { EnableDebug = old }()
	SetDebugOutput(nil)

	// Must not panic with a nil writer.
	Printf("goes nowhere\n")
	LogScan("goes nowhere\n")
}
