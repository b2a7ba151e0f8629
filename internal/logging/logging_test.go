package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("capture")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("capture started", "encoding", "audio/ogg;codecs=opus")

	out := buf.String()
	if !strings.Contains(out, `msg="capture started"`) {
		t.Fatalf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=capture") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, `encoding=audio/ogg;codecs=opus`) {
		t.Fatalf("expected encoding field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("capture")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestJSONFormatAndSessionField(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "debug", &buf)

	WithSession(L("usecase"), "abc").Debug("chunk")

	out := buf.String()
	if !strings.Contains(out, `"sessionId":"abc"`) {
		t.Fatalf("expected json session field, got: %s", out)
	}
	if !strings.Contains(out, `"component":"usecase"`) {
		t.Fatalf("expected json component field, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestOutputWithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arenamic.log")
	w, closer := Output(path)
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOutputWithoutFile(t *testing.T) {
	t.Parallel()

	_, closer := Output("  ")
	if err := closer.Close(); err != nil {
		t.Fatalf("expected nop closer, got %v", err)
	}
}
