package main

import (
	"fmt"
	"io"
	"sync"

	"arenamic/internal/domain"
)

// consoleSink prints capture events for the CLI.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

func (c *consoleSink) CaptureStateChanged(state domain.CaptureState, sessionID string) {
	switch state {
	case domain.CaptureStateRecording:
		c.printf("Recording (session %s)...\n", sessionID)
	case domain.CaptureStateStopping:
		c.printf("Stopping...\n")
	}
}

func (c *consoleSink) CaptureFailed(reason domain.FailureReason, detail string) {
	if detail != "" && detail != reason.Guidance() {
		c.printf("Capture failed: %s (%s)\n", reason.Guidance(), detail)
		return
	}
	c.printf("Capture failed: %s\n", reason.Guidance())
}

func (c *consoleSink) TranscriptReady(string) {}

func (c *consoleSink) SystemMessage(text string) {
	c.printf("%s\n", text)
}

func (c *consoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
