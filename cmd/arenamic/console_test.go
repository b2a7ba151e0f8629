package main

import (
	"bytes"
	"strings"
	"testing"

	"arenamic/internal/domain"
)

func TestConsoleSinkPrintsCaptureProgress(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sink := newConsoleSink(&out)
	sink.CaptureStateChanged(domain.CaptureStateRequesting, "s-1")
	sink.CaptureStateChanged(domain.CaptureStateRecording, "s-1")
	sink.CaptureStateChanged(domain.CaptureStateStopping, "s-1")
	sink.CaptureStateChanged(domain.CaptureStateIdle, "s-1")
	sink.TranscriptReady("not printed")

	want := "Recording (session s-1)...\nStopping...\n"
	if out.String() != want {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestConsoleSinkPrintsFailureGuidance(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sink := newConsoleSink(&out)
	sink.CaptureFailed(domain.FailureDeviceBusy, "device in use")
	sink.CaptureFailed(domain.FailureEmptyCapture, "")
	sink.SystemMessage("Transcription failed. Please try again or type your argument.")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out.String())
	}
	if lines[0] != "Capture failed: "+domain.FailureDeviceBusy.Guidance()+" (device in use)" {
		t.Fatalf("unexpected failure line: %q", lines[0])
	}
	if lines[1] != "Capture failed: "+domain.FailureEmptyCapture.Guidance() {
		t.Fatalf("unexpected empty capture line: %q", lines[1])
	}
}

func TestCommandsRegistered(t *testing.T) {
	t.Parallel()

	want := map[string]bool{"probe": false, "record": false, "status": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
	if recordCmd.Flags().Lookup("seconds") == nil {
		t.Fatalf("record should accept --seconds")
	}
}
