package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCaptureErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := errors.New("device in use")
	err := NewCaptureError(FailureDeviceBusy, "hw:0", cause)
	if err.Error() != "device_busy: hw:0: device in use" {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if err.Message() != "hw:0" {
		t.Fatalf("expected detail message, got %q", err.Message())
	}

	bare := NewCaptureError(FailureEmptyCapture, "", nil)
	if bare.Error() != "empty_capture" || bare.Message() != FailureEmptyCapture.Guidance() {
		t.Fatalf("unexpected bare error: %q %q", bare.Error(), bare.Message())
	}
}

func TestCaptureErrorIsMatchesReason(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("begin: %w", NewCaptureError(FailurePermissionDenied, "", nil))
	if !errors.Is(err, &CaptureError{Reason: FailurePermissionDenied}) {
		t.Fatalf("expected reason match")
	}
	if errors.Is(err, &CaptureError{Reason: FailureDeviceBusy}) {
		t.Fatalf("unexpected match on different reason")
	}
}

func TestGuidanceCoversEveryReason(t *testing.T) {
	t.Parallel()

	reasons := []FailureReason{
		FailureAPIUnsupported, FailureInsecureContext, FailureRecorderUnsupported,
		FailurePermissionDenied, FailureDeviceNotFound, FailureDeviceBusy,
		FailureConstraintsUnsatisfiable, FailureSecurityError, FailureNoAudioTrack,
		FailureRecorderError, FailureEmptyCapture, FailureTranscriptionFailed,
	}
	seen := map[string]FailureReason{}
	for _, reason := range reasons {
		guidance := reason.Guidance()
		if guidance == FailureUnknown.Guidance() {
			t.Fatalf("%s falls back to the unknown guidance", reason)
		}
		if other, ok := seen[guidance]; ok {
			t.Fatalf("%s and %s share guidance %q", reason, other, guidance)
		}
		seen[guidance] = reason
	}
	if FailureReason("mystery").Guidance() != "Could not start recording." {
		t.Fatalf("unexpected unknown guidance")
	}
}

func TestPlatformErrorText(t *testing.T) {
	t.Parallel()

	if got := (&PlatformError{Name: ErrNameNotFound}).Error(); got != "NotFoundError" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := (&PlatformError{Name: ErrNameAbort, Message: "stalled"}).Error(); got != "AbortError: stalled" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestVoiceStatusRecordingEnabled(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	if (VoiceStatus{}).RecordingEnabled() {
		t.Fatalf("missing field must disable recording")
	}
	if (VoiceStatus{VoiceRecordingAvailable: &no}).RecordingEnabled() {
		t.Fatalf("false must disable recording")
	}
	if !(VoiceStatus{VoiceRecordingAvailable: &yes}).RecordingEnabled() {
		t.Fatalf("true must enable recording")
	}
}

func TestVoiceCaptureFeasible(t *testing.T) {
	t.Parallel()

	if (CapabilityReport{HasModernCaptureAPI: true}).VoiceCaptureFeasible() {
		t.Fatalf("recorder is required")
	}
	if !(CapabilityReport{HasLegacyCaptureAPI: true, HasRecorderAPI: true}).VoiceCaptureFeasible() {
		t.Fatalf("legacy path plus recorder should be feasible")
	}
}
