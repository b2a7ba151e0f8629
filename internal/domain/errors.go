package domain

import "strings"

// CaptureError carries a FailureReason through ordinary error returns.
type CaptureError struct {
	Reason FailureReason
	Detail string
	Err    error
}

// NewCaptureError builds a CaptureError for reason.
func NewCaptureError(reason FailureReason, detail string, err error) *CaptureError {
	return &CaptureError{Reason: reason, Detail: detail, Err: err}
}

func (e *CaptureError) Error() string {
	parts := []string{string(e.Reason)}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is matches another CaptureError with the same reason, so callers can write
// errors.Is(err, &CaptureError{Reason: FailureEmptyCapture}).
func (e *CaptureError) Is(target error) bool {
	t, ok := target.(*CaptureError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// Message returns the most specific human readable text available.
func (e *CaptureError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason.Guidance()
}

// Platform error names reported by capture backends.
const (
	ErrNameNotAllowed             = "NotAllowedError"
	ErrNamePermissionDenied       = "PermissionDeniedError"
	ErrNameNotFound               = "NotFoundError"
	ErrNameDevicesNotFound        = "DevicesNotFoundError"
	ErrNameNotReadable            = "NotReadableError"
	ErrNameTrackStart             = "TrackStartError"
	ErrNameAbort                  = "AbortError"
	ErrNameOverconstrained        = "OverconstrainedError"
	ErrNameConstraintNotSatisfied = "ConstraintNotSatisfiedError"
	ErrNameSecurity               = "SecurityError"
	ErrNameType                   = "TypeError"
	ErrNameNotSupported           = "NotSupportedError"
)

// PlatformError is a failure reported by a capture backend, named after the
// platform error classes listed above.
type PlatformError struct {
	Name    string
	Message string
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// Guidance returns the user-facing advice for a failure reason.
func (r FailureReason) Guidance() string {
	switch r {
	case FailureAPIUnsupported:
		return "No microphone capture support found. Install ffmpeg or use a build with native audio."
	case FailureInsecureContext:
		return "Microphone requires a secure connection. Use https or run the server locally."
	case FailureRecorderUnsupported:
		return "No audio encoder is available. Enable at least one encoding."
	case FailurePermissionDenied:
		return "Microphone access denied. Allow microphone access for arenamic in your system settings."
	case FailureDeviceNotFound:
		return "No microphone found. Please connect a microphone."
	case FailureDeviceBusy:
		return "Microphone is being used by another application. Close other apps using the microphone."
	case FailureConstraintsUnsatisfiable:
		return "Microphone doesn't support the required settings. Try a different microphone."
	case FailureSecurityError:
		return "Security error. Use https or a local server."
	case FailureNoAudioTrack:
		return "No audio tracks available. Please check your microphone."
	case FailureRecorderError:
		return "Recording error. Please try again."
	case FailureEmptyCapture:
		return "No audio recorded. Please try holding the button longer."
	case FailureTranscriptionFailed:
		return "Transcription failed. Please try again or type your argument."
	default:
		return "Could not start recording."
	}
}
