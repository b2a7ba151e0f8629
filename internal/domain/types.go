package domain

import "time"

// CaptureState models the lifecycle of one voice capture attempt.
type CaptureState string

const (
	CaptureStateIdle       CaptureState = "idle"
	CaptureStateRequesting CaptureState = "requesting"
	CaptureStateRecording  CaptureState = "recording"
	CaptureStateStopping   CaptureState = "stopping"
	CaptureStateFailed     CaptureState = "failed"
)

// FailureReason identifies why a capture attempt did not produce a transcript.
type FailureReason string

const (
	FailureAPIUnsupported           FailureReason = "api_unsupported"
	FailureInsecureContext          FailureReason = "insecure_context"
	FailureRecorderUnsupported      FailureReason = "recorder_unsupported"
	FailurePermissionDenied         FailureReason = "permission_denied"
	FailureDeviceNotFound           FailureReason = "device_not_found"
	FailureDeviceBusy               FailureReason = "device_busy"
	FailureConstraintsUnsatisfiable FailureReason = "constraints_unsatisfiable"
	FailureSecurityError            FailureReason = "security_error"
	FailureNoAudioTrack             FailureReason = "no_audio_track"
	FailureRecorderError            FailureReason = "recorder_error"
	FailureEmptyCapture             FailureReason = "empty_capture"
	FailureTranscriptionFailed      FailureReason = "transcription_failed"
	FailureUnknown                  FailureReason = "unknown"
)

// AudioDevice describes one audio input found during enumeration.
type AudioDevice struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// CapabilityReport is the immutable result of probing the host once at startup.
type CapabilityReport struct {
	HasModernCaptureAPI      bool `json:"hasModernCaptureAPI"`
	HasLegacyCaptureAPI      bool `json:"hasLegacyCaptureAPI"`
	HasRecorderAPI           bool `json:"hasRecorderAPI"`
	IsSecureOrLocalContext   bool `json:"isSecureOrLocalContext"`
	AvailableAudioInputCount int  `json:"availableAudioInputCount"`

	Host            string        `json:"host,omitempty"`
	IsSecureContext bool          `json:"isSecureContext"`
	IsLocalHost     bool          `json:"isLocalHost"`
	AudioInputs     []AudioDevice `json:"audioInputs,omitempty"`
	ProbedAt        time.Time     `json:"probedAt"`
}

// VoiceCaptureFeasible reports whether capture should be offered at all.
func (r CapabilityReport) VoiceCaptureFeasible() bool {
	return r.HasRecorderAPI && (r.HasModernCaptureAPI || r.HasLegacyCaptureAPI)
}

// CapturedPayload is the assembled audio of one completed capture session.
type CapturedPayload struct {
	Bytes          []byte `json:"-"`
	MimeType       string `json:"mimeType"`
	ByteLength     int    `json:"byteLength"`
	Filename       string `json:"filename"`
	SourceEncoding string `json:"sourceEncoding"`
}

// TranscriptionResult is returned once a capture has been transcribed.
type TranscriptionResult struct {
	Text    string          `json:"text"`
	Payload CapturedPayload `json:"payload"`
}

// VoiceStatus mirrors the debate server capability check. A nil
// VoiceRecordingAvailable means the server omitted the field.
type VoiceStatus struct {
	VoiceRecordingAvailable *bool `json:"voice_recording_available,omitempty"`
	TTSAvailable            bool  `json:"tts_available"`
}

// RecordingEnabled reports whether the server allows voice submissions.
func (s VoiceStatus) RecordingEnabled() bool {
	return s.VoiceRecordingAvailable != nil && *s.VoiceRecordingAvailable
}

// ArgumentReply is the AI opponent's answer to a submitted argument.
type ArgumentReply struct {
	AIResponse string `json:"ai_response"`
	Theme      string `json:"theme"`
}

// Status summarizes the current capture status for the UI.
type Status struct {
	State     CaptureState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Encoding  string       `json:"encoding,omitempty"`
	Message   string       `json:"message,omitempty"`
}
