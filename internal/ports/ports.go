package ports

import (
	"context"
	"io"
	"time"

	"arenamic/internal/domain"
)

// MediaConstraints describes the stream requested from a capture backend.
type MediaConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	ChannelCount     int
	DeviceID         string
}

// DefaultConstraints is the full constraint set used on the native path.
func DefaultConstraints() MediaConstraints {
	return MediaConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SampleRate:       44100,
		ChannelCount:     1,
	}
}

// AudioOnlyConstraints is the fixed request used on the legacy path. Backends
// pick their own format and always use the default device.
func AudioOnlyConstraints() MediaConstraints {
	return MediaConstraints{}
}

// StreamFormat describes the PCM delivered by a MediaStream: signed 16-bit
// little endian, interleaved.
type StreamFormat struct {
	SampleRate int
	Channels   int
}

// MediaTrack is one hardware track of a stream. Stop releases the device and
// is safe to call more than once.
type MediaTrack interface {
	Kind() string
	Label() string
	Stop()
}

// MediaStream is a live capture stream. Read returns io.EOF once every track
// has been stopped and buffered data is drained.
type MediaStream interface {
	io.Reader
	Format() StreamFormat
	Tracks() []MediaTrack
	AudioTracks() []MediaTrack
}

// StreamAcquirer requests a capture stream. It may block until the platform
// grants or refuses access.
type StreamAcquirer interface {
	RequestStream(ctx context.Context, constraints MediaConstraints) (MediaStream, error)
}

// RecorderHandlers receives recorder output. Calls are made from a single
// goroutine in capture order.
type RecorderHandlers struct {
	OnData  func(chunk []byte)
	OnError func(err error)
}

// MediaRecorder encodes a stream into chunks. Stop requests finalization and
// returns immediately; Done is closed once the final chunk was delivered.
type MediaRecorder interface {
	Start(timeslice time.Duration)
	Stop()
	Done() <-chan struct{}
}

// RecorderFactory creates recorders for the encodings it supports. An empty
// mime type selects the platform default encoding.
type RecorderFactory interface {
	IsTypeSupported(mimeType string) bool
	NewRecorder(stream MediaStream, mimeType string, handlers RecorderHandlers) (MediaRecorder, error)
}

// HostEnvironment is what the capability prober inspects.
type HostEnvironment interface {
	Host() string
	SecureContext() bool
	ModernCaptureAvailable() bool
	LegacyCaptureAvailable() bool
	RecorderAvailable() bool
	AudioInputs(ctx context.Context) ([]domain.AudioDevice, error)
}

// Transcriber turns an assembled payload into recognized text.
type Transcriber interface {
	Transcribe(ctx context.Context, payload domain.CapturedPayload) (string, error)
}

// DebateServer is the remote debate backend.
type DebateServer interface {
	VoiceStatus(ctx context.Context) (domain.VoiceStatus, error)
	SubmitArgument(ctx context.Context, argument string) (domain.ArgumentReply, error)
}

// EventSink emits capture state and results to the UI.
type EventSink interface {
	CaptureStateChanged(state domain.CaptureState, sessionID string)
	CaptureFailed(reason domain.FailureReason, detail string)
	TranscriptReady(text string)
	SystemMessage(text string)
}
