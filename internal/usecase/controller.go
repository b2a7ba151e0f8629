package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/ports"
)

var log = logging.L("capture")

var (
	ErrNoActiveSession   = errors.New("no active recording session")
	ErrCaptureInProgress = errors.New("capture already in progress")
)

// DefaultEncodings is the recorder encoding priority: Opus with a codec
// hint, generic Ogg, then whatever the recorder picks by default.
var DefaultEncodings = []string{"audio/ogg;codecs=opus", "audio/ogg", ""}

// Config controls capture behavior.
type Config struct {
	Constraints ports.MediaConstraints
	// Encodings is tried in order. Nil means DefaultEncodings.
	Encodings         []string
	Timeslice         time.Duration
	PermissionTimeout time.Duration
	StopGrace         time.Duration
}

// CaptureController runs at most one capture session at a time through
// Idle, Requesting, Recording and Stopping.
type CaptureController struct {
	report    domain.CapabilityReport
	modern    ports.StreamAcquirer
	legacy    ports.StreamAcquirer
	recorders ports.RecorderFactory
	assembler payloadAssembler
	events    ports.EventSink
	cfg       Config
	newID     func() string

	mu          sync.Mutex
	current     *captureSession
	lastMessage string
}

func NewCaptureController(
	report domain.CapabilityReport,
	modern ports.StreamAcquirer,
	legacy ports.StreamAcquirer,
	recorders ports.RecorderFactory,
	transcriber ports.Transcriber,
	events ports.EventSink,
	cfg Config,
) *CaptureController {
	if cfg.Encodings == nil {
		cfg.Encodings = DefaultEncodings
	}
	if cfg.Timeslice <= 0 {
		cfg.Timeslice = time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	if cfg.Constraints == (ports.MediaConstraints{}) {
		cfg.Constraints = ports.DefaultConstraints()
	}
	return &CaptureController{
		report:    report,
		modern:    modern,
		legacy:    legacy,
		recorders: recorders,
		assembler: newPayloadAssembler(transcriber),
		events:    events,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

// Begin starts a capture session. It returns ErrCaptureInProgress without
// side effects while another session exists, and a *domain.CaptureError when
// the attempt fails.
func (c *CaptureController) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.current != nil {
		state := c.current.getState()
		c.mu.Unlock()
		log.Info("begin signal ignored", logging.KeyState, state)
		return ErrCaptureInProgress
	}

	acquirer, constraints, err := c.preflight()
	if err != nil {
		c.lastMessage = err.Message()
		c.mu.Unlock()
		log.Warn("capture preflight failed", logging.KeyReason, err.Reason, "detail", err.Detail)
		c.events.CaptureStateChanged(domain.CaptureStateFailed, "")
		c.events.CaptureFailed(err.Reason, err.Message())
		c.events.CaptureStateChanged(domain.CaptureStateIdle, "")
		return err
	}

	session := newCaptureSession(c.newID())
	c.current = session
	c.lastMessage = ""
	c.mu.Unlock()

	sessionLog := logging.WithSession(log, session.id)
	sessionLog.Info("requesting microphone")
	c.events.CaptureStateChanged(domain.CaptureStateRequesting, session.id)

	stream, acquireErr := acquireWithin(ctx, acquirer, constraints, c.cfg.PermissionTimeout)
	if acquireErr != nil {
		return c.abandon(session, classifyAcquireError(acquireErr))
	}
	session.attach(stream)

	if len(stream.AudioTracks()) == 0 {
		session.releaseTracks()
		return c.abandon(session, domain.NewCaptureError(domain.FailureNoAudioTrack, "", nil))
	}

	encoding, ok := c.selectEncoding()
	if !ok {
		session.releaseTracks()
		return c.abandon(session, domain.NewCaptureError(domain.FailureRecorderUnsupported, "no configured encoding is supported", nil))
	}

	recorder, err2 := c.recorders.NewRecorder(stream, encoding, ports.RecorderHandlers{
		OnData:  session.appendChunk,
		OnError: func(err error) { c.handleRecorderError(session, err) },
	})
	if err2 != nil {
		session.releaseTracks()
		return c.abandon(session, domain.NewCaptureError(domain.FailureRecorderError, err2.Error(), err2))
	}

	if !session.startRecording(recorder, encoding) {
		session.releaseTracks()
		return c.abandon(session, domain.NewCaptureError(domain.FailureUnknown, "session ended while requesting", nil))
	}
	recorder.Start(c.cfg.Timeslice)

	sessionLog.Info("recording started", "encoding", encodingLabel(encoding), "tracks", len(stream.AudioTracks()))
	c.events.CaptureStateChanged(domain.CaptureStateRecording, session.id)
	return nil
}

// End stops recording, assembles the captured audio and transcribes it.
func (c *CaptureController) End(ctx context.Context) (domain.TranscriptionResult, error) {
	session := c.getCurrent()
	if session == nil || !session.transition(domain.CaptureStateRecording, domain.CaptureStateStopping) {
		log.Info("end signal ignored: no recording session")
		return domain.TranscriptionResult{}, ErrNoActiveSession
	}
	sessionLog := logging.WithSession(log, session.id)
	c.events.CaptureStateChanged(domain.CaptureStateStopping, session.id)

	recorder := session.getRecorder()
	recorder.Stop()
	session.releaseTracks()

	if err := waitForStop(ctx, recorder.Done(), c.cfg.StopGrace); err != nil {
		session.discardChunks()
		return domain.TranscriptionResult{}, c.abandon(session, domain.NewCaptureError(domain.FailureRecorderError, err.Error(), err))
	}
	if recErr := session.getRecorderErr(); recErr != nil {
		session.discardChunks()
		return domain.TranscriptionResult{}, c.abandon(session, domain.NewCaptureError(domain.FailureRecorderError, recErr.Error(), recErr))
	}

	chunks := session.takeChunks()
	encoding := session.getEncoding()
	c.release(session, domain.CaptureStateIdle)
	sessionLog.Info("recording stopped", "chunks", len(chunks))

	payload, err := Assemble(chunks, encodingLabel(encoding))
	if err != nil {
		captureErr := asCaptureError(err)
		sessionLog.Warn("capture produced no audio")
		c.setLastMessage(captureErr.Message())
		c.events.CaptureFailed(captureErr.Reason, captureErr.Message())
		return domain.TranscriptionResult{}, captureErr
	}

	sessionLog.Info("transcribing capture", "bytes", payload.ByteLength, "sourceEncoding", payload.SourceEncoding)
	text, err := c.assembler.Deliver(ctx, payload)
	if err != nil {
		captureErr := asCaptureError(err)
		sessionLog.Warn("transcription failed", logging.KeyError, err)
		c.setLastMessage(captureErr.Reason.Guidance())
		c.events.SystemMessage(captureErr.Reason.Guidance())
		return domain.TranscriptionResult{}, captureErr
	}

	c.events.TranscriptReady(text)
	return domain.TranscriptionResult{Text: text, Payload: payload}, nil
}

// Abort discards a recording session without transcription.
func (c *CaptureController) Abort() error {
	session := c.getCurrent()
	if session == nil || !session.transition(domain.CaptureStateRecording, domain.CaptureStateStopping) {
		return ErrNoActiveSession
	}
	c.events.CaptureStateChanged(domain.CaptureStateStopping, session.id)

	recorder := session.getRecorder()
	recorder.Stop()
	session.releaseTracks()
	if err := waitForStop(context.Background(), recorder.Done(), c.cfg.StopGrace); err != nil {
		log.Warn("recorder did not stop after abort", logging.KeySessionID, session.id, logging.KeyError, err)
	}
	session.discardChunks()
	c.release(session, domain.CaptureStateIdle)
	logging.WithSession(log, session.id).Info("recording discarded")
	return nil
}

// Status returns the current capture status.
func (c *CaptureController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.CaptureStateIdle, Message: c.lastMessage}
	}
	status := domain.Status{
		State:     c.current.getState(),
		Active:    true,
		SessionID: c.current.id,
	}
	if c.current.getRecorder() != nil {
		status.Encoding = encodingLabel(c.current.getEncoding())
	}
	return status
}

// Capabilities returns the report the controller was built with.
func (c *CaptureController) Capabilities() domain.CapabilityReport {
	return c.report
}

func (c *CaptureController) preflight() (ports.StreamAcquirer, ports.MediaConstraints, *domain.CaptureError) {
	var acquirer ports.StreamAcquirer
	var constraints ports.MediaConstraints
	switch {
	case c.report.HasModernCaptureAPI && c.modern != nil:
		acquirer, constraints = c.modern, c.cfg.Constraints
	case c.report.HasLegacyCaptureAPI && c.legacy != nil:
		acquirer, constraints = c.legacy, ports.AudioOnlyConstraints()
	default:
		return nil, constraints, domain.NewCaptureError(domain.FailureAPIUnsupported, "", nil)
	}
	if !c.report.IsSecureOrLocalContext {
		return nil, constraints, domain.NewCaptureError(domain.FailureInsecureContext, "", nil)
	}
	if !c.report.HasRecorderAPI || c.recorders == nil {
		return nil, constraints, domain.NewCaptureError(domain.FailureRecorderUnsupported, "", nil)
	}
	return acquirer, constraints, nil
}

func (c *CaptureController) selectEncoding() (string, bool) {
	for _, encoding := range c.cfg.Encodings {
		if c.recorders.IsTypeSupported(encoding) {
			return encoding, true
		}
	}
	return "", false
}

// handleRecorderError runs on the recorder goroutine. While recording it
// fails the session; while stopping it leaves the verdict to End.
func (c *CaptureController) handleRecorderError(session *captureSession, err error) {
	if !session.transition(domain.CaptureStateRecording, domain.CaptureStateStopping) {
		session.setRecorderErr(err)
		return
	}
	c.events.CaptureStateChanged(domain.CaptureStateStopping, session.id)
	session.releaseTracks()
	session.discardChunks()
	_ = c.abandon(session, domain.NewCaptureError(domain.FailureRecorderError, err.Error(), err))
}

// abandon fails the session and returns the controller to Idle.
func (c *CaptureController) abandon(session *captureSession, err *domain.CaptureError) error {
	logging.WithSession(log, session.id).Warn("capture failed", logging.KeyReason, err.Reason, logging.KeyError, err)
	c.setLastMessage(err.Message())
	c.release(session, domain.CaptureStateFailed)
	c.events.CaptureFailed(err.Reason, err.Message())
	c.events.CaptureStateChanged(domain.CaptureStateIdle, session.id)
	return err
}

// release detaches the session from the controller and reports state.
func (c *CaptureController) release(session *captureSession, state domain.CaptureState) {
	session.setState(state)
	c.mu.Lock()
	if c.current == session {
		c.current = nil
	}
	c.mu.Unlock()
	c.events.CaptureStateChanged(state, session.id)
}

func (c *CaptureController) getCurrent() *captureSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CaptureController) setLastMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMessage = message
}

func asCaptureError(err error) *domain.CaptureError {
	var captureErr *domain.CaptureError
	if errors.As(err, &captureErr) {
		return captureErr
	}
	return domain.NewCaptureError(domain.FailureUnknown, "", err)
}

func encodingLabel(encoding string) string {
	if encoding == "" {
		return "default"
	}
	return encoding
}
