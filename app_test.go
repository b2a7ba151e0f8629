package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"arenamic/internal/domain"
	"arenamic/internal/usecase"
)

func TestStateMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.CaptureState]string{
		domain.CaptureStateIdle:       "Hold to speak",
		domain.CaptureStateRequesting: "Requesting microphone...",
		domain.CaptureStateRecording:  "Recording... release to send",
		domain.CaptureStateStopping:   "Processing...",
		domain.CaptureStateFailed:     "Recording failed",
	}
	for state, want := range cases {
		state := state
		want := want
		t.Run(string(state), func(t *testing.T) {
			t.Parallel()
			if got := stateMessage(state); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := stateMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown state message, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.CaptureStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.CaptureStateFailed || status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestRefreshVoiceStatus(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	full := domain.CapabilityReport{HasModernCaptureAPI: true, HasRecorderAPI: true, IsSecureOrLocalContext: true}
	cases := []struct {
		name    string
		status  domain.VoiceStatus
		err     error
		report  domain.CapabilityReport
		enabled bool
		message string
	}{
		{name: "enabled", status: domain.VoiceStatus{VoiceRecordingAvailable: &yes}, report: full, enabled: true},
		{name: "transport error", err: errors.New("dial tcp: refused"), report: full, message: "Could not check voice status"},
		{name: "missing field", status: domain.VoiceStatus{TTSAvailable: true}, report: full, message: "Voice recording is not available on this server"},
		{name: "server disabled", status: domain.VoiceStatus{VoiceRecordingAvailable: &no}, report: full, message: "Voice recording is not available on this server"},
		{
			name:    "no recorder",
			status:  domain.VoiceStatus{VoiceRecordingAvailable: &yes},
			report:  domain.CapabilityReport{HasModernCaptureAPI: true},
			message: domain.FailureRecorderUnsupported.Guidance(),
		},
		{
			name:    "no capture api",
			status:  domain.VoiceStatus{VoiceRecordingAvailable: &yes},
			report:  domain.CapabilityReport{HasRecorderAPI: true},
			message: domain.FailureAPIUnsupported.Guidance(),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			app, emitter := newTestApp(&fakeController{report: tc.report}, &fakeDebateClient{status: tc.status, err: tc.err})
			app.refreshVoiceStatus(context.Background())

			if app.voiceEnabled != tc.enabled || app.voiceMessage != tc.message {
				t.Fatalf("unexpected voice state: enabled=%v message=%q", app.voiceEnabled, app.voiceMessage)
			}
			names := emitter.names()
			if names[0] != eventVoiceStatus {
				t.Fatalf("expected voice status event first, got %v", names)
			}
			disabledSent := len(names) == 2 && names[1] == eventVoiceDisabled
			if disabledSent == tc.enabled {
				t.Fatalf("voice disabled event mismatch: %v", names)
			}
		})
	}
}

func TestBeginCaptureRequiresVoice(t *testing.T) {
	t.Parallel()

	controller := &fakeController{}
	app, _ := newTestApp(controller, &fakeDebateClient{})
	if _, err := app.BeginCapture(); !errors.Is(err, ErrVoiceUnavailable) {
		t.Fatalf("expected ErrVoiceUnavailable, got %v", err)
	}
	if controller.begins != 0 {
		t.Fatalf("controller must not be called while voice is disabled")
	}
}

func TestBeginCaptureInProgressIsNoop(t *testing.T) {
	t.Parallel()

	controller := &fakeController{beginErr: usecase.ErrCaptureInProgress, status: domain.Status{State: domain.CaptureStateRecording, Active: true}}
	app, _ := newTestApp(controller, &fakeDebateClient{})
	app.voiceEnabled = true

	status, err := app.BeginCapture()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if status.State != domain.CaptureStateRecording {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestBeginCaptureReturnsCaptureError(t *testing.T) {
	t.Parallel()

	captureErr := domain.NewCaptureError(domain.FailureDeviceBusy, "", nil)
	app, _ := newTestApp(&fakeController{beginErr: captureErr}, &fakeDebateClient{})
	app.voiceEnabled = true

	if _, err := app.BeginCapture(); !errors.Is(err, captureErr) {
		t.Fatalf("expected capture error, got %v", err)
	}
}

func TestEndCaptureWithoutSessionIsNoop(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(&fakeController{endErr: usecase.ErrNoActiveSession}, &fakeDebateClient{})
	app.voiceEnabled = true

	result, err := app.EndCapture()
	if err != nil || result.Text != "" {
		t.Fatalf("expected empty no-op result, got %+v %v", result, err)
	}
}

func TestAbortCaptureWithoutSessionIsNoop(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(&fakeController{abortErr: usecase.ErrNoActiveSession}, &fakeDebateClient{})
	if err := app.AbortCapture(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestSubmitArgumentUsesServer(t *testing.T) {
	t.Parallel()

	client := &fakeDebateClient{reply: domain.ArgumentReply{AIResponse: "Counterpoint", Theme: "objective"}}
	app, _ := newTestApp(&fakeController{}, client)

	reply, err := app.SubmitArgument("homework is useful")
	if err != nil || reply.AIResponse != "Counterpoint" {
		t.Fatalf("unexpected reply: %+v %v", reply, err)
	}
	if client.lastArgument != "homework is useful" {
		t.Fatalf("unexpected argument: %q", client.lastArgument)
	}
}

func TestEventSinkEmitsUIEvents(t *testing.T) {
	t.Parallel()

	app, emitter := newTestApp(&fakeController{}, &fakeDebateClient{})
	app.CaptureStateChanged(domain.CaptureStateRecording, "s-1")
	app.CaptureFailed(domain.FailureDeviceBusy, "device in use")
	app.TranscriptReady("we should")
	app.SystemMessage("Transcription failed")

	events := emitter.snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	state := events[0].data.(map[string]string)
	if events[0].name != eventCapture || state["state"] != "recording" || state["sessionId"] != "s-1" {
		t.Fatalf("unexpected state event: %+v", events[0])
	}
	failure := events[1].data.(map[string]string)
	if events[1].name != eventCaptureError || failure["message"] != domain.FailureDeviceBusy.Guidance() || failure["detail"] != "device in use" {
		t.Fatalf("unexpected failure event: %+v", events[1])
	}
	if events[2].name != eventTranscript || events[3].name != eventSystem {
		t.Fatalf("unexpected event order: %v", emitter.names())
	}
}

func TestEventsAreDroppedWithoutContext(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	app := &App{emit: emitter.emit}
	app.SystemMessage("ignored")
	if len(emitter.snapshot()) != 0 {
		t.Fatalf("expected no events before startup")
	}
}

func newTestApp(controller *fakeController, client *fakeDebateClient) (*App, *recordingEmitter) {
	emitter := &recordingEmitter{}
	return &App{
		ctx:        context.Background(),
		emit:       emitter.emit,
		controller: controller,
		server:     client,
	}, emitter
}

type emittedEvent struct {
	name string
	data interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *recordingEmitter) emit(_ context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload interface{}
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, emittedEvent{name: name, data: payload})
}

func (r *recordingEmitter) snapshot() []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emittedEvent(nil), r.events...)
}

func (r *recordingEmitter) names() []string {
	var names []string
	for _, event := range r.snapshot() {
		names = append(names, event.name)
	}
	return names
}

type fakeController struct {
	report   domain.CapabilityReport
	status   domain.Status
	beginErr error
	endErr   error
	abortErr error
	begins   int
}

func (f *fakeController) Begin(context.Context) error {
	f.begins++
	return f.beginErr
}

func (f *fakeController) End(context.Context) (domain.TranscriptionResult, error) {
	return domain.TranscriptionResult{}, f.endErr
}

func (f *fakeController) Abort() error                          { return f.abortErr }
func (f *fakeController) Status() domain.Status                 { return f.status }
func (f *fakeController) Capabilities() domain.CapabilityReport { return f.report }

type fakeDebateClient struct {
	status       domain.VoiceStatus
	err          error
	reply        domain.ArgumentReply
	lastArgument string
}

func (f *fakeDebateClient) VoiceStatus(context.Context) (domain.VoiceStatus, error) {
	return f.status, f.err
}

func (f *fakeDebateClient) StartDebate(context.Context, string, string, string) (domain.ArgumentReply, error) {
	return f.reply, nil
}

func (f *fakeDebateClient) SubmitArgument(_ context.Context, argument string) (domain.ArgumentReply, error) {
	f.lastArgument = argument
	return f.reply, nil
}
