package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"arenamic/internal/bootstrap"
	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/usecase"
)

const (
	eventCapture       = "capture:state"
	eventCaptureError  = "capture:error"
	eventTranscript    = "capture:transcript"
	eventSystem        = "capture:system"
	eventVoiceStatus   = "voice:status"
	eventVoiceDisabled = "voice:disabled"
)

// ErrVoiceUnavailable is returned by capture methods when voice input is
// disabled for this run.
var ErrVoiceUnavailable = errors.New("voice recording is not available")

var log = logging.L("app")

type debateClient interface {
	VoiceStatus(ctx context.Context) (domain.VoiceStatus, error)
	StartDebate(ctx context.Context, topic, side, theme string) (domain.ArgumentReply, error)
	SubmitArgument(ctx context.Context, argument string) (domain.ArgumentReply, error)
}

type captureController interface {
	Begin(ctx context.Context) error
	End(ctx context.Context) (domain.TranscriptionResult, error)
	Abort() error
	Status() domain.Status
	Capabilities() domain.CapabilityReport
}

// App is the Wails application root.
type App struct {
	ctx     context.Context
	cfgFile string
	emit    func(ctx context.Context, name string, data ...interface{})

	services   bootstrap.Services
	controller captureController
	server     debateClient
	bootErr    error

	mu           sync.Mutex
	voiceEnabled bool
	voiceMessage string
}

func NewApp(cfgFile string) *App {
	return &App{cfgFile: cfgFile, emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a.cfgFile, a)
	if err != nil {
		a.bootErr = err
		a.SystemMessage(fmt.Sprintf("Startup failed: %v", err))
		return
	}

	a.services = services
	a.controller = services.Controller
	a.server = services.Server
	a.refreshVoiceStatus(ctx)
}

func (a *App) shutdown(context.Context) {
	if a.controller != nil {
		_ = a.controller.Abort()
	}
	_ = a.services.Close()
}

// refreshVoiceStatus asks the debate server whether voice input is offered
// and combines the answer with the local capability report.
func (a *App) refreshVoiceStatus(ctx context.Context) {
	status, err := a.server.VoiceStatus(ctx)
	report := a.controller.Capabilities()

	enabled := false
	message := ""
	switch {
	case err != nil:
		log.Warn("voice status check failed", logging.KeyError, err)
		message = "Could not check voice status"
	case !status.RecordingEnabled():
		message = "Voice recording is not available on this server"
	case !report.HasRecorderAPI:
		message = domain.FailureRecorderUnsupported.Guidance()
	case !report.HasModernCaptureAPI && !report.HasLegacyCaptureAPI:
		message = domain.FailureAPIUnsupported.Guidance()
	default:
		enabled = true
	}

	a.mu.Lock()
	a.voiceEnabled = enabled
	a.voiceMessage = message
	a.mu.Unlock()

	a.emitEvent(eventVoiceStatus, map[string]interface{}{
		"enabled":      enabled,
		"ttsAvailable": status.TTSAvailable,
		"message":      message,
	})
	if !enabled {
		a.emitEvent(eventVoiceDisabled, map[string]string{"message": message})
	}
}

// BeginCapture starts recording. A press while a capture is already running
// is ignored.
func (a *App) BeginCapture() (domain.Status, error) {
	if err := a.requireVoice(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Begin(a.ctx)
	if errors.Is(err, usecase.ErrCaptureInProgress) {
		return a.controller.Status(), nil
	}
	return a.controller.Status(), err
}

// EndCapture stops recording and returns the recognized text.
func (a *App) EndCapture() (domain.TranscriptionResult, error) {
	if err := a.requireVoice(); err != nil {
		return domain.TranscriptionResult{}, err
	}
	result, err := a.controller.End(a.ctx)
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return domain.TranscriptionResult{}, nil
	}
	return result, err
}

// AbortCapture discards an in-progress recording.
func (a *App) AbortCapture() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return err
	}
	return nil
}

// GetStatus returns the current capture status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.CaptureStateFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.CaptureStateIdle}
	}
	status := a.controller.Status()
	if status.Message == "" {
		a.mu.Lock()
		if !a.voiceEnabled {
			status.Message = a.voiceMessage
		}
		a.mu.Unlock()
	}
	return status
}

// GetCapabilities returns the probed capability report.
func (a *App) GetCapabilities() domain.CapabilityReport {
	if a.controller == nil {
		return domain.CapabilityReport{}
	}
	return a.controller.Capabilities()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	cfg := a.services.Config
	return map[string]string{
		"server":           cfg.Server.BaseURL,
		"provider":         cfg.Transcription.Provider,
		"audioBackend":     cfg.Audio.Backend,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
	}
}

// StartDebate opens a debate on the server.
func (a *App) StartDebate(topic, side, theme string) (domain.ArgumentReply, error) {
	if err := a.requireReady(); err != nil {
		return domain.ArgumentReply{}, err
	}
	return a.server.StartDebate(a.ctx, topic, side, theme)
}

// SubmitArgument sends typed or recognized text to the debate server.
func (a *App) SubmitArgument(argument string) (domain.ArgumentReply, error) {
	if err := a.requireReady(); err != nil {
		return domain.ArgumentReply{}, err
	}
	return a.server.SubmitArgument(a.ctx, argument)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) requireVoice() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.voiceEnabled {
		return ErrVoiceUnavailable
	}
	return nil
}

// CaptureStateChanged emits capture lifecycle updates to the frontend.
func (a *App) CaptureStateChanged(state domain.CaptureState, sessionID string) {
	a.emitEvent(eventCapture, map[string]string{
		"state":     string(state),
		"sessionId": sessionID,
		"message":   stateMessage(state),
	})
}

// CaptureFailed emits a capture failure with its user guidance.
func (a *App) CaptureFailed(reason domain.FailureReason, detail string) {
	a.emitEvent(eventCaptureError, map[string]string{
		"reason":  string(reason),
		"message": reason.Guidance(),
		"detail":  detail,
	})
}

// TranscriptReady hands recognized text to the argument input.
func (a *App) TranscriptReady(text string) {
	a.emitEvent(eventTranscript, map[string]string{"text": text})
}

// SystemMessage emits a non-fatal notice.
func (a *App) SystemMessage(text string) {
	a.emitEvent(eventSystem, map[string]string{"text": text})
}

func (a *App) emitEvent(name string, data interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

func stateMessage(state domain.CaptureState) string {
	switch state {
	case domain.CaptureStateIdle:
		return "Hold to speak"
	case domain.CaptureStateRequesting:
		return "Requesting microphone..."
	case domain.CaptureStateRecording:
		return "Recording... release to send"
	case domain.CaptureStateStopping:
		return "Processing..."
	case domain.CaptureStateFailed:
		return "Recording failed"
	default:
		return ""
	}
}
