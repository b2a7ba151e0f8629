package bootstrap

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"arenamic/internal/audio"
	"arenamic/internal/config"
	"arenamic/internal/domain"
	"arenamic/internal/providers/debateserver"
)

func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ARENAMIC_AUDIO_BACKEND", "ffmpeg")
	t.Setenv("ARENAMIC_AUDIO_FFMPEG_COMMAND", filepath.Join(home, "missing-ffmpeg"))
}

func TestBuildSuccess(t *testing.T) {
	isolate(t)

	services, err := Build(context.Background(), "", noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Controller == nil || services.Server == nil {
		t.Fatalf("expected controller and server client")
	}
	report := services.Report
	if !report.HasRecorderAPI {
		t.Fatalf("wav encoder should always make the recorder available")
	}
	if !report.IsLocalHost || !report.IsSecureOrLocalContext || report.IsSecureContext {
		t.Fatalf("localhost server should be local but not secure: %+v", report)
	}
	if report.HasModernCaptureAPI || report.HasLegacyCaptureAPI {
		t.Fatalf("ffmpeg-only backend with missing binary should have no capture api: %+v", report)
	}
	if got := services.Controller.Capabilities(); got.Host != report.Host || got.ProbedAt != report.ProbedAt {
		t.Fatalf("controller should carry the probed report")
	}

	err = services.Controller.Begin(context.Background())
	if !errors.Is(err, &domain.CaptureError{Reason: domain.FailureAPIUnsupported}) {
		t.Fatalf("expected api unsupported, got %v", err)
	}
}

func TestBuildFailsOnInvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("ARENAMIC_TRANSCRIPTION_PROVIDER", "carrier-pigeon")

	if _, err := Build(context.Background(), "", noopEventSink{}); err == nil {
		t.Fatalf("expected build error for unknown provider")
	}
}

func TestBuildRequiresProviderKeys(t *testing.T) {
	for _, provider := range []string{config.ProviderDeepgram, config.ProviderOpenAI} {
		t.Run(provider, func(t *testing.T) {
			isolate(t)
			t.Setenv("ARENAMIC_TRANSCRIPTION_PROVIDER", provider)
			if _, err := Build(context.Background(), "", noopEventSink{}); err == nil {
				t.Fatalf("expected missing key error for %s", provider)
			}
		})
	}
}

func TestNewTranscriberSelection(t *testing.T) {
	t.Parallel()

	server := debateserver.NewClient(debateserver.Config{BaseURL: "http://localhost:5000"})
	cfg := config.Config{Transcription: config.TranscriptionConfig{Provider: config.ProviderServer}}
	got, err := newTranscriber(cfg, server)
	if err != nil || got != server {
		t.Fatalf("expected server transcriber, got %T %v", got, err)
	}

	cfg.Transcription.Provider = config.ProviderDeepgram
	cfg.Deepgram.APIKey = "dg"
	if got, err := newTranscriber(cfg, server); err != nil || got == nil {
		t.Fatalf("expected deepgram transcriber, got %T %v", got, err)
	}

	cfg.Transcription.Provider = config.ProviderOpenAI
	cfg.OpenAI.APIKey = "sk"
	if got, err := newTranscriber(cfg, server); err != nil || got == nil {
		t.Fatalf("expected openai transcriber, got %T %v", got, err)
	}
}

func TestHostEnvironment(t *testing.T) {
	t.Parallel()

	serverURL, _ := url.Parse("https://debate.example.com:8443")
	env := &hostEnvironment{
		serverURL:       serverURL,
		backend:         config.BackendAuto,
		encodings:       []string{"audio/ogg", ""},
		registry:        audio.NewEncoderRegistry(),
		nativeAvailable: func() bool { return true },
		ffmpegAvailable: func() bool { return true },
		listInputs: func(context.Context) ([]domain.AudioDevice, error) {
			return []domain.AudioDevice{{ID: "a", Name: "USB Mic", IsDefault: true}}, nil
		},
	}

	if env.Host() != "debate.example.com:8443" || !env.SecureContext() {
		t.Fatalf("unexpected host/secure: %q %v", env.Host(), env.SecureContext())
	}
	if !env.ModernCaptureAvailable() || !env.LegacyCaptureAvailable() {
		t.Fatalf("auto backend should expose both paths")
	}
	if !env.RecorderAvailable() {
		t.Fatalf("default encoding should be available")
	}
	inputs, err := env.AudioInputs(context.Background())
	if err != nil || len(inputs) != 1 {
		t.Fatalf("unexpected inputs: %v %v", inputs, err)
	}

	env.backend = config.BackendNative
	if env.LegacyCaptureAvailable() {
		t.Fatalf("native backend should hide ffmpeg")
	}
	env.backend = config.BackendFFMPEG
	if env.ModernCaptureAvailable() {
		t.Fatalf("ffmpeg backend should hide native capture")
	}

	env.encodings = []string{}
	if env.RecorderAvailable() {
		t.Fatalf("no encodings should disable the recorder")
	}
}

type noopEventSink struct{}

func (noopEventSink) CaptureStateChanged(domain.CaptureState, string) {}
func (noopEventSink) CaptureFailed(domain.FailureReason, string)      {}
func (noopEventSink) TranscriptReady(string)                          {}
func (noopEventSink) SystemMessage(string)                            {}
