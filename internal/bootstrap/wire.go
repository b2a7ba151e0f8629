package bootstrap

import (
	"context"
	"fmt"
	"io"

	"arenamic/internal/audio"
	"arenamic/internal/capability"
	"arenamic/internal/config"
	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/ports"
	"arenamic/internal/providers/debateserver"
	"arenamic/internal/providers/deepgram"
	"arenamic/internal/providers/openai"
	"arenamic/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.CaptureController
	Server     *debateserver.Client
	Config     config.Config
	Report     domain.CapabilityReport

	logCloser io.Closer
}

// Close releases the log file, if any.
func (s Services) Close() error {
	if s.logCloser == nil {
		return nil
	}
	return s.logCloser.Close()
}

// Build loads configuration, probes the host once and wires all backend
// dependencies for the current runtime.
func Build(ctx context.Context, cfgFile string, eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return Services{}, err
	}

	output, closer := logging.Output(cfg.Log.File)
	logging.Init(cfg.Log.Format, cfg.Log.Level, output)

	server := debateserver.NewClient(debateserver.Config{
		BaseURL: cfg.Server.BaseURL,
		Retries: cfg.Server.Retries,
	})
	transcriber, err := newTranscriber(cfg, server)
	if err != nil {
		_ = closer.Close()
		return Services{}, err
	}

	registry := audio.NewEncoderRegistry()
	ffmpeg := audio.NewFFMPEGAcquirer(cfg.Audio.FFMPEGCommand, cfg.Audio.InputFormat)
	report := capability.NewProber(newHostEnvironment(cfg, registry, ffmpeg)).Probe(ctx)

	constraints := ports.DefaultConstraints()
	constraints.SampleRate = cfg.Audio.SampleRate
	constraints.ChannelCount = cfg.Audio.Channels
	constraints.DeviceID = cfg.Audio.InputDevice

	controller := usecase.NewCaptureController(
		report,
		audio.NewNativeAcquirer(),
		ffmpeg,
		audio.NewRecorderFactory(registry),
		transcriber,
		eventSink,
		usecase.Config{
			Constraints:       constraints,
			Encodings:         cfg.Audio.Encodings,
			Timeslice:         cfg.Audio.Timeslice,
			PermissionTimeout: cfg.Capture.PermissionTimeout,
			StopGrace:         cfg.Capture.StopGrace,
		},
	)

	logging.L("bootstrap").Info("services ready",
		"config", cfg.ConfigFile,
		"server", cfg.Server.BaseURL,
		"provider", cfg.Transcription.Provider,
		"backend", cfg.Audio.Backend,
		"encoders", registry.Types(),
	)

	return Services{
		Controller: controller,
		Server:     server,
		Config:     cfg,
		Report:     report,
		logCloser:  closer,
	}, nil
}

func newTranscriber(cfg config.Config, server *debateserver.Client) (ports.Transcriber, error) {
	switch cfg.Transcription.Provider {
	case config.ProviderDeepgram:
		if cfg.Deepgram.APIKey == "" {
			return nil, fmt.Errorf("deepgram transcription: DEEPGRAM_API_KEY is not configured")
		}
		return deepgram.NewTranscriber(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}), nil
	case config.ProviderOpenAI:
		transcriber, err := openai.NewTranscriber(openai.Config{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
			Language: cfg.OpenAI.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("openai transcription: %w", err)
		}
		return transcriber, nil
	default:
		return server, nil
	}
}
