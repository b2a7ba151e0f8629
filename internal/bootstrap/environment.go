package bootstrap

import (
	"context"
	"net/url"

	"arenamic/internal/audio"
	"arenamic/internal/config"
	"arenamic/internal/domain"
)

// hostEnvironment answers capability questions for the capability prober
// from the configured backends and the debate server URL.
type hostEnvironment struct {
	serverURL *url.URL
	backend   string
	encodings []string
	registry  *audio.EncoderRegistry

	nativeAvailable func() bool
	ffmpegAvailable func() bool
	listInputs      func(ctx context.Context) ([]domain.AudioDevice, error)
}

func newHostEnvironment(cfg config.Config, registry *audio.EncoderRegistry, ffmpeg *audio.FFMPEGAcquirer) *hostEnvironment {
	serverURL, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		serverURL = &url.URL{}
	}
	return &hostEnvironment{
		serverURL:       serverURL,
		backend:         cfg.Audio.Backend,
		encodings:       cfg.Audio.Encodings,
		registry:        registry,
		nativeAvailable: audio.NativeAvailable,
		ffmpegAvailable: ffmpeg.Available,
		listInputs:      audio.ListCaptureDevices,
	}
}

func (e *hostEnvironment) Host() string {
	return e.serverURL.Host
}

func (e *hostEnvironment) SecureContext() bool {
	return e.serverURL.Scheme == "https"
}

func (e *hostEnvironment) ModernCaptureAvailable() bool {
	return e.backend != config.BackendFFMPEG && e.nativeAvailable()
}

func (e *hostEnvironment) LegacyCaptureAvailable() bool {
	return e.backend != config.BackendNative && e.ffmpegAvailable()
}

func (e *hostEnvironment) RecorderAvailable() bool {
	return e.registry.AnySupported(e.encodings)
}

func (e *hostEnvironment) AudioInputs(ctx context.Context) ([]domain.AudioDevice, error) {
	return e.listInputs(ctx)
}
