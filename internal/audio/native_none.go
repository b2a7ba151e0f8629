//go:build !cgo || noaudio

package audio

import (
	"context"

	"arenamic/internal/domain"
	"arenamic/internal/ports"
)

// NativeAvailable reports whether this build carries native capture.
func NativeAvailable() bool {
	return false
}

// NativeAcquirer is a stand-in for builds without native audio.
type NativeAcquirer struct{}

func NewNativeAcquirer() *NativeAcquirer {
	return &NativeAcquirer{}
}

// ListCaptureDevices is unavailable without native audio.
func ListCaptureDevices(context.Context) ([]domain.AudioDevice, error) {
	return nil, errNativeAudioUnavailable
}

func (a *NativeAcquirer) RequestStream(context.Context, ports.MediaConstraints) (ports.MediaStream, error) {
	return nil, &domain.PlatformError{Name: domain.ErrNameNotSupported, Message: errNativeAudioUnavailable.Error()}
}
