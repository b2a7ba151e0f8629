//go:build cgo && !noaudio

package audio

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"

	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/ports"
)

var nativeLog = logging.L("native-audio")

const nativePeriodSizeMS = 20

// NativeAvailable reports whether this build carries native capture.
func NativeAvailable() bool {
	return true
}

// NativeAcquirer captures through miniaudio.
type NativeAcquirer struct{}

func NewNativeAcquirer() *NativeAcquirer {
	return &NativeAcquirer{}
}

func deviceIDString(id malgo.DeviceID) string {
	return hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
}

func listCaptureDevices(malgoCtx *malgo.AllocatedContext) ([]domain.AudioDevice, []malgo.DeviceID, error) {
	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, nil, err
	}

	devices := make([]domain.AudioDevice, 0, len(infos))
	ids := make([]malgo.DeviceID, 0, len(infos))
	seen := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		full, err := malgoCtx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared)
		if err != nil {
			nativeLog.Warn("unable to get audio device info", logging.KeyError, err)
			continue
		}
		id := deviceIDString(full.ID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		devices = append(devices, domain.AudioDevice{
			ID:        id,
			Name:      full.Name(),
			IsDefault: full.IsDefault == 1,
		})
		ids = append(ids, full.ID)
	}
	return devices, ids, nil
}

// ListCaptureDevices enumerates audio inputs.
func ListCaptureDevices(ctx context.Context) ([]domain.AudioDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	devices, _, err := listCaptureDevices(malgoCtx)
	return devices, err
}

func (a *NativeAcquirer) RequestStream(ctx context.Context, constraints ports.MediaConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if constraints.SampleRate <= 0 {
		constraints.SampleRate = 44100
	}
	if constraints.ChannelCount <= 0 {
		constraints.ChannelCount = 1
	}
	if unapplied := unappliedProcessing(constraints); len(unapplied) > 0 {
		nativeLog.Debug("native capture cannot apply voice processing", "constraints", unapplied)
	}
	if malgo.SampleSizeInBytes(malgo.FormatS16) != 2 {
		return nil, &domain.PlatformError{Name: domain.ErrNameNotSupported, Message: "malgo s16 sample size mismatch"}
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, classifyDeviceMessage(fmt.Sprintf("audio context init failed: %v", err))
	}
	freeContext := func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}

	devices, ids, err := listCaptureDevices(malgoCtx)
	if err != nil {
		freeContext()
		return nil, classifyDeviceMessage(fmt.Sprintf("capture device enumeration failed: %v", err))
	}
	if len(devices) == 0 {
		freeContext()
		return nil, &domain.PlatformError{Name: domain.ErrNameNotFound, Message: "no capture device available"}
	}

	label := devices[0].Name
	for _, device := range devices {
		if device.IsDefault {
			label = device.Name
			break
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = uint32(constraints.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = nativePeriodSizeMS
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(constraints.ChannelCount)
	deviceConfig.Alsa.NoMMap = 1

	if constraints.DeviceID != "" {
		index := matchDevice(devices, constraints.DeviceID)
		if index < 0 {
			freeContext()
			return nil, &domain.PlatformError{
				Name:    domain.ErrNameOverconstrained,
				Message: fmt.Sprintf("capture device %q not found", constraints.DeviceID),
			}
		}
		deviceConfig.Capture.DeviceID = ids[index].Pointer()
		label = devices[index].Name
	}

	stream := newPCMStream(ports.StreamFormat{SampleRate: constraints.SampleRate, Channels: constraints.ChannelCount})
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			_, _ = stream.Write(input)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		freeContext()
		return nil, classifyDeviceMessage(fmt.Sprintf("capture device init failed: %v", err))
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext()
		return nil, &domain.PlatformError{Name: domain.ErrNameNotReadable, Message: fmt.Sprintf("capture device start failed: %v", err)}
	}

	release := func() {
		if err := device.Stop(); err != nil {
			nativeLog.Warn("capture device stop failed", logging.KeyError, err)
		}
		device.Uninit()
		freeContext()
	}

	if err := ctx.Err(); err != nil {
		release()
		return nil, err
	}

	nativeLog.Debug("native capture started", "device", label, "sampleRate", constraints.SampleRate, "channels", constraints.ChannelCount)
	stream.tracks = []ports.MediaTrack{newDeviceTrack(stream, label, release)}
	return stream, nil
}

func matchDevice(devices []domain.AudioDevice, want string) int {
	for i, device := range devices {
		if device.ID == want || strings.EqualFold(device.Name, want) {
			return i
		}
	}
	return -1
}
