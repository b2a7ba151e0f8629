package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"

	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/ports"
)

var ffmpegLog = logging.L("ffmpeg")

const (
	legacySampleRate = 44100
	legacyChannels   = 1

	ffmpegStartupWindow = 250 * time.Millisecond
	ffmpegStopTimeout   = 1200 * time.Millisecond
	ffmpegWaitDelay     = 500 * time.Millisecond
)

// FFMPEGAcquirer captures the default input through an ffmpeg subprocess.
// It ignores constraints and always records 44.1 kHz mono from the default
// device of the configured input format.
type FFMPEGAcquirer struct {
	command     string
	inputFormat string
}

func NewFFMPEGAcquirer(command string, inputFormat string) *FFMPEGAcquirer {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = "pulse"
	}
	return &FFMPEGAcquirer{command: command, inputFormat: inputFormat}
}

// Available reports whether the ffmpeg binary can be found.
func (c *FFMPEGAcquirer) Available() bool {
	_, err := exec.LookPath(c.command)
	return err == nil
}

func (c *FFMPEGAcquirer) RequestStream(ctx context.Context, _ ports.MediaConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := defaultDeviceFor(c.inputFormat)
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.inputFormat,
		"-i", device,
		"-ac", strconv.Itoa(legacyChannels),
		"-ar", strconv.Itoa(legacySampleRate),
		"-f", "s16le",
		"-",
	}

	stream := newPCMStream(ports.StreamFormat{SampleRate: legacySampleRate, Channels: legacyChannels})

	// The process outlives the request context; it is bound to the track.
	cmd := exec.Command(c.command, args...)
	var stderr bytes.Buffer
	cmd.Stdout = stream
	cmd.Stderr = &stderr
	cmd.WaitDelay = ffmpegWaitDelay

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, &domain.PlatformError{Name: domain.ErrNameNotSupported, Message: err.Error()}
		}
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	proc := &ffmpegProcess{
		process: cmd.Process,
		stderr:  &stderr,
		waitErr: make(chan error, 1),
	}
	go func() {
		err := cmd.Wait()
		if proc.stopping.Load() {
			stream.closeWithError(nil)
		} else {
			stream.closeWithError(fmt.Errorf("ffmpeg exited unexpectedly: %w: %s", exitError(err), stringsTrimSpaceSafe(stderr.String())))
		}
		proc.waitErr <- err
		close(proc.waitErr)
	}()

	select {
	case err := <-proc.waitErr:
		message := stringsTrimSpaceSafe(stderr.String())
		if message == "" {
			message = fmt.Sprintf("ffmpeg exited before capture started: %v", err)
		}
		return nil, classifyDeviceMessage(message)
	case <-ctx.Done():
		proc.stop()
		return nil, ctx.Err()
	case <-time.After(ffmpegStartupWindow):
	}

	ffmpegLog.Debug("ffmpeg capture started", "format", c.inputFormat, "device", device, "pid", cmd.Process.Pid)
	stream.tracks = []ports.MediaTrack{
		newDeviceTrack(stream, c.inputFormat+":"+device, func() {
			if err := proc.stop(); err != nil {
				ffmpegLog.Warn("ffmpeg did not stop cleanly", logging.KeyError, err)
			}
		}),
	}
	return stream, nil
}

type ffmpegProcess struct {
	process *os.Process
	stderr  *bytes.Buffer
	waitErr chan error

	stopping atomic.Bool
	stopErr  error
}

// stop interrupts ffmpeg and kills it when it does not exit in time.
func (p *ffmpegProcess) stop() error {
	if !p.stopping.CompareAndSwap(false, true) {
		return nil
	}
	_ = p.process.Signal(os.Interrupt)

	select {
	case err, ok := <-p.waitErr:
		if ok {
			p.stopErr = normalizeStopErr(err)
		}
	case <-time.After(ffmpegStopTimeout):
		_ = p.process.Kill()
		err, ok := <-p.waitErr
		if ok {
			p.stopErr = normalizeStopErr(err)
		}
	}

	if p.stopErr != nil && p.stderr.Len() > 0 {
		p.stopErr = fmt.Errorf("%w: %s", p.stopErr, stringsTrimSpaceSafe(p.stderr.String()))
	}
	return p.stopErr
}

func defaultDeviceFor(inputFormat string) string {
	switch inputFormat {
	case "avfoundation":
		return ":default"
	case "dshow":
		return "audio=default"
	default:
		return "default"
	}
}

func exitError(err error) error {
	if err == nil {
		return errors.New("exit status 0")
	}
	return err
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
