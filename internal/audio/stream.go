package audio

import (
	"bytes"
	"io"
	"sync"

	"arenamic/internal/ports"
)

const trackKindAudio = "audio"

// pcmStream buffers PCM pushed by a device callback or subprocess until the
// recorder reads it.
type pcmStream struct {
	format ports.StreamFormat

	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
	err    error

	tracks []ports.MediaTrack
}

func newPCMStream(format ports.StreamFormat) *pcmStream {
	s := &pcmStream{format: format}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Write appends captured PCM. Writes after close are dropped.
func (s *pcmStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	s.buf.Write(p)
	s.cond.Broadcast()
	return len(p), nil
}

// closeWithError ends the stream. A nil err makes readers see io.EOF once
// the buffer is drained.
func (s *pcmStream) closeWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	s.cond.Broadcast()
}

func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.buf.Len() == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.buf.Len() > 0 {
		return s.buf.Read(p)
	}
	if s.err != nil {
		return 0, s.err
	}
	return 0, io.EOF
}

func (s *pcmStream) Format() ports.StreamFormat {
	return s.format
}

func (s *pcmStream) Tracks() []ports.MediaTrack {
	return append([]ports.MediaTrack(nil), s.tracks...)
}

func (s *pcmStream) AudioTracks() []ports.MediaTrack {
	var audio []ports.MediaTrack
	for _, track := range s.tracks {
		if track.Kind() == trackKindAudio {
			audio = append(audio, track)
		}
	}
	return audio
}

// deviceTrack releases its hardware exactly once and then closes the stream.
type deviceTrack struct {
	kind    string
	label   string
	release func()
	stream  *pcmStream

	once sync.Once
}

func newDeviceTrack(stream *pcmStream, label string, release func()) *deviceTrack {
	return &deviceTrack{kind: trackKindAudio, label: label, release: release, stream: stream}
}

func (t *deviceTrack) Kind() string  { return t.kind }
func (t *deviceTrack) Label() string { return t.label }

func (t *deviceTrack) Stop() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
		t.stream.closeWithError(nil)
	})
}

// unappliedProcessing lists the requested voice processing stages that raw
// device capture does not perform.
func unappliedProcessing(constraints ports.MediaConstraints) []string {
	var names []string
	if constraints.EchoCancellation {
		names = append(names, "echoCancellation")
	}
	if constraints.NoiseSuppression {
		names = append(names, "noiseSuppression")
	}
	if constraints.AutoGainControl {
		names = append(names, "autoGainControl")
	}
	return names
}
