package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"arenamic/internal/logging"
	"arenamic/internal/ports"
)

var recorderLog = logging.L("recorder")

const (
	recorderReadSize  = 4096
	recorderDrainWait = 2 * time.Second
)

// RecorderFactory creates recorders backed by an encoder registry.
type RecorderFactory struct {
	registry *EncoderRegistry
}

func NewRecorderFactory(registry *EncoderRegistry) *RecorderFactory {
	if registry == nil {
		registry = NewEncoderRegistry()
	}
	return &RecorderFactory{registry: registry}
}

func (f *RecorderFactory) IsTypeSupported(mimeType string) bool {
	return f.registry.IsTypeSupported(mimeType)
}

func (f *RecorderFactory) NewRecorder(stream ports.MediaStream, mimeType string, handlers ports.RecorderHandlers) (ports.MediaRecorder, error) {
	if stream == nil {
		return nil, errors.New("recorder requires a stream")
	}
	encoder, resolved, err := f.registry.New(mimeType, stream.Format())
	if err != nil {
		return nil, err
	}
	return newRecorder(stream, encoder, resolved, handlers), nil
}

// Recorder reads PCM from a stream on its own goroutine, encodes it and
// hands completed chunks to OnData once per timeslice and once more on stop.
type Recorder struct {
	stream   ports.MediaStream
	encoder  Encoder
	mimeType string
	handlers ports.RecorderHandlers

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func newRecorder(stream ports.MediaStream, encoder Encoder, mimeType string, handlers ports.RecorderHandlers) *Recorder {
	return &Recorder{
		stream:   stream,
		encoder:  encoder,
		mimeType: mimeType,
		handlers: handlers,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// MimeType is the encoding the recorder produces.
func (r *Recorder) MimeType() string {
	return r.mimeType
}

// Start begins recording. A non-positive timeslice delivers data only on
// stop.
func (r *Recorder) Start(timeslice time.Duration) {
	r.startOnce.Do(func() {
		go r.run(timeslice)
	})
}

// Stop requests finalization. Done closes after the last chunk was handed
// to OnData.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.startOnce.Do(func() {
		close(r.done)
	})
}

func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

type readResult struct {
	data []byte
	err  error
}

func (r *Recorder) run(timeslice time.Duration) {
	defer close(r.done)

	reads := make(chan readResult, 16)
	go r.readLoop(reads)

	var tick <-chan time.Time
	if timeslice > 0 {
		ticker := time.NewTicker(timeslice)
		defer ticker.Stop()
		tick = ticker.C
	}

	stopCh := r.stopCh
	var drainTimeout <-chan time.Time

	for {
		select {
		case res := <-reads:
			if len(res.data) > 0 {
				if err := r.encoder.Write(res.data); err != nil {
					r.fail(fmt.Errorf("encoder write failed: %w", err))
					return
				}
			}
			if res.err == nil {
				continue
			}
			if errors.Is(res.err, io.EOF) || drainTimeout != nil {
				if drainTimeout != nil && !errors.Is(res.err, io.EOF) {
					recorderLog.Warn("stream ended with error while stopping", "error", res.err)
				}
				r.finalize()
				return
			}
			r.fail(res.err)
			return
		case <-tick:
			chunk, err := r.encoder.Flush()
			if err != nil {
				r.fail(fmt.Errorf("encoder flush failed: %w", err))
				return
			}
			r.deliver(chunk)
		case <-stopCh:
			stopCh = nil
			tick = nil
			drainTimeout = time.After(recorderDrainWait)
		case <-drainTimeout:
			recorderLog.Warn("stream did not end after stop; finalizing with buffered audio")
			r.finalize()
			return
		}
	}
}

func (r *Recorder) readLoop(reads chan<- readResult) {
	for {
		buf := make([]byte, recorderReadSize)
		n, err := r.stream.Read(buf)
		select {
		case reads <- readResult{data: buf[:n], err: err}:
		case <-r.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *Recorder) finalize() {
	chunk, err := r.encoder.Close()
	if err != nil {
		r.fail(fmt.Errorf("encoder close failed: %w", err))
		return
	}
	r.deliver(chunk)
}

func (r *Recorder) deliver(chunk []byte) {
	if len(chunk) == 0 || r.handlers.OnData == nil {
		return
	}
	r.handlers.OnData(chunk)
}

func (r *Recorder) fail(err error) {
	recorderLog.Warn("recorder failed", "mimeType", r.mimeType, "error", err)
	if r.handlers.OnError != nil {
		r.handlers.OnError(err)
	}
}
