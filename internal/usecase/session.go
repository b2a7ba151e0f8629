package usecase

import (
	"sync"

	"arenamic/internal/domain"
	"arenamic/internal/ports"
)

// captureSession owns the stream and chunks of one capture attempt.
type captureSession struct {
	id string

	mu          sync.Mutex
	state       domain.CaptureState
	stream      ports.MediaStream
	recorder    ports.MediaRecorder
	encoding    string
	chunks      [][]byte
	recorderErr error

	releaseOnce sync.Once
}

func newCaptureSession(id string) *captureSession {
	return &captureSession{id: id, state: domain.CaptureStateRequesting}
}

func (s *captureSession) getState() domain.CaptureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves from one state to another and reports whether the
// session was in the expected state.
func (s *captureSession) transition(from domain.CaptureState, to domain.CaptureState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *captureSession) setState(state domain.CaptureState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *captureSession) attach(stream ports.MediaStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
}

func (s *captureSession) startRecording(recorder ports.MediaRecorder, encoding string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.CaptureStateRequesting {
		return false
	}
	s.recorder = recorder
	s.encoding = encoding
	s.state = domain.CaptureStateRecording
	return true
}

func (s *captureSession) getEncoding() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

func (s *captureSession) getRecorder() ports.MediaRecorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}

// appendChunk keeps non-empty fragments in arrival order while the session
// is recording or finalizing.
func (s *captureSession) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.CaptureStateRecording && s.state != domain.CaptureStateStopping {
		return
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
}

func (s *captureSession) takeChunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.chunks
	s.chunks = nil
	return chunks
}

func (s *captureSession) discardChunks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

func (s *captureSession) setRecorderErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorderErr == nil {
		s.recorderErr = err
	}
}

func (s *captureSession) getRecorderErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorderErr
}

// releaseTracks stops every track of the stream. Later calls do nothing.
func (s *captureSession) releaseTracks() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return
	}
	s.releaseOnce.Do(func() {
		for _, track := range stream.Tracks() {
			track.Stop()
		}
	})
}
