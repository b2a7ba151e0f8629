package deepgram

import (
	"context"
	"errors"
	"fmt"

	"arenamic/internal/domain"
	"arenamic/internal/logging"
)

var log = logging.L("deepgram")

const defaultFrameSize = 8 * 1024

// Transcriber sends an assembled payload over a listen session and returns
// the joined final transcript.
type Transcriber struct {
	cfg       Config
	frameSize int
}

func NewTranscriber(cfg Config) *Transcriber {
	return &Transcriber{cfg: cfg.withDefaults(), frameSize: defaultFrameSize}
}

func (t *Transcriber) Transcribe(ctx context.Context, payload domain.CapturedPayload) (string, error) {
	if len(payload.Bytes) == 0 {
		return "", errors.New("empty payload")
	}

	session, err := dialListen(ctx, t.cfg)
	if err != nil {
		return "", err
	}
	defer session.close()

	if err := session.upload(payload.Bytes, t.frameSize); err != nil {
		return "", fmt.Errorf("deepgram upload: %w", err)
	}
	text, err := session.wait(ctx)
	if err != nil {
		return "", fmt.Errorf("deepgram transcription: %w", err)
	}

	log.Debug("transcription complete", "bytes", len(payload.Bytes), "chars", len(text))
	return text, nil
}
