package usecase

import (
	"context"
	"errors"
	"strings"

	"arenamic/internal/domain"
	"arenamic/internal/ports"
)

// The payload is always declared as WAV named recording.wav, whatever the
// recorder produced. SourceEncoding carries the real encoding.
const (
	PayloadMimeType = "audio/wav"
	PayloadFilename = "recording.wav"
)

// Assemble concatenates chunks in order. Empty input or zero total length
// fails with FailureEmptyCapture.
func Assemble(chunks [][]byte, sourceEncoding string) (domain.CapturedPayload, error) {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total == 0 {
		return domain.CapturedPayload{}, domain.NewCaptureError(domain.FailureEmptyCapture, "", nil)
	}

	data := make([]byte, 0, total)
	for _, chunk := range chunks {
		data = append(data, chunk...)
	}
	return domain.CapturedPayload{
		Bytes:          data,
		MimeType:       PayloadMimeType,
		ByteLength:     total,
		Filename:       PayloadFilename,
		SourceEncoding: sourceEncoding,
	}, nil
}

type payloadAssembler struct {
	transcriber ports.Transcriber
}

func newPayloadAssembler(transcriber ports.Transcriber) payloadAssembler {
	return payloadAssembler{transcriber: transcriber}
}

// Deliver hands the payload to the transcriber and returns the trimmed
// recognized text.
func (a payloadAssembler) Deliver(ctx context.Context, payload domain.CapturedPayload) (string, error) {
	if a.transcriber == nil {
		return "", domain.NewCaptureError(domain.FailureTranscriptionFailed, "no transcription service configured", nil)
	}
	text, err := a.transcriber.Transcribe(ctx, payload)
	if err != nil {
		var captureErr *domain.CaptureError
		if errors.As(err, &captureErr) && captureErr.Reason == domain.FailureTranscriptionFailed {
			return "", captureErr
		}
		return "", domain.NewCaptureError(domain.FailureTranscriptionFailed, "", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewCaptureError(domain.FailureTranscriptionFailed, "empty transcription", nil)
	}
	return text, nil
}
