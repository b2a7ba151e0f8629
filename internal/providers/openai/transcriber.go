package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"arenamic/internal/domain"
)

// Config controls the Whisper transcriber.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Transcriber sends payloads to the OpenAI audio transcription endpoint.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, payload domain.CapturedPayload) (string, error) {
	filename := payload.Filename
	if filename == "" {
		filename = "recording.wav"
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(payload.Bytes),
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
