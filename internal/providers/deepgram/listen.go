package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	defaultAPIBaseURL = "https://api.deepgram.com/v1"
	defaultModel      = "nova-2"
	closeStreamFrame  = `{"type":"CloseStream"}`
)

// Config controls Deepgram listen settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	return c
}

type transcriptKind string

const (
	transcriptPartial transcriptKind = "partial"
	transcriptFinal   transcriptKind = "final"
)

type transcriptEvent struct {
	Kind transcriptKind
	Text string
}

// listenSession uploads one finished recording over a listen websocket and
// collects the results until the server closes the connection.
type listenSession struct {
	conn       *websocket.Conn
	transcript *transcriptAggregator
	results    chan struct{}
	stopWatch  func() bool

	errMu sync.Mutex
	err   error
}

func dialListen(ctx context.Context, cfg Config) (*listenSession, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}
	listenURL, err := buildListenURL(cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	s := &listenSession{
		conn:       conn,
		transcript: newTranscriptAggregator(),
		results:    make(chan struct{}),
	}
	// Closing the connection unblocks both the upload and the result reader.
	s.stopWatch = context.AfterFunc(ctx, func() { _ = conn.Close() })
	go s.readResults()
	return s, nil
}

// upload sends the recording in binary frames of frameSize bytes, then asks
// the server to flush and close the stream.
func (s *listenSession) upload(audio []byte, frameSize int) error {
	if frameSize <= 0 {
		frameSize = len(audio)
	}
	for offset := 0; offset < len(audio); offset += frameSize {
		end := min(offset+frameSize, len(audio))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return s.writeErr(fmt.Errorf("failed to send audio: %w", err))
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(closeStreamFrame)); err != nil {
		return s.writeErr(fmt.Errorf("failed to close stream: %w", err))
	}
	return nil
}

// wait blocks until the server has delivered every result.
func (s *listenSession) wait(ctx context.Context) (string, error) {
	<-s.results
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.result(); err != nil {
		return "", err
	}
	return s.transcript.Raw(), nil
}

func (s *listenSession) close() {
	s.stopWatch()
	_ = s.conn.Close()
	<-s.results
}

// writeErr prefers the reason the server gave for closing over the write
// failure it caused.
func (s *listenSession) writeErr(err error) error {
	select {
	case <-s.results:
		if serverErr := s.result(); serverErr != nil {
			return serverErr
		}
	default:
	}
	return err
}

func (s *listenSession) result() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *listenSession) fail(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *listenSession) readResults() {
	defer close(s.results)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.fail(errors.New(message))
			return
		}

		text := extractTranscript(response)
		if text == "" {
			continue
		}
		kind := transcriptPartial
		if response.IsFinal || response.SpeechFinal {
			kind = transcriptFinal
		}
		s.transcript.Add(transcriptEvent{Kind: kind, Text: text})
	}
}

type alternatives []struct {
	Transcript string `json:"transcript"`
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives alternatives `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives alternatives `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

// buildListenURL targets the listen endpoint for containerized audio, so no
// encoding or sample rate is declared and the server reads the header.
func buildListenURL(cfg Config) (string, error) {
	cfg = cfg.withDefaults()
	base := strings.TrimSpace(cfg.APIBaseURL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("interim_results", "false")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
