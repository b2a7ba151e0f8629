package debateserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"strings"
	"time"

	"arenamic/internal/domain"
	"arenamic/internal/httputil"
	"arenamic/internal/logging"
)

var log = logging.L("debateserver")

// ErrEmptyArgument is returned when an argument is blank after trimming.
var ErrEmptyArgument = errors.New("no argument provided")

const maxResponseBytes = 1 << 20

// Config controls the debate server client.
type Config struct {
	BaseURL string
	Retries int
	Timeout time.Duration
}

// Client talks to the debate server. The server keeps the debate in a cookie
// session, so one Client must be used for a whole debate.
//
// Debate turns are not idempotent and are sent once. Transcription uploads
// share the cookie jar but are bounded only by the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	upload  *http.Client
	retry   httputil.RetryConfig
}

func NewClient(cfg Config) *Client {
	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retry := httputil.DefaultRetryConfig()
	if cfg.Retries >= 0 {
		retry.MaxRetries = cfg.Retries
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
		upload:  &http.Client{Jar: jar},
		retry:   retry,
	}
}

// VoiceStatus fetches the server's voice capability flags.
func (c *Client) VoiceStatus(ctx context.Context) (domain.VoiceStatus, error) {
	var status domain.VoiceStatus
	if err := c.do(ctx, c.http, c.retry, http.MethodGet, "/voice_status", nil, nil, &status); err != nil {
		return domain.VoiceStatus{}, err
	}
	return status, nil
}

type transcribeResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	Error         string `json:"error"`
}

// Transcribe uploads the payload as the multipart field "audio".
func (c *Client) Transcribe(ctx context.Context, payload domain.CapturedPayload) (string, error) {
	body, contentType, err := multipartAudio(payload)
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	var resp transcribeResponse
	if err := c.do(ctx, c.upload, c.retry, http.MethodPost, "/transcribe_audio", body, headers, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Transcription)
	if !resp.Success || text == "" {
		detail := resp.Error
		if detail == "" {
			detail = "server returned no transcription"
		}
		return "", domain.NewCaptureError(domain.FailureTranscriptionFailed, detail, nil)
	}
	return text, nil
}

// StartDebate opens a debate on the server for this client's session.
func (c *Client) StartDebate(ctx context.Context, topic, side, theme string) (domain.ArgumentReply, error) {
	req := map[string]string{"topic": topic, "side": side, "theme": theme}
	return c.postArgument(ctx, "/start_debate", req)
}

// SubmitArgument sends one user argument and returns the opponent's reply.
func (c *Client) SubmitArgument(ctx context.Context, argument string) (domain.ArgumentReply, error) {
	argument = strings.TrimSpace(argument)
	if argument == "" {
		return domain.ArgumentReply{}, ErrEmptyArgument
	}
	return c.postArgument(ctx, "/submit_argument", map[string]string{"argument": argument})
}

type argumentResponse struct {
	Success    bool   `json:"success"`
	AIResponse string `json:"ai_response"`
	Theme      string `json:"theme"`
	Error      string `json:"error"`
}

func (c *Client) postArgument(ctx context.Context, path string, req map[string]string) (domain.ArgumentReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.ArgumentReply{}, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	once := c.retry
	once.MaxRetries = 0

	var resp argumentResponse
	if err := c.do(ctx, c.http, once, http.MethodPost, path, body, headers, &resp); err != nil {
		return domain.ArgumentReply{}, err
	}
	if !resp.Success {
		if resp.Error != "" {
			return domain.ArgumentReply{}, fmt.Errorf("%s: %s", path, resp.Error)
		}
		return domain.ArgumentReply{}, fmt.Errorf("%s: request was not successful", path)
	}
	return domain.ArgumentReply{AIResponse: resp.AIResponse, Theme: resp.Theme}, nil
}

// StatusError is a non-2xx answer from the debate server.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Path, e.StatusCode)
}

func (c *Client) do(ctx context.Context, client *http.Client, retry httputil.RetryConfig, method, path string, body []byte, headers http.Header, out any) error {
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Accept", "application/json")

	resp, err := httputil.Do(ctx, client, method, c.baseURL+path, body, headers, retry)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &failure)
		log.Warn("debate server request failed", "path", path, "status", resp.StatusCode, logging.KeyError, failure.Error)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: failure.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func multipartAudio(payload domain.CapturedPayload) ([]byte, string, error) {
	filename, mimeType := payload.Filename, payload.MimeType
	if filename == "" {
		filename = "recording.wav"
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload.Bytes); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
