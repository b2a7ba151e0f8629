package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arenamic/internal/domain"
)

func TestNewTranscriberRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewTranscriber(Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestTranscriberDefaultsToWhisper(t *testing.T) {
	t.Parallel()

	tr, err := NewTranscriber(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.model != "whisper-1" {
		t.Fatalf("unexpected model %q", tr.model)
	}
}

func TestTranscriberUploadsPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFdata" || header.Filename != "recording.wav" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" {
			t.Errorf("unexpected form values model=%q language=%q", r.FormValue("model"), r.FormValue("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": " lower the voting age "}`)
	}))
	defer server.Close()

	tr, err := NewTranscriber(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1", Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := tr.Transcribe(context.Background(), domain.CapturedPayload{Bytes: []byte("RIFFdata"), Filename: "recording.wav"})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "lower the voting age" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTranscriberSurfacesAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "invalid file format", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	tr, _ := NewTranscriber(Config{APIKey: "sk-test", BaseURL: server.URL})
	if _, err := tr.Transcribe(context.Background(), domain.CapturedPayload{Bytes: []byte("x")}); err == nil || !strings.Contains(err.Error(), "invalid file format") {
		t.Fatalf("expected API error, got %v", err)
	}
}
