package audio

import (
	"testing"

	"arenamic/internal/domain"
)

func TestClassifyDeviceMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"default: Permission denied":                                 domain.ErrNameNotAllowed,
		"[pulse] connection refused: access denied":                  domain.ErrNameNotAllowed,
		"hw:1: No such device":                                       domain.ErrNameNotFound,
		"no capture device available":                                domain.ErrNameNotFound,
		"cannot open audio device default (Device or resource busy)": domain.ErrNameNotReadable,
		"Sample rate 96000 format not supported":                     domain.ErrNameOverconstrained,
		"something strange happened":                                 domain.ErrNameAbort,
		"Unknown input format: 'pulse'":                              domain.ErrNameAbort,
	}
	for message, want := range cases {
		got := classifyDeviceMessage(message)
		if got.Name != want {
			t.Fatalf("classifyDeviceMessage(%q) = %s, want %s", message, got.Name, want)
		}
		if got.Message != message {
			t.Fatalf("expected message to be kept, got %q", got.Message)
		}
	}
}
