package audio

import (
	"errors"
	"strings"

	"arenamic/internal/domain"
)

var errNativeAudioUnavailable = errors.New("native audio capture is not available in this build")

// classifyDeviceMessage names a capture backend failure after the platform
// error it corresponds to. Messages matching no known cause are reported as
// AbortError, which classifies as an unknown failure.
func classifyDeviceMessage(message string) *domain.PlatformError {
	lower := strings.ToLower(message)
	name := domain.ErrNameAbort
	switch {
	case containsAny(lower, "permission denied", "not permitted", "access denied", "not authorized", "unauthorized"):
		name = domain.ErrNameNotAllowed
	case containsAny(lower, "no such device", "no such file", "not found", "no device", "no capture device", "cannot find", "does not exist"):
		name = domain.ErrNameNotFound
	case containsAny(lower, "busy", "in use", "resource temporarily unavailable", "device unavailable"):
		name = domain.ErrNameNotReadable
	case containsAny(lower, "invalid sample rate", "format not supported", "not supported", "invalid argument", "unsupported"):
		name = domain.ErrNameOverconstrained
	}
	return &domain.PlatformError{Name: name, Message: strings.TrimSpace(message)}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
