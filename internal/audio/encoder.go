package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"arenamic/internal/ports"
)

// Encodings produced by the built-in encoders.
const (
	MimeOggOpus = "audio/ogg;codecs=opus"
	MimeOgg     = "audio/ogg"
	MimeWAV     = "audio/wav"
)

// DefaultMimeType is what an empty encoding request resolves to.
const DefaultMimeType = MimeWAV

// Encoder turns s16 PCM into a container stream. Flush returns the bytes
// completed since the previous call; Close finalizes and returns the rest.
// Close returns no bytes when nothing was ever written.
type Encoder interface {
	Write(pcm []byte) error
	Flush() ([]byte, error)
	Close() ([]byte, error)
}

// EncoderFactory builds an encoder for a stream format.
type EncoderFactory func(format ports.StreamFormat) (Encoder, error)

var (
	builtinMu       sync.Mutex
	builtinEncoders = map[string]EncoderFactory{
		MimeWAV: newWAVEncoder,
	}
)

func registerBuiltin(mimeType string, factory EncoderFactory) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtinEncoders[NormalizeMimeType(mimeType)] = factory
}

// EncoderRegistry maps encodings to encoder factories.
type EncoderRegistry struct {
	mu        sync.RWMutex
	factories map[string]EncoderFactory
}

// NewEncoderRegistry returns a registry holding every encoder compiled into
// this build.
func NewEncoderRegistry() *EncoderRegistry {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	r := &EncoderRegistry{factories: make(map[string]EncoderFactory, len(builtinEncoders))}
	for mimeType, factory := range builtinEncoders {
		r.factories[mimeType] = factory
	}
	return r
}

// Register adds or replaces an encoder.
func (r *EncoderRegistry) Register(mimeType string, factory EncoderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[NormalizeMimeType(mimeType)] = factory
}

// IsTypeSupported reports whether mimeType can be produced. The empty type
// stands for the default encoding.
func (r *EncoderRegistry) IsTypeSupported(mimeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[r.resolve(mimeType)]
	return ok
}

// Types lists the supported encodings.
func (r *EncoderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for mimeType := range r.factories {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}

// AnySupported reports whether at least one of the candidate encodings can
// be produced.
func (r *EncoderRegistry) AnySupported(candidates []string) bool {
	for _, candidate := range candidates {
		if r.IsTypeSupported(candidate) {
			return true
		}
	}
	return false
}

// New builds an encoder and reports the concrete encoding it produces.
func (r *EncoderRegistry) New(mimeType string, format ports.StreamFormat) (Encoder, string, error) {
	r.mu.RLock()
	resolved := r.resolve(mimeType)
	factory, ok := r.factories[resolved]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("unsupported encoding %q", mimeType)
	}
	encoder, err := factory(format)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s encoder: %w", resolved, err)
	}
	return encoder, resolved, nil
}

func (r *EncoderRegistry) resolve(mimeType string) string {
	normalized := NormalizeMimeType(mimeType)
	if normalized == "" {
		return DefaultMimeType
	}
	return normalized
}

// NormalizeMimeType lowercases a mime type and drops whitespace and quotes
// around parameter values.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return ""
	}
	parts := strings.Split(mimeType, ";")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if key, value, ok := strings.Cut(part, "="); ok {
			part = strings.TrimSpace(key) + "=" + strings.Trim(strings.TrimSpace(value), `"'`)
		}
		parts[i] = part
	}
	return strings.Join(parts, ";")
}
