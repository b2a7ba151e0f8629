package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ARENAMIC"

// Transcription providers.
const (
	ProviderServer   = "server"
	ProviderDeepgram = "deepgram"
	ProviderOpenAI   = "openai"
)

// Capture backends.
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendFFMPEG = "ffmpeg"
)

// DefaultEncodings is the recorder encoding priority list. The empty entry
// selects the platform default encoding.
var DefaultEncodings = []string{"audio/ogg;codecs=opus", "audio/ogg", ""}

// Config stores runtime configuration for the voice client.
type Config struct {
	Server        ServerConfig
	Transcription TranscriptionConfig
	Deepgram      DeepgramConfig
	OpenAI        OpenAIConfig
	Audio         AudioConfig
	Capture       CaptureConfig
	Log           LogConfig

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

type ServerConfig struct {
	BaseURL string
	Retries int
}

type TranscriptionConfig struct {
	Provider string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

type AudioConfig struct {
	Backend       string
	FFMPEGCommand string
	InputFormat   string
	InputDevice   string
	SampleRate    int
	Channels      int
	Encodings     []string
	Timeslice     time.Duration
}

type CaptureConfig struct {
	// PermissionTimeout bounds the wait for microphone access. Zero waits
	// indefinitely.
	PermissionTimeout time.Duration
	StopGrace         time.Duration
}

type LogConfig struct {
	Format string
	Level  string
	File   string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.retries", 2)
	v.SetDefault("transcription.provider", ProviderServer)
	v.SetDefault("deepgram.api_key", "")
	v.SetDefault("deepgram.api_base", "https://api.deepgram.com/v1")
	v.SetDefault("deepgram.model", "nova-2")
	v.SetDefault("deepgram.language", "")
	v.SetDefault("deepgram.smart_format", true)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "whisper-1")
	v.SetDefault("openai.language", "")
	v.SetDefault("audio.backend", BackendAuto)
	v.SetDefault("audio.ffmpeg_command", "ffmpeg")
	v.SetDefault("audio.input_format", "pulse")
	v.SetDefault("audio.input_device", "")
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.timeslice_ms", 1000)
	v.SetDefault("capture.permission_timeout_ms", 0)
	v.SetDefault("capture.stop_grace_ms", 4000)
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// Provider keys are also accepted under their conventional names.
	_ = v.BindEnv("deepgram.api_key", envPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")
	_ = v.BindEnv("openai.api_key", envPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	return v
}

// Load resolves configuration from an optional .env file, an optional YAML
// config file and ARENAMIC_* environment variables. cfgFile overrides the
// config file search.
func Load(cfgFile string) (Config, error) {
	_ = godotenv.Load()

	v := newViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		ConfigFile: v.ConfigFileUsed(),
		Server: ServerConfig{
			BaseURL: strings.TrimRight(stringOrDefault(v, "server.base_url", "http://localhost:5000"), "/"),
			Retries: nonNegativeIntOrDefault(v, "server.retries", 2),
		},
		Transcription: TranscriptionConfig{
			Provider: strings.ToLower(stringOrDefault(v, "transcription.provider", ProviderServer)),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(v.GetString("deepgram.api_key")),
			APIBaseURL:  stringOrDefault(v, "deepgram.api_base", "https://api.deepgram.com/v1"),
			Model:       stringOrDefault(v, "deepgram.model", "nova-2"),
			Language:    strings.TrimSpace(v.GetString("deepgram.language")),
			SmartFormat: boolOrDefault(v, "deepgram.smart_format", true),
		},
		OpenAI: OpenAIConfig{
			APIKey:   strings.TrimSpace(v.GetString("openai.api_key")),
			BaseURL:  strings.TrimSpace(v.GetString("openai.base_url")),
			Model:    stringOrDefault(v, "openai.model", "whisper-1"),
			Language: strings.TrimSpace(v.GetString("openai.language")),
		},
		Audio: AudioConfig{
			Backend:       strings.ToLower(stringOrDefault(v, "audio.backend", BackendAuto)),
			FFMPEGCommand: stringOrDefault(v, "audio.ffmpeg_command", "ffmpeg"),
			InputFormat:   stringOrDefault(v, "audio.input_format", "pulse"),
			InputDevice:   strings.TrimSpace(v.GetString("audio.input_device")),
			SampleRate:    positiveIntOrDefault(v, "audio.sample_rate", 44100),
			Channels:      positiveIntOrDefault(v, "audio.channels", 1),
			Encodings:     parseEncodings(v.Get("audio.encodings")),
			Timeslice:     time.Duration(positiveIntOrDefault(v, "audio.timeslice_ms", 1000)) * time.Millisecond,
		},
		Capture: CaptureConfig{
			PermissionTimeout: time.Duration(nonNegativeIntOrDefault(v, "capture.permission_timeout_ms", 0)) * time.Millisecond,
			StopGrace:         time.Duration(positiveIntOrDefault(v, "capture.stop_grace_ms", 4000)) * time.Millisecond,
		},
		Log: LogConfig{
			Format: strings.ToLower(stringOrDefault(v, "log.format", "text")),
			Level:  strings.ToLower(stringOrDefault(v, "log.level", "info")),
			File:   strings.TrimSpace(v.GetString("log.file")),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid server base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid server base url %q: scheme must be http or https", c.Server.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid server base url %q: missing host", c.Server.BaseURL)
	}

	switch c.Transcription.Provider {
	case ProviderServer, ProviderDeepgram, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported transcription provider %q", c.Transcription.Provider)
	}

	switch c.Audio.Backend {
	case BackendAuto, BackendNative, BackendFFMPEG:
	default:
		return fmt.Errorf("unsupported audio backend %q", c.Audio.Backend)
	}
	return nil
}

// parseEncodings accepts a comma separated string or a YAML list. "default"
// stands for the platform default encoding and "none" disables every
// encoding.
func parseEncodings(raw any) []string {
	var items []string
	switch value := raw.(type) {
	case nil:
		return append([]string(nil), DefaultEncodings...)
	case string:
		if strings.TrimSpace(value) == "" {
			return append([]string(nil), DefaultEncodings...)
		}
		items = strings.Split(value, ",")
	case []string:
		items = value
	case []any:
		for _, item := range value {
			items = append(items, fmt.Sprint(item))
		}
	default:
		return append([]string(nil), DefaultEncodings...)
	}

	encodings := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		switch strings.ToLower(item) {
		case "none":
			return []string{}
		case "", "default":
			encodings = append(encodings, "")
		default:
			encodings = append(encodings, item)
		}
	}
	return encodings
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "arenamic")
}

func stringOrDefault(v *viper.Viper, key string, fallback string) string {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(v *viper.Viper, key string, fallback int) (int, bool) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, false
	}
	return parsed, true
}

func positiveIntOrDefault(v *viper.Viper, key string, fallback int) int {
	parsed, ok := intOrDefault(v, key, fallback)
	if !ok || parsed <= 0 {
		return fallback
	}
	return parsed
}

func nonNegativeIntOrDefault(v *viper.Viper, key string, fallback int) int {
	parsed, ok := intOrDefault(v, key, fallback)
	if !ok || parsed < 0 {
		return fallback
	}
	return parsed
}

func boolOrDefault(v *viper.Viper, key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(v.GetString(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
