package config

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// KeyPrefix marks an environment variable as a per-language API key.
	KeyPrefix = "WIT_API_KEY_"

	DefaultEndpoint        = "wss://api.wit.ai/speech_ws"
	DefaultSampleRate      = 16000
	DefaultFramesPerBuffer = 1024
	DefaultChannels        = 1
	DefaultLogLevel        = "info"
	DefaultEnvFile         = ".env"
)

var (
	ErrNoCredentials   = errors.New("at least one Wit.ai API key must be provided")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// legacyLanguages maps the long variable suffixes used by older .env files
// to the language codes users type at the prompt.
var legacyLanguages = map[string]string{
	"ENGLISH": "EN",
	"ARABIC":  "AR",
	"FRENCH":  "FR",
}

// Credentials is an immutable language code -> API key map.
type Credentials struct {
	keys map[string]string
}

// NewCredentials copies keys, normalising codes to upper case and
// skipping empty values.
func NewCredentials(keys map[string]string) Credentials {
	c := Credentials{keys: make(map[string]string, len(keys))}
	for code, key := range keys {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || key == "" {
			continue
		}
		c.keys[code] = key
	}
	return c
}

// Lookup returns the key for a language code, ignoring case.
func (c Credentials) Lookup(code string) (string, bool) {
	key, ok := c.keys[strings.ToUpper(strings.TrimSpace(code))]
	return key, ok
}

// Languages returns the configured codes in sorted order.
func (c Credentials) Languages() []string {
	codes := make([]string, 0, len(c.keys))
	for code := range c.keys {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (c Credentials) Len() int { return len(c.keys) }

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Credentials     Credentials
	Endpoint        string
	SampleRate      int
	FramesPerBuffer int
	Channels        int
	Device          string
	LogLevel        string

	// EnvFiles lists the dotenv files Load actually read.
	EnvFiles []string
}

// Load reads the given dotenv files into the process environment and
// builds a Config from it. With no files, a missing .env is not an error.
func Load(files ...string) (*Config, error) {
	var loaded []string
	if len(files) == 0 {
		err := godotenv.Load(DefaultEnvFile)
		switch {
		case err == nil:
			loaded = []string{DefaultEnvFile}
		case !os.IsNotExist(errors.Cause(err)):
			return nil, errors.Wrapf(err, "load %s", DefaultEnvFile)
		}
	} else {
		if err := godotenv.Load(files...); err != nil {
			return nil, errors.Wrapf(err, "load %s", strings.Join(files, ", "))
		}
		loaded = files
	}

	cfg, err := FromEnviron(os.Environ())
	if err != nil {
		return nil, err
	}
	cfg.EnvFiles = loaded
	return cfg, nil
}

// FromEnviron builds a Config from KEY=VALUE pairs.
func FromEnviron(environ []string) (*Config, error) {
	keys := make(map[string]string)
	cfg := &Config{
		Endpoint:        DefaultEndpoint,
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
		Channels:        DefaultChannels,
		LogLevel:        DefaultLogLevel,
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.HasPrefix(name, KeyPrefix):
			if value == "" {
				continue
			}
			code := strings.ToUpper(strings.TrimPrefix(name, KeyPrefix))
			if short, ok := legacyLanguages[code]; ok {
				code = short
			}
			keys[code] = value
		case name == "WIT_ENDPOINT" && value != "":
			cfg.Endpoint = value
		case name == "WIT_AUDIO_DEVICE":
			cfg.Device = value
		case name == "WIT_LOG_LEVEL" && value != "":
			cfg.LogLevel = value
		}
	}

	cfg.Credentials = NewCredentials(keys)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants every component relies on.
func (c *Config) Validate() error {
	if c.Credentials.Len() == 0 {
		return ErrNoCredentials
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return errors.Wrapf(ErrInvalidEndpoint, "%s: %v", c.Endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Wrapf(ErrInvalidEndpoint, "%s: scheme must be ws or wss", c.Endpoint)
	}
	if c.SampleRate <= 0 || c.FramesPerBuffer <= 0 || c.Channels <= 0 {
		return errors.New("sample rate, frames per buffer and channels must be positive")
	}
	return nil
}
