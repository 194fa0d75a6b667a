// Package config assembles runtime settings from defaults, an optional YAML
// file, the environment and SSM Parameter Store, in that order of precedence.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultKeyword        = "weather"
	defaultUserAgent      = "weather-agent"
	defaultGeocodeBaseURL = "https://geocode.xyz"
	defaultWeatherBaseURL = "https://api.weather.gov"
	defaultHTTPTimeout    = 10 * time.Second
	defaultMaxTurns       = 50
)

type Config struct {
	Keyword        string        `yaml:"keyword"`
	UserAgent      string        `yaml:"user_agent"`
	GeocodeBaseURL string        `yaml:"geocode_base_url"`
	WeatherBaseURL string        `yaml:"weather_base_url"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxTurns       int           `yaml:"max_turns"`
}

// ParamGetter reads SSM parameters; unknown names are absent from the result.
type ParamGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

func Default() Config {
	return Config{
		Keyword:        defaultKeyword,
		UserAgent:      defaultUserAgent,
		GeocodeBaseURL: defaultGeocodeBaseURL,
		WeatherBaseURL: defaultWeatherBaseURL,
		HTTPTimeout:    defaultHTTPTimeout,
		MaxTurns:       defaultMaxTurns,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Fields absent from the
// file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// an empty file decodes to io.EOF and leaves cfg untouched
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays environment variables onto cfg using lookup (os.LookupEnv in production).
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("WEATHER_KEYWORD", &cfg.Keyword)
	str("WEATHER_USER_AGENT", &cfg.UserAgent)
	str("GEOCODE_BASE_URL", &cfg.GeocodeBaseURL)
	str("WEATHER_BASE_URL", &cfg.WeatherBaseURL)

	if v, ok := lookup("HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("config: HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v, ok := lookup("MAX_TURNS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: MAX_TURNS: %w", err)
		}
		cfg.MaxTurns = n
	}
	return cfg, cfg.Validate()
}

// ApplyParams overlays SSM parameters stored under prefix onto cfg.
func ApplyParams(ctx context.Context, cfg Config, params ParamGetter, prefix string) (Config, error) {
	if params == nil {
		return cfg, errors.New("config: param getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return cfg, errors.New("config: parameter prefix must not be empty")
	}
	keywordName := prefix + "/config/keyword"
	userAgentName := prefix + "/config/user_agent"

	values, err := params.GetParameters(ctx, keywordName, userAgentName)
	if err != nil {
		return cfg, fmt.Errorf("config: load parameters: %w", err)
	}
	if v := strings.TrimSpace(values[keywordName]); v != "" {
		cfg.Keyword = v
	}
	if v := strings.TrimSpace(values[userAgentName]); v != "" {
		cfg.UserAgent = v
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Keyword) == "" {
		return errors.New("config: keyword must not be empty")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return errors.New("config: user agent must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: http timeout must be positive")
	}
	if c.MaxTurns <= 0 {
		return errors.New("config: max turns must be positive")
	}
	return nil
}
