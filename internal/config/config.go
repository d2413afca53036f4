package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// APIBaseURL is the root of the remote measurement service. Requests go
	// to APIBaseURL + "/antartida/datos/...".
	APIBaseURL string
	// APITimeout bounds one outbound request. Zero keeps the transport
	// default.
	APITimeout time.Duration

	// DefaultLocation pre-fills the time zone field of the form.
	DefaultLocation string
}

// fileConfig mirrors Config in the optional YAML file named by CONFIG_FILE.
// Environment variables override anything set there.
type fileConfig struct {
	AppEnv          string `yaml:"app_env"`
	LogLevel        string `yaml:"log_level"`
	HTTPAddr        string `yaml:"http_addr"`
	APIBaseURL      string `yaml:"api_base_url"`
	APITimeout      string `yaml:"api_timeout"`
	DefaultLocation string `yaml:"default_location"`
}

func LoadFromEnv() (Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}

	appEnv := setting("APP_ENV", file.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(setting("LOG_LEVEL", file.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := setting("HTTP_ADDR", file.HTTPAddr, ":8080")

	apiBaseURL := setting("API_BASE_URL", file.APIBaseURL, "http://localhost:8000")
	if err := validateBaseURL(apiBaseURL); err != nil {
		return Config{}, err
	}

	apiTimeoutStr := setting("API_TIMEOUT", file.APITimeout, "0s")
	apiTimeout, err := time.ParseDuration(apiTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid API_TIMEOUT %q: %w", apiTimeoutStr, err)
	}
	if apiTimeout < 0 {
		return Config{}, fmt.Errorf("invalid API_TIMEOUT %q: must not be negative", apiTimeoutStr)
	}

	defaultLocation := setting("DEFAULT_LOCATION", file.DefaultLocation, "Europe/Berlin")

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        httpAddr,
		APIBaseURL:      apiBaseURL,
		APITimeout:      apiTimeout,
		DefaultLocation: defaultLocation,
	}, nil
}

// setting returns the trimmed env value, else the file value, else def.
func setting(envKey, fileValue, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return def
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("CONFIG_FILE %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("CONFIG_FILE %q: decode yaml: %w", path, err)
	}
	return fc, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API_BASE_URL %q (scheme must be http or https)", raw)
	}
	if u.Host == "" {
		return errors.New("invalid API_BASE_URL: missing host")
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
