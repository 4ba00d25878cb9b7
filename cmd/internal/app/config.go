package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime configuration.
//
// Precedence: environment variables > YAML file > defaults. The YAML file is
// optional and looked up at LOOM_CONFIG, then config/loom.yaml.
type Config struct {
	APIBaseURL string
	SocketURL  string
	StateDir   string

	LogLevel  string
	LogFormat string // "json" or "pretty"

	PageLimit     int
	TypingTimeout time.Duration

	DialTimeout       time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	SearchDebounce time.Duration

	// MetricsAddr serves Prometheus metrics when non-empty (e.g. ":9091").
	MetricsAddr string

	// Optional headless login at startup when no session is persisted.
	LoginUser     string
	LoginPassword string
}

// yamlConfig mirrors the file layout; durations are plain seconds.
type yamlConfig struct {
	APIBaseURL        string `yaml:"api_base_url"`
	SocketURL         string `yaml:"socket_url"`
	StateDir          string `yaml:"state_dir"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	PageLimit         int    `yaml:"page_limit"`
	TypingTimeoutSec  int    `yaml:"typing_timeout_seconds"`
	DialTimeoutSec    int    `yaml:"dial_timeout_seconds"`
	ReconnectAttempts int    `yaml:"reconnect_attempts"`
	ReconnectDelaySec int    `yaml:"reconnect_delay_seconds"`
	SearchDebounceMS  int    `yaml:"search_debounce_ms"`
	MetricsAddr       string `yaml:"metrics_addr"`
}

// LoadConfig loads Config from the optional YAML file and the environment.
func LoadConfig() Config {
	yc := yamlConfig{
		APIBaseURL:        "http://localhost:3000",
		SocketURL:         "ws://localhost:3000",
		LogLevel:          "info",
		LogFormat:         "json",
		PageLimit:         20,
		TypingTimeoutSec:  3,
		DialTimeoutSec:    10,
		ReconnectAttempts: 5,
		ReconnectDelaySec: 2,
		SearchDebounceMS:  500,
	}

	for _, path := range []string{os.Getenv("LOOM_CONFIG"), "config/loom.yaml"} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		_ = yaml.Unmarshal(data, &yc)
		break
	}

	stateDir := yc.StateDir
	if stateDir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			stateDir = filepath.Join(base, "loom")
		} else {
			stateDir = ".loom"
		}
	}

	return Config{
		APIBaseURL: EnvString("LOOM_API_BASE_URL", yc.APIBaseURL),
		SocketURL:  EnvString("LOOM_SOCKET_URL", yc.SocketURL),
		StateDir:   EnvString("LOOM_STATE_DIR", stateDir),

		LogLevel:  EnvString("LOOM_LOG_LEVEL", yc.LogLevel),
		LogFormat: EnvString("LOOM_LOG_FORMAT", yc.LogFormat),

		PageLimit:     EnvInt("LOOM_PAGE_LIMIT", yc.PageLimit),
		TypingTimeout: EnvDuration("LOOM_TYPING_TIMEOUT", secs(yc.TypingTimeoutSec, 3*time.Second)),

		DialTimeout:       EnvDuration("LOOM_DIAL_TIMEOUT", secs(yc.DialTimeoutSec, 10*time.Second)),
		ReconnectAttempts: EnvInt("LOOM_RECONNECT_ATTEMPTS", yc.ReconnectAttempts),
		ReconnectDelay:    EnvDuration("LOOM_RECONNECT_DELAY", secs(yc.ReconnectDelaySec, 2*time.Second)),

		SearchDebounce: EnvDuration("LOOM_SEARCH_DEBOUNCE", millis(yc.SearchDebounceMS, 500*time.Millisecond)),

		MetricsAddr: EnvString("LOOM_METRICS_ADDR", yc.MetricsAddr),

		LoginUser:     EnvString("LOOM_LOGIN_USER", ""),
		LoginPassword: EnvString("LOOM_LOGIN_PASSWORD", ""),
	}
}

func secs(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func millis(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvInt reads a positive int env var with a default.
func EnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// EnvDuration reads a duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
