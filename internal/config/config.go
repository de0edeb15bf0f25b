package config

import (
	"fmt"
	"os"
	"time"

	"github.com/bhandras/kixsync/pkg/logger"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultPollTimeout  = 60 * time.Second
	defaultPollInterval = time.Second
	defaultPort         = "8080"
	defaultPollWindow   = 20 * time.Second
)

type Config struct {
	// DocURL is the document edit URL used when a command gets none.
	DocURL string
	// LogLevel is the minimum level that gets logged.
	LogLevel logger.Level
	// Timeout bounds every request other than the long-poll.
	Timeout time.Duration
	// PollTimeout bounds one long-poll.
	PollTimeout time.Duration
	// PollInterval is the pause between syncs in watch mode.
	PollInterval time.Duration

	// Debug enables verbose logging.
	Debug bool

	// Port is the listen port of the fake document service.
	Port string
	// PollWindow is how long the fake service holds a long-poll open.
	PollWindow time.Duration
}

// Load loads configuration from environment and defaults
func Load() (*Config, error) {
	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1"

	level, err := logger.ParseLevel(os.Getenv("KIXSYNC_LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("invalid KIXSYNC_LOG_LEVEL: %w", err)
	}
	if debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}

	timeout, err := getenvDuration("KIXSYNC_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, err
	}
	pollTimeout, err := getenvDuration("KIXSYNC_POLL_TIMEOUT", defaultPollTimeout)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getenvDuration("KIXSYNC_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}
	pollWindow, err := getenvDuration("FAKEDOCS_POLL_WINDOW", defaultPollWindow)
	if err != nil {
		return nil, err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	return &Config{
		DocURL:       os.Getenv("KIXSYNC_DOC_URL"),
		LogLevel:     level,
		Timeout:      timeout,
		PollTimeout:  pollTimeout,
		PollInterval: pollInterval,
		Debug:        debug,
		Port:         port,
		PollWindow:   pollWindow,
	}, nil
}

// getenvDuration parses key as a time.Duration, falling back to def when
// unset.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, val)
	}
	return d, nil
}
