package file

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"logcore/internal/logging"
	"logcore/internal/source"
)

// ParamDefaults returns the default parameter values for a file tail adapter.
func ParamDefaults() map[string]string {
	return map[string]string{
		"poll_interval": "30s",
	}
}

// NewFactory returns a source.Factory for file tail adapters.
func NewFactory() source.Factory {
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		cfg, err := parseConfig(id.String(), params, logger)
		if err != nil {
			return nil, err
		}
		return New(cfg), nil
	}
}

func parseConfig(id string, params map[string]string, logger *slog.Logger) (Config, error) {
	pathsJSON := params["paths"]
	if pathsJSON == "" {
		return Config{}, fmt.Errorf("file source %q: paths param required (JSON array of glob patterns)", id)
	}

	var patterns []string
	if err := json.Unmarshal([]byte(pathsJSON), &patterns); err != nil {
		return Config{}, fmt.Errorf("file source %q: invalid paths JSON: %w", id, err)
	}
	if len(patterns) == 0 {
		return Config{}, fmt.Errorf("file source %q: paths must contain at least one pattern", id)
	}

	pollInterval := 30 * time.Second
	if v := params["poll_interval"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("file source %q: invalid poll_interval %q: %w", id, v, err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("file source %q: poll_interval must be non-negative", id)
		}
		pollInterval = d
	}

	var stateFile string
	if stateDir := params["_state_dir"]; stateDir != "" {
		stateFile = filepath.Join(stateDir, id+".json")
	}

	return Config{
		ID:           id,
		Patterns:     patterns,
		PollInterval: pollInterval,
		StateFile:    stateFile,
		Logger:       logging.Default(logger).With("component", "source", "type", "file", "instance", id),
	}, nil
}
