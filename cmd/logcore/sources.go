package main

import (
	"log/slog"

	"github.com/google/uuid"

	"logcore/internal/home"
	"logcore/internal/source"
	"logcore/internal/source/file"
	"logcore/internal/source/http"
	"logcore/internal/source/kafka"
	"logcore/internal/source/mqtt"
	"logcore/internal/source/relp"
	"logcore/internal/source/syslog"
)

// buildFactories returns the factory map for every supported source adapter
// type. hd is threaded through to adapters (currently only "file") that
// persist bookmark state between restarts.
func buildFactories(hd home.Dir) map[string]source.Factory {
	return map[string]source.Factory{
		"file":   fileFactoryWithStateDir(hd),
		"kafka":  kafka.NewFactory(),
		"relp":   relp.NewFactory(),
		"mqtt":   mqtt.NewFactory(),
		"http":   http.NewFactory(),
		"syslog": syslog.NewFactory(),
	}
}

// fileFactoryWithStateDir wraps file.NewFactory so a source's "_state_dir"
// param defaults to the home directory's file-adapter state dir when unset.
func fileFactoryWithStateDir(hd home.Dir) source.Factory {
	base := file.NewFactory()
	stateDir := hd.StateDir("file")
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		if _, ok := params["_state_dir"]; !ok {
			params = withDefault(params, "_state_dir", stateDir)
		}
		return base(id, params, logger)
	}
}

// withDefault returns a copy of params with key set to value if key is
// absent, leaving the caller's map untouched.
func withDefault(params map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[key] = value
	return out
}
