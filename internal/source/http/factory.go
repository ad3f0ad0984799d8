package http

import (
	"log/slog"

	"github.com/google/uuid"

	"logcore/internal/source"
)

// NewFactory returns a source.Factory for HTTP (Loki push API) adapters.
func NewFactory() source.Factory {
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		addr := params["addr"]
		if addr == "" {
			addr = ":3100" // Loki's conventional push port
		}

		return New(Config{
			ID:     id.String(),
			Addr:   addr,
			Logger: logger,
		}), nil
	}
}
