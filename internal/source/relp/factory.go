package relp

import (
	"log/slog"

	"github.com/google/uuid"

	"logcore/internal/source"
)

// NewFactory returns a source.Factory for RELP adapters.
func NewFactory() source.Factory {
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		addr := params["addr"]
		if addr == "" {
			addr = ":2514" // RELP convention port
		}

		return New(Config{
			ID:     id.String(),
			Addr:   addr,
			Logger: logger,
		}), nil
	}
}
