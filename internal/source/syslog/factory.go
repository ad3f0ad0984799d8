package syslog

import (
	"log/slog"

	"github.com/google/uuid"

	"logcore/internal/source"
)

// NewFactory returns a source.Factory for generic (non-RELP) syslog adapters.
func NewFactory() source.Factory {
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		udpAddr := params["udp_addr"]
		tcpAddr := params["tcp_addr"]

		if udpAddr == "" && tcpAddr == "" {
			udpAddr = ":514"
		}

		return New(Config{
			ID:      id.String(),
			UDPAddr: udpAddr,
			TCPAddr: tcpAddr,
			Logger:  logger,
		}), nil
	}
}
