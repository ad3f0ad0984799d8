package mqtt

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"logcore/internal/source"
)

// NewFactory returns a source.Factory for MQTT adapters.
func NewFactory() source.Factory {
	return func(id uuid.UUID, params map[string]string, logger *slog.Logger) (source.Adapter, error) {
		broker := params["broker"]
		if broker == "" {
			return nil, fmt.Errorf("mqtt source: broker param is required")
		}

		topic := params["topic"]
		if topic == "" {
			return nil, fmt.Errorf("mqtt source: topic param is required")
		}

		clientID := params["client_id"]
		if clientID == "" {
			clientID = "logcore-" + id.String()
		}

		qos, err := parseQoS(params["qos"])
		if err != nil {
			return nil, fmt.Errorf("mqtt source: %w", err)
		}

		return New(Config{
			ID:       id.String(),
			Broker:   broker,
			Topic:    topic,
			ClientID: clientID,
			QoS:      qos,
			Username: params["username"],
			Password: params["password"],
			Logger:   logger,
		}), nil
	}
}

func parseQoS(v string) (byte, error) {
	switch v {
	case "", "0":
		return 0, nil
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid qos %q (must be 0, 1, or 2)", v)
	}
}
