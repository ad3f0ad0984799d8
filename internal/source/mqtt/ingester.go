// Package mqtt provides an MQTT subscriber source adapter using
// paho.mqtt.golang. Each message payload published to the subscribed topic
// is fed to the assembler pipeline as one structured log line.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"logcore/internal/logging"
	"logcore/internal/source"
)

// Config holds MQTT adapter configuration.
type Config struct {
	ID       string
	Broker   string // e.g. "tcp://localhost:1883"
	Topic    string
	ClientID string
	QoS      byte
	Username string
	Password string //nolint:gosec // G117: config field, not a hardcoded credential
	Logger   *slog.Logger
}

// Adapter subscribes to an MQTT topic and feeds published payloads to the
// assembler pipeline.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new MQTT source adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "source", "type", "mqtt"),
	}
}

// Run connects to the broker, subscribes to the configured topic, and
// blocks until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, out chan<- source.RawRecord) error {
	opts := paho.NewClientOptions().
		AddBroker(a.cfg.Broker).
		SetClientID(a.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if a.cfg.Username != "" {
		opts.SetUsername(a.cfg.Username)
		opts.SetPassword(a.cfg.Password)
	}

	errs := make(chan error, 1)
	opts.SetOnConnectHandler(func(client paho.Client) {
		token := client.Subscribe(a.cfg.Topic, a.cfg.QoS, func(_ paho.Client, msg paho.Message) {
			payload := make([]byte, len(msg.Payload()))
			copy(payload, msg.Payload())

			rr := source.RawRecord{
				SourceID: a.cfg.ID,
				Attrs: map[string]string{
					"mqtt_topic": msg.Topic(),
				},
				Raw:      payload,
				IngestTS: time.Now(),
			}

			select {
			case out <- rr:
			case <-ctx.Done():
			}
		})
		if token.Wait() && token.Error() != nil {
			select {
			case errs <- fmt.Errorf("mqtt subscribe: %w", token.Error()):
			default:
			}
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		a.logger.Warn("mqtt connection lost", "error", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	a.logger.Info("mqtt subscriber started", "broker", a.cfg.Broker, "topic", a.cfg.Topic)

	select {
	case <-ctx.Done():
		a.logger.Info("mqtt subscriber stopping")
		return nil
	case err := <-errs:
		return err
	}
}
