// Package kafka provides a Kafka consumer source adapter using franz-go.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"logcore/internal/logging"
	"logcore/internal/source"
)

// SASLConfig holds SASL authentication parameters.
type SASLConfig struct {
	Mechanism string // "plain", "scram-sha-256", "scram-sha-512"
	User      string
	Password  string //nolint:gosec // G117: config field, not a hardcoded credential
}

// Config holds Kafka adapter configuration.
type Config struct {
	ID      string
	Brokers []string
	Topic   string
	Group   string
	TLS     bool
	SASL    *SASLConfig
	Logger  *slog.Logger
}

// Adapter consumes records from a Kafka topic, one record per structured
// log line, and feeds them to the assembler pipeline as source.RawRecord.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new Kafka source adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "source", "type", "kafka"),
	}
}

// Run connects to Kafka and polls records until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, out chan<- source.RawRecord) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(a.cfg.Brokers...),
		kgo.ConsumeTopics(a.cfg.Topic),
		kgo.ConsumerGroup(a.cfg.Group),
	}

	if a.cfg.TLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		}))
	}

	if a.cfg.SASL != nil {
		mech, err := buildSASLMechanism(a.cfg.SASL)
		if err != nil {
			return err
		}
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	a.logger.Info("kafka consumer started",
		"brokers", a.cfg.Brokers,
		"topic", a.cfg.Topic,
		"group", a.cfg.Group,
	)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			a.logger.Info("kafka consumer stopping")
			_ = client.CommitUncommittedOffsets(context.Background())
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				a.logger.Warn("kafka fetch error",
					"topic", e.Topic,
					"partition", e.Partition,
					"error", e.Err,
				)
			}
		}

		now := time.Now()

		fetches.EachRecord(func(rec *kgo.Record) {
			attrs := make(map[string]string, len(rec.Headers)+4)
			attrs["kafka_topic"] = rec.Topic
			attrs["kafka_partition"] = strconv.Itoa(int(rec.Partition))
			attrs["kafka_offset"] = strconv.FormatInt(rec.Offset, 10)

			for _, h := range rec.Headers {
				attrs[h.Key] = string(h.Value)
			}

			rr := source.RawRecord{
				SourceID: a.cfg.ID,
				Attrs:    attrs,
				Raw:      rec.Value,
				SourceTS: rec.Timestamp,
				IngestTS: now,
			}

			select {
			case out <- rr:
			case <-ctx.Done():
			}
		})
	}
}

// buildSASLMechanism constructs the appropriate SASL mechanism.
func buildSASLMechanism(cfg *SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "plain":
		return plain.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsMechanism(), nil
	case "scram-sha-256":
		return scram.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsSha256Mechanism(), nil
	case "scram-sha-512":
		return scram.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %q", cfg.Mechanism)
	}
}
