// Package source defines the shared contract every byte-stream collaborator
// (file tail, Kafka, RELP, MQTT, HTTP, syslog) satisfies to feed the message assembler
// pipeline. It replaces internal/orchestrator's IngestMessage /
// IngesterFactory plumbing with the narrower shape this core actually needs:
// a stream of raw structured-line payloads, not a full chunk-store pipeline.
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RawRecord is one undelimited structured-line payload pulled from an
// external collaborator, tagged with provenance for logging.
type RawRecord struct {
	SourceID string
	Attrs    map[string]string
	Raw      []byte
	SourceTS time.Time
	IngestTS time.Time
}

// Adapter is the contract every ingestion source satisfies: run until ctx
// is cancelled or the source is exhausted, pushing records onto out. Run
// must not close out; the caller owns the channel's lifetime.
type Adapter interface {
	Run(ctx context.Context, out chan<- RawRecord) error
}

// Factory builds an Adapter from a declarative parameter map, mirroring the
// teacher's per-kind IngesterFactory signature.
type Factory func(id uuid.UUID, params map[string]string, logger *slog.Logger) (Adapter, error)
