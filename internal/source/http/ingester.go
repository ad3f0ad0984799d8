// Package http provides a source adapter that accepts structured lines via
// the Loki push API (POST /loki/api/v1/push), so shippers that already speak
// that protocol (Promtail, Grafana Alloy, Fluent Bit) can feed this core
// without a translation hop.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"logcore/internal/ingester/bodyutil"
	"logcore/internal/logging"
	"logcore/internal/source"
)

// Attribute limits to prevent abuse.
const (
	maxAttrs        = 32  // maximum number of attributes per line
	maxAttrKeyLen   = 64  // maximum length of attribute key
	maxAttrValueLen = 256 // maximum length of attribute value
)

// Adapter accepts structured lines via the Loki push API and feeds them to
// the assembler pipeline as source.RawRecord.
type Adapter struct {
	id       string
	addr     string
	listener net.Listener
	server   *http.Server
	out      chan<- source.RawRecord
	logger   *slog.Logger
}

// Config holds HTTP adapter configuration.
type Config struct {
	// ID is the source's config identifier.
	ID string

	// Addr is the address to listen on (e.g., ":3100", "127.0.0.1:3100").
	Addr string

	// Logger for structured logging.
	Logger *slog.Logger
}

// New creates a new HTTP source adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		id:     cfg.ID,
		addr:   cfg.Addr,
		logger: logging.Default(cfg.Logger).With("component", "source", "type", "http"),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, out chan<- source.RawRecord) error {
	a.out = out

	onlyMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != method {
				w.Header().Set("Allow", method)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, req)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/loki/api/v1/push", onlyMethod(http.MethodPost, a.handlePush))
	mux.HandleFunc("/api/prom/push", onlyMethod(http.MethodPost, a.handlePush)) // legacy alias
	mux.HandleFunc("/ready", onlyMethod(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	a.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	a.listener, err = net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}

	a.logger.Info("http source starting", "addr", a.listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("http source stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the listener address. Only valid after Run() has started.
func (a *Adapter) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// PushRequest is the Loki push API request format.
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a stream of log entries with shared labels.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values []Value           `json:"values"`
}

// Value is a log entry: [timestamp, line] or [timestamp, line, metadata].
// Timestamp is nanoseconds since epoch as a string.
type Value []json.RawMessage

func (a *Adapter) handlePush(w http.ResponseWriter, req *http.Request) {
	if c := cap(a.out); c > 0 && len(a.out) >= c*9/10 {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "queue full, retry later", http.StatusTooManyRequests)
		return
	}

	records, ok := a.decodePushBody(w, req)
	if !ok {
		return
	}
	if len(records) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	for _, rr := range records {
		select {
		case a.out <- rr:
		case <-req.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) decodePushBody(w http.ResponseWriter, req *http.Request) ([]source.RawRecord, bool) {
	data, err := bodyutil.ReadBody(req.Body, req.Header.Get("Content-Encoding"), 10<<20)
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	var pushReq PushRequest
	if err := json.Unmarshal(data, &pushReq); err != nil {
		a.logger.Warn("failed to parse push request", "error", err)
		http.Error(w, "invalid JSON in request body", http.StatusBadRequest)
		return nil, false
	}

	var records []source.RawRecord
	for _, stream := range pushReq.Streams {
		for _, val := range stream.Values {
			rr, err := a.parseValue(val, stream.Stream)
			if err != nil {
				a.logger.Warn("failed to parse stream value", "error", err)
				http.Error(w, "invalid stream entry", http.StatusBadRequest)
				return nil, false
			}
			records = append(records, rr)
		}
	}
	return records, true
}

// parseValue converts a Loki value into a source.RawRecord.
func (a *Adapter) parseValue(val Value, streamLabels map[string]string) (source.RawRecord, error) {
	if len(val) < 2 {
		return source.RawRecord{}, errors.New("value must have at least 2 elements [timestamp, line]")
	}

	var tsStr string
	if err := json.Unmarshal(val[0], &tsStr); err != nil {
		return source.RawRecord{}, fmt.Errorf("timestamp must be a string: %w", err)
	}
	tsNanos, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return source.RawRecord{}, fmt.Errorf("invalid timestamp %q: %w", tsStr, err)
	}
	sourceTS := time.Unix(0, tsNanos)

	var line string
	if err := json.Unmarshal(val[1], &line); err != nil {
		return source.RawRecord{}, fmt.Errorf("log line must be a string: %w", err)
	}

	attrs := make(map[string]string, min(len(streamLabels), maxAttrs))
	for k, v := range streamLabels {
		if err := addAttr(attrs, k, v); err != nil {
			return source.RawRecord{}, fmt.Errorf("stream label: %w", err)
		}
	}

	if len(val) >= 3 {
		var metadata map[string]string
		if err := json.Unmarshal(val[2], &metadata); err != nil {
			return source.RawRecord{}, fmt.Errorf("metadata must be an object: %w", err)
		}
		for k, v := range metadata {
			if err := addAttr(attrs, k, v); err != nil {
				return source.RawRecord{}, fmt.Errorf("metadata: %w", err)
			}
		}
	}

	return source.RawRecord{
		SourceID: a.id,
		Attrs:    attrs,
		Raw:      []byte(line),
		SourceTS: sourceTS,
		IngestTS: time.Now(),
	}, nil
}

func addAttr(attrs map[string]string, key, value string) error {
	if len(attrs) >= maxAttrs {
		return fmt.Errorf("too many attributes (max %d)", maxAttrs)
	}
	if len(key) > maxAttrKeyLen {
		return fmt.Errorf("attribute key too long: %d > %d", len(key), maxAttrKeyLen)
	}
	if len(value) > maxAttrValueLen {
		return fmt.Errorf("attribute value too long: %d > %d", len(value), maxAttrValueLen)
	}
	attrs[key] = value
	return nil
}
