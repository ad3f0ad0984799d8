// Package relp provides a RELP (Reliable Event Logging Protocol) source
// adapter. RELP is a TCP-based reliable syslog transport with
// transaction-based acknowledgments, commonly used by rsyslog.
package relp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	gorelp "github.com/thierry-f-78/go-relp"

	"logcore/internal/ingester/syslogparse"
	"logcore/internal/logging"
	"logcore/internal/source"
)

// Adapter accepts syslog messages via the RELP protocol and feeds them to
// the assembler pipeline as source.RawRecord.
//
// Each RELP message is acknowledged as soon as its record has been handed
// to the output channel; there is no further confirmation from downstream
// consumers before the ack is sent.
type Adapter struct {
	id     string
	addr   string
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Config holds RELP adapter configuration.
type Config struct {
	// ID is the source's config identifier.
	ID string

	// Addr is the TCP address to listen on (e.g., ":2514").
	Addr string

	// Logger for structured logging.
	Logger *slog.Logger
}

// New creates a new RELP source adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		id:     cfg.ID,
		addr:   cfg.Addr,
		logger: logging.Default(cfg.Logger).With("component", "source", "type", "relp"),
	}
}

// Run starts the RELP TCP listener and blocks until ctx is cancelled.
func (r *Adapter) Run(ctx context.Context, out chan<- source.RawRecord) error {
	listener, err := net.Listen("tcp", r.addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()

	r.logger.Info("RELP listener starting", "addr", listener.Addr().String())

	var wg sync.WaitGroup
	defer func() {
		listener.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("RELP source stopping")
			return nil
		default:
		}

		// Set accept deadline to allow checking context.
		listener.(*net.TCPListener).SetDeadline(time.Now().Add(time.Second))

		conn, err := listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.logger.Warn("RELP accept error", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.handleConn(ctx, conn, out)
		}()
	}
}

// Addr returns the listener address. Only valid after Run() has started.
func (r *Adapter) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// handleConn handles a single RELP connection.
func (r *Adapter) handleConn(ctx context.Context, conn net.Conn, out chan<- source.RawRecord) {
	defer conn.Close()

	remoteIP := ""
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		remoteIP = tcpAddr.IP.String()
	}

	opts, err := gorelp.ValidateOptions(&gorelp.Options{
		Tls: gorelp.Opt_tls_disabled,
	})
	if err != nil {
		r.logger.Error("RELP options validation failed", "error", err)
		return
	}

	session, err := gorelp.NewTcp(conn, opts)
	if err != nil {
		r.logger.Debug("RELP session setup failed", "error", err, "remote", remoteIP)
		return
	}
	defer session.Close()

	r.logger.Debug("RELP session established", "remote", remoteIP)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := session.ReceiveLog()
		if err != nil {
			// ReceiveLog returns error on close or protocol error.
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Debug("RELP receive ended", "error", err, "remote", remoteIP)
			}
			return
		}

		attrs, sourceTS := syslogparse.ParseMessage(msg.Data, remoteIP)

		rr := source.RawRecord{
			SourceID: r.id,
			Attrs:    attrs,
			Raw:      msg.Data,
			SourceTS: sourceTS,
			IngestTS: time.Now(),
		}

		select {
		case out <- rr:
		case <-ctx.Done():
			return
		}

		if err := session.AnswerOk(msg); err != nil {
			r.logger.Debug("RELP answer ok failed", "error", err)
			return
		}
	}
}
