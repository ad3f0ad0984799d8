package relp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"logcore/internal/source"
)

// writeRELPFrame writes a RELP frame: "TXNR SP COMMAND SP DATALEN SP DATA LF"
func writeRELPFrame(conn net.Conn, txnr int, command string, data string) {
	frame := fmt.Sprintf("%d %s %d %s\n", txnr, command, len(data), data)
	conn.Write([]byte(frame))
}

// readRELPResponse reads a RELP response frame and returns txnr, command, data.
// RELP frames: "TXNR SP COMMAND SP DATALEN SP DATA LF"
// DATA may contain newlines, so we must parse by DATALEN rather than reading lines.
func readRELPResponse(reader *bufio.Reader) (txnr int, command string, data string, err error) {
	txnrStr, err := readToken(reader)
	if err != nil {
		return 0, "", "", fmt.Errorf("read txnr: %w", err)
	}
	txnr, err = strconv.Atoi(txnrStr)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid txnr %q: %w", txnrStr, err)
	}

	command, err = readToken(reader)
	if err != nil {
		return 0, "", "", fmt.Errorf("read command: %w", err)
	}

	datalenStr, err := readToken(reader)
	if err != nil {
		return 0, "", "", fmt.Errorf("read datalen: %w", err)
	}
	datalen, err := strconv.Atoi(datalenStr)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid datalen %q: %w", datalenStr, err)
	}

	if datalen > 0 {
		buf := make([]byte, datalen)
		n := 0
		for n < datalen {
			nn, err := reader.Read(buf[n:])
			if err != nil {
				return 0, "", "", fmt.Errorf("read data: %w", err)
			}
			n += nn
		}
		data = string(buf)
	}

	b, err := reader.ReadByte()
	if err != nil {
		return txnr, command, data, nil // may not have trailing LF
	}
	if b != '\n' {
		reader.UnreadByte()
	}

	return txnr, command, data, nil
}

// readToken reads a space-delimited token from the reader.
func readToken(reader *bufio.Reader) (string, error) {
	var token []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return string(token), err
		}
		if b == ' ' {
			return string(token), nil
		}
		token = append(token, b)
	}
}

func TestRELPFactory(t *testing.T) {
	factory := NewFactory()

	adp, err := factory(uuid.New(), nil, nil)
	if err != nil {
		t.Fatalf("factory with nil params: %v", err)
	}
	if adp == nil {
		t.Fatal("expected non-nil adapter")
	}

	adp, err = factory(uuid.New(), map[string]string{"addr": ":9514"}, nil)
	if err != nil {
		t.Fatalf("factory with custom addr: %v", err)
	}
	if adp == nil {
		t.Fatal("expected non-nil adapter")
	}
}

func waitForAddr(t *testing.T, a *Adapter) net.Addr {
	t.Helper()
	var addr net.Addr
	for i := 0; i < 50; i++ {
		addr = a.Addr()
		if addr != nil {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("listener did not start")
	return nil
}

func TestRELPSession(t *testing.T) {
	out := make(chan source.RawRecord, 10)
	adp := New(Config{ID: "test-relp", Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- adp.Run(ctx, out)
	}()

	addr := waitForAddr(t, adp)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)

	offerData := "relp_version=0\nrelp_software=test\ncommands=syslog"
	writeRELPFrame(conn, 1, "open", offerData)

	txnr, cmd, _, err := readRELPResponse(reader)
	if err != nil {
		t.Fatalf("read open response: %v", err)
	}
	if txnr != 1 || cmd != "rsp" {
		t.Fatalf("unexpected open response: txnr=%d cmd=%s", txnr, cmd)
	}

	syslogMsg := "<34>Jan 15 10:22:15 router01 kernel: Interface eth0 down"
	writeRELPFrame(conn, 2, "syslog", syslogMsg)

	select {
	case rec := <-out:
		if string(rec.Raw) != syslogMsg {
			t.Errorf("expected raw %q, got %q", syslogMsg, rec.Raw)
		}
		if rec.Attrs["facility"] != "4" {
			t.Errorf("expected facility 4, got %q", rec.Attrs["facility"])
		}
		if rec.Attrs["severity"] != "2" {
			t.Errorf("expected severity 2, got %q", rec.Attrs["severity"])
		}
		if rec.Attrs["hostname"] != "router01" {
			t.Errorf("expected hostname router01, got %q", rec.Attrs["hostname"])
		}
		if rec.Attrs["remote_ip"] != "127.0.0.1" {
			t.Errorf("expected remote_ip 127.0.0.1, got %q", rec.Attrs["remote_ip"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
	}

	// The adapter acks as soon as the record is handed to out, with no
	// downstream confirmation (no archive/chunk-store collaborator here).
	txnr, cmd, rspData, err := readRELPResponse(reader)
	if err != nil {
		t.Fatalf("read syslog ack: %v", err)
	}
	if txnr != 2 || cmd != "rsp" {
		t.Fatalf("unexpected syslog ack: txnr=%d cmd=%s", txnr, cmd)
	}
	if !strings.Contains(rspData, "200 Ok") {
		t.Errorf("expected 200 Ok in ack data, got %q", rspData)
	}

	writeRELPFrame(conn, 3, "close", "")

	cancel()
}

func TestRELPMultipleMessages(t *testing.T) {
	out := make(chan source.RawRecord, 10)
	adp := New(Config{ID: "test-relp", Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go adp.Run(ctx, out)

	addr := waitForAddr(t, adp)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)

	writeRELPFrame(conn, 1, "open", "relp_version=0\nrelp_software=test\ncommands=syslog")
	readRELPResponse(reader) // consume open response

	for i := 2; i <= 4; i++ {
		msg := fmt.Sprintf("<34>Jan 15 10:22:15 host app: message %d", i)
		writeRELPFrame(conn, i, "syslog", msg)

		select {
		case rec := <-out:
			if string(rec.Raw) != msg {
				t.Errorf("message %d: expected %q, got %q", i, msg, rec.Raw)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}

		txnr, _, _, err := readRELPResponse(reader)
		if err != nil {
			t.Fatalf("read ack for message %d: %v", i, err)
		}
		if txnr != i {
			t.Errorf("expected ack txnr %d, got %d", i, txnr)
		}
	}

	cancel()
}

func TestRELPConnectionClose(t *testing.T) {
	out := make(chan source.RawRecord, 10)
	adp := New(Config{ID: "test-relp", Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go adp.Run(ctx, out)

	addr := waitForAddr(t, adp)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.Close()

	time.Sleep(100 * time.Millisecond)

	conn2, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("second dial failed (adapter may have crashed): %v", err)
	}
	conn2.Close()

	cancel()
}
