package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"logcore/internal/message"
)

func TestChanLineSourceRendersOneRecordPerCall(t *testing.T) {
	in := make(chan RawRecord, 2)
	in <- RawRecord{SourceID: "s1", Raw: []byte("first")}
	in <- RawRecord{SourceID: "s1", Raw: []byte("second")}

	src := NewChanLineSource(context.Background(), in)

	var buf []byte
	if err := src.TryReadToDelimiter('\n', true, false, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf) != "first\n" {
		t.Errorf("got %q, want %q", buf, "first\n")
	}
	if src.Last().Raw == nil || string(src.Last().Raw) != "first" {
		t.Errorf("Last() = %+v, want Raw=\"first\"", src.Last())
	}

	if err := src.TryReadToDelimiter('\n', false, false, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf) != "second" {
		t.Errorf("got %q, want %q", buf, "second")
	}
}

func TestChanLineSourceClosedChannelReturnsEOF(t *testing.T) {
	in := make(chan RawRecord)
	close(in)

	src := NewChanLineSource(context.Background(), in)

	var buf []byte
	err := src.TryReadToDelimiter('\n', true, false, &buf)
	if !errors.Is(err, message.ErrEndOfFile) {
		t.Fatalf("expected message.ErrEndOfFile, got %v", err)
	}
}

func TestChanLineSourceContextCancellation(t *testing.T) {
	in := make(chan RawRecord)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewChanLineSource(ctx, in)

	var buf []byte
	err := src.TryReadToDelimiter('\n', true, false, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestChanLineSourceAppendMode(t *testing.T) {
	in := make(chan RawRecord, 1)
	in <- RawRecord{Raw: []byte("payload")}
	src := NewChanLineSource(context.Background(), in)

	buf := []byte("prefix:")
	if err := src.TryReadToDelimiter(0, false, true, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf) != "prefix:payload" {
		t.Errorf("got %q, want %q", buf, "prefix:payload")
	}
}

func TestChanLineSourceBlocksUntilRecordArrives(t *testing.T) {
	in := make(chan RawRecord)
	src := NewChanLineSource(context.Background(), in)

	done := make(chan struct{})
	var buf []byte
	var err error
	go func() {
		err = src.TryReadToDelimiter('\n', true, false, &buf)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("TryReadToDelimiter returned before a record was sent")
	case <-time.After(50 * time.Millisecond):
	}

	in <- RawRecord{Raw: []byte("late")}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TryReadToDelimiter did not return after record was sent")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf) != "late\n" {
		t.Errorf("got %q, want %q", buf, "late\n")
	}
}
