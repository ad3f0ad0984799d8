package message

import (
	"bytes"
	"errors"
	"testing"

	"logcore/internal/tspattern"
)

// chunkedSource feeds bytes to TryReadToDelimiter in fixed-size pieces so
// tests can exercise the append/partial-read contract without a real
// network or file reader.
type chunkedSource struct {
	data      []byte
	pos       int
	chunkSize int
}

func (s *chunkedSource) TryReadToDelimiter(delim byte, keepDelim, appendMode bool, out *[]byte) error {
	if !appendMode {
		*out = (*out)[:0]
	}
	for {
		if s.pos >= len(s.data) {
			return ErrEndOfFile
		}
		end := s.pos + s.chunkSize
		if end > len(s.data) {
			end = len(s.data)
		}
		chunk := s.data[s.pos:end]
		if idx := bytes.IndexByte(chunk, delim); idx >= 0 {
			limit := idx + 1
			if !keepDelim {
				limit = idx
			}
			*out = append(*out, chunk[:limit]...)
			s.pos += idx + 1
			return nil
		}
		*out = append(*out, chunk...)
		s.pos = end
	}
}

func record(logTime, msg string) string {
	return `{"log_time":"` + logTime + `","msg":"` + msg + `"}` + "\n"
}

func TestNormalizeStructuredLine(t *testing.T) {
	line := []byte(record("2024-01-01T00:00:00Z", "hello"))
	out, err := NormalizeStructuredLine(line)
	if err != nil {
		t.Fatal(err)
	}
	want := "2024-01-01T00:00:00Z " + string(line)
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestNormalizeStructuredLine_Malformed(t *testing.T) {
	_, err := NormalizeStructuredLine([]byte("not json"))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestNormalizeStructuredLine_MissingLogTime(t *testing.T) {
	_, err := NormalizeStructuredLine([]byte(`{"msg":"hi"}`))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

// TestScenario1_OneMessagePerTimestampedLine covers spec.md §8 scenario 1
// and invariant 1 (round-trip assembly).
func TestScenario1_OneMessagePerTimestampedLine(t *testing.T) {
	reg := tspattern.DefaultRegistry()
	a := NewMessageAssembler(reg)
	buf := []byte(record("2024-01-01 00:00:00", "a") + record("2024-01-01 00:00:01", "b"))
	cursor := 0

	var msgs []ParsedMessage
	for {
		var out ParsedMessage
		ok, err := a.ParseNextFromBuffer(buf, &cursor, true, &out)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		msgs = append(msgs, out)
	}

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Epoch != 1704067200000 {
		t.Errorf("first epoch = %d, want 1704067200000", msgs[0].Epoch)
	}
	if msgs[1].Epoch != 1704067201000 {
		t.Errorf("second epoch = %d, want 1704067201000", msgs[1].Epoch)
	}
	if string(msgs[0].Content) != "2024-01-01 00:00:00 "+record("2024-01-01 00:00:00", "a") {
		t.Errorf("first content = %q", msgs[0].Content)
	}
}

// TestScenario2_ContinuationLinesGroup covers spec.md §8 scenario 2 and
// invariant 2 (grouping).
func TestScenario2_ContinuationLinesGroup(t *testing.T) {
	reg := tspattern.DefaultRegistry()
	a := NewMessageAssembler(reg)
	l1 := record("2024-01-01 00:00:00", "boom")
	// Continuation lines are records whose log_time holds no recognizable
	// timestamp; a line that is not a record at all is rejected.
	c1 := record("continuation", "  at frame1")
	c2 := record("continuation", "  at frame2")
	l2 := record("2024-01-01 00:00:05", "next")
	buf := []byte(l1 + c1 + c2 + l2)
	cursor := 0

	want1 := "2024-01-01 00:00:00 " + l1 + "continuation " + c1 + "continuation " + c2
	want2 := "2024-01-01 00:00:05 " + l2

	var out1, out2 ParsedMessage
	ok, err := a.ParseNextFromBuffer(buf, &cursor, true, &out1)
	if err != nil || !ok {
		t.Fatalf("first parse: ok=%v err=%v", ok, err)
	}
	if string(out1.Content) != want1 {
		t.Errorf("grouped content = %q, want %q", out1.Content, want1)
	}

	ok, err = a.ParseNextFromBuffer(buf, &cursor, true, &out2)
	if err != nil || !ok {
		t.Fatalf("second parse: ok=%v err=%v", ok, err)
	}
	if string(out2.Content) != want2 {
		t.Errorf("second content = %q, want %q", out2.Content, want2)
	}
}

// TestScenario3_DrainSafety covers spec.md §8 scenario 3 and invariant 3.
func TestScenario3_DrainSafety(t *testing.T) {
	reg := tspattern.DefaultRegistry()
	full := record("2024-01-01 00:00:00", "a")

	// Single drain=true call on the complete buffer.
	a1 := NewMessageAssembler(reg)
	buf1 := []byte(full)
	c1 := 0
	var out1 ParsedMessage
	ok, err := a1.ParseNextFromBuffer(buf1, &c1, true, &out1)
	if err != nil || !ok {
		t.Fatalf("full drain: ok=%v err=%v", ok, err)
	}

	// Partial buffer without trailing newline, drain=false.
	partial := full[:len(full)-1] // strip trailing '\n'
	a2 := NewMessageAssembler(reg)
	buf2 := []byte(partial)
	c2 := 0
	var out2 ParsedMessage
	ok, err = a2.ParseNextFromBuffer(buf2, &c2, false, &out2)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false on incomplete trailing line with drain=false")
	}
	if c2 != 0 {
		t.Errorf("cursor advanced on incomplete line: %d", c2)
	}

	// Supply the remainder and retry with drain=false.
	buf2 = []byte(full)
	ok, err = a2.ParseNextFromBuffer(buf2, &c2, false, &out2)
	if err != nil || !ok {
		t.Fatalf("second call: ok=%v err=%v", ok, err)
	}

	if string(out1.Content) != string(out2.Content) || out1.Epoch != out2.Epoch {
		t.Errorf("drain sequences diverged: %+v vs %+v", out1, out2)
	}
}

func TestParseNextFromBuffer_NoTimestampNoContext(t *testing.T) {
	reg := tspattern.DefaultRegistry()
	a := NewMessageAssembler(reg)
	line := []byte(`{"log_time":"not-a-real-timestamp","msg":"x"}` + "\n")
	buf := line
	cursor := 0
	var out ParsedMessage
	ok, err := a.ParseNextFromBuffer(buf, &cursor, true, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected standalone message for untimestamped line with no context")
	}
	if out.Pattern != nil {
		t.Errorf("expected nil pattern for unparseable log_time")
	}
}

func TestParseNextFromReader_ChunkedAndDrained(t *testing.T) {
	reg := tspattern.DefaultRegistry()
	a := NewMessageAssembler(reg)
	full := record("2024-01-01 00:00:00", "a") + record("2024-01-01 00:00:01", "b")
	src := &chunkedSource{data: []byte(full), chunkSize: 5}

	var msgs []ParsedMessage
	for {
		var out ParsedMessage
		ok, err := a.ParseNextFromReader(src, true, &out)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		msgs = append(msgs, out)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestParsedMessage_ConsumeResetsSource(t *testing.T) {
	src := ParsedMessage{Content: []byte("hi"), Epoch: 5}
	var dst ParsedMessage
	dst.Consume(&src)
	if string(dst.Content) != "hi" || dst.Epoch != 5 {
		t.Errorf("dst not populated: %+v", dst)
	}
	if !src.Empty() {
		t.Errorf("src not reset: %+v", src)
	}
}

func TestParsedMessage_ClearExceptTSPatt(t *testing.T) {
	pat := &tspattern.Pattern{Name: "x"}
	m := ParsedMessage{Pattern: pat, Content: []byte("hi"), Epoch: 9}
	m.ClearExceptTSPatt()
	if m.Pattern != pat {
		t.Error("pattern not retained")
	}
	if !m.Empty() {
		t.Error("content not cleared")
	}
}
