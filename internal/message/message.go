// Package message implements the Message Assembler: normalizing structured
// log lines and grouping consecutive lines sharing a timestamp into logical
// messages (spec.md §4.2, §4.3). Grounded in algorithm on original_source's
// MessageParser.cpp (parse_next_message, parse_line) and in Go idiom on the
// teacher's ingest pipeline stages under internal/ingester.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"logcore/internal/tspattern"
)

// ErrMalformedRecord is returned when a line cannot be parsed as a
// structured record carrying a log_time field.
var ErrMalformedRecord = errors.New("message: malformed record")

// ErrEndOfFile is returned by a LineSource when no more bytes are
// available. It is not itself an error condition for the assembler; a
// caller sees it converted into a plain false return, possibly after a
// final lookahead flush.
var ErrEndOfFile = errors.New("message: end of file")

// LineSource is the reader contract MessageAssembler consumes (spec.md §6).
// append instructs the source to continue a read that previously stopped
// without finding delim, appending further bytes onto the existing content
// of out rather than starting fresh.
type LineSource interface {
	TryReadToDelimiter(delim byte, keepDelim, appendMode bool, out *[]byte) error
}

// ParsedMessage accumulates one logical message: the pattern that matched
// its first line (nil if none did), that line's epoch, the concatenated
// content of every line folded into the message, and the timestamp span
// within that content (spec.md §3).
type ParsedMessage struct {
	Pattern        *tspattern.Pattern
	Epoch          int64
	Content        []byte
	TimestampBegin int
	TimestampEnd   int
}

// Empty reports whether m carries no content.
func (m *ParsedMessage) Empty() bool { return len(m.Content) == 0 }

// Consume transfers other's state into m and resets other to empty. The
// retained pattern hint is dropped in the process: a freshly consumed
// message starts the next accumulation from scratch (spec.md §9, "clears
// implicitly on consume").
func (m *ParsedMessage) Consume(other *ParsedMessage) {
	*m = *other
	*other = ParsedMessage{}
}

// ClearExceptTSPatt resets every field except the retained pattern, which
// is kept as a hint for the next line's timestamp search.
func (m *ParsedMessage) ClearExceptTSPatt() {
	*m = ParsedMessage{Pattern: m.Pattern}
}

// NormalizeStructuredLine extracts log_time from a JSON-object line and
// rewrites the line as "<log_time> <original line>" (spec.md §4.2). The
// trailing delimiter, if present on line, is preserved as part of the
// original-line suffix.
func NormalizeStructuredLine(line []byte) ([]byte, error) {
	var record struct {
		LogTime string `json:"log_time"`
	}
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if record.LogTime == "" {
		return nil, fmt.Errorf("%w: missing log_time field", ErrMalformedRecord)
	}

	out := make([]byte, 0, len(record.LogTime)+1+len(line))
	out = append(out, record.LogTime...)
	out = append(out, ' ')
	out = append(out, line...)
	return out, nil
}

// MessageAssembler groups a stream of structured lines into logical
// messages using a one-line lookahead (spec.md §4.3). Not safe for
// concurrent use; shard inputs and instantiate one assembler per shard.
type MessageAssembler struct {
	registry *tspattern.Registry
	buffered ParsedMessage
	line     []byte // reader-backed scratch: bytes read so far for the in-flight line
}

// NewMessageAssembler creates an assembler that resolves timestamps against
// reg.
func NewMessageAssembler(reg *tspattern.Registry) *MessageAssembler {
	return &MessageAssembler{registry: reg}
}

// searchTimestamp tries the lookahead's retained pattern first (the common
// case for homogeneous streams), falling back to a full registry search.
func (a *MessageAssembler) searchTimestamp(line []byte) (pat *tspattern.Pattern, epoch int64, begin, end int, found bool) {
	if hint := a.buffered.Pattern; hint != nil {
		if epoch, begin, end, ok := a.registry.ParseWith(hint, line); ok {
			return hint, epoch, begin, end, true
		}
	}
	return a.registry.Search(line)
}

// processLine runs the four-branch line-processing algorithm (spec.md
// §4.3) for one already-delimited (or drained) line, returning true iff out
// was populated with a complete message.
func (a *MessageAssembler) processLine(rawLine []byte, out *ParsedMessage) (bool, error) {
	normalized, err := NormalizeStructuredLine(rawLine)
	if err != nil {
		return false, err
	}

	pat, epoch, begin, end, found := a.searchTimestamp(normalized)
	bufferEmpty := a.buffered.Empty()

	switch {
	case found && bufferEmpty:
		a.buffered = ParsedMessage{Pattern: pat, Epoch: epoch, Content: normalized, TimestampBegin: begin, TimestampEnd: end}
		return false, nil

	case found && !bufferEmpty:
		out.Consume(&a.buffered)
		a.buffered = ParsedMessage{Pattern: pat, Epoch: epoch, Content: normalized, TimestampBegin: begin, TimestampEnd: end}
		return true, nil

	case !found && bufferEmpty:
		*out = ParsedMessage{Content: normalized}
		return true, nil

	default: // !found && !bufferEmpty
		a.buffered.Content = append(a.buffered.Content, normalized...)
		return false, nil
	}
}

// ParseNextFromBuffer is the buffer-backed shape of parse_next. cursor is
// advanced past every line consumed, including a drained partial trailing
// line. When the cursor reaches the end of buf, a non-empty lookahead is
// flushed into out and true is returned. Returns false when no message
// completed: either buf is exhausted with an empty lookahead, or drain is
// false and only a partial trailing line remains. In the latter case cursor
// is left at the start of that partial line; complete lines read before it
// in the same call stay consumed, along with any lookahead they filled.
func (a *MessageAssembler) ParseNextFromBuffer(buf []byte, cursor *int, drain bool, out *ParsedMessage) (bool, error) {
	for {
		if *cursor >= len(buf) {
			if !a.buffered.Empty() {
				out.Consume(&a.buffered)
				return true, nil
			}
			return false, nil
		}

		var rawLine []byte
		if idx := bytes.IndexByte(buf[*cursor:], '\n'); idx >= 0 {
			end := *cursor + idx + 1
			rawLine = buf[*cursor:end]
			*cursor = end
		} else {
			if !drain {
				return false, nil
			}
			rawLine = buf[*cursor:]
			*cursor = len(buf)
		}

		produced, err := a.processLine(rawLine, out)
		if err != nil {
			return false, err
		}
		if produced {
			return true, nil
		}
	}
}

// ParseNextFromReader is the stream-backed shape of parse_next.
func (a *MessageAssembler) ParseNextFromReader(src LineSource, drain bool, out *ParsedMessage) (bool, error) {
	for {
		err := src.TryReadToDelimiter('\n', true, len(a.line) > 0, &a.line)
		if err != nil {
			if !errors.Is(err, ErrEndOfFile) {
				return false, fmt.Errorf("message: read line: %w", err)
			}

			if len(a.line) > 0 {
				if !drain {
					return false, nil
				}
				rawLine := a.line
				a.line = nil
				produced, perr := a.processLine(rawLine, out)
				if perr != nil {
					return false, perr
				}
				if produced {
					return true, nil
				}
				continue
			}

			if !a.buffered.Empty() {
				out.Consume(&a.buffered)
				return true, nil
			}
			return false, nil
		}

		rawLine := a.line
		a.line = nil
		produced, perr := a.processLine(rawLine, out)
		if perr != nil {
			return false, perr
		}
		if produced {
			return true, nil
		}
	}
}
