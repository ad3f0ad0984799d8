package source

import (
	"context"

	"logcore/internal/message"
)

// ChanLineSource adapts a channel of RawRecord into the line-oriented
// contract message.MessageAssembler consumes: each RawRecord is already one
// complete, self-delimited unit of input, so a single TryReadToDelimiter
// call renders exactly one record (plus the requested delimiter) into out.
//
// This is the bridge between a running Adapter's output channel and an
// assembler shard; it carries no knowledge of any particular adapter.
type ChanLineSource struct {
	ctx context.Context
	in  <-chan RawRecord

	// last is the most recently received record, retained so callers can
	// attribute a parsed message back to its originating adapter/source.
	last RawRecord
}

// NewChanLineSource wraps in for consumption by a message.MessageAssembler.
// ctx governs how long a call to TryReadToDelimiter will wait for the next
// record; it should be the same context passed to the adapter's Run.
func NewChanLineSource(ctx context.Context, in <-chan RawRecord) *ChanLineSource {
	return &ChanLineSource{ctx: ctx, in: in}
}

// Last returns the RawRecord most recently rendered by TryReadToDelimiter.
func (s *ChanLineSource) Last() RawRecord { return s.last }

// TryReadToDelimiter implements message.LineSource. delim is appended to out
// when keepDelim is set, matching the convention every other LineSource
// observes even though the channel carries no delimiter of its own.
// appendMode is honored for contract symmetry, but a ChanLineSource never
// itself produces a partial read: each record arrives whole.
func (s *ChanLineSource) TryReadToDelimiter(delim byte, keepDelim, appendMode bool, out *[]byte) error {
	if !appendMode {
		*out = (*out)[:0]
	}

	select {
	case rr, ok := <-s.in:
		if !ok {
			return message.ErrEndOfFile
		}
		s.last = rr
		*out = append(*out, rr.Raw...)
		if keepDelim {
			*out = append(*out, delim)
		}
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
