// Package tspattern implements the TimestampPatternRegistry: an immutable,
// process-wide, first-fit list of recognized timestamp formats.
//
// Grounded on internal/digester/timestamp for the set of recognized
// formats, but restructured around the registry's Pattern abstraction
// (spec.md §4.1): each Pattern pairs a declarative locator (a
// prefixTemplate describing the byte-class shape of its format's start)
// with a decoder built from shared combinators (extendFraction, tryLayouts,
// rolloverToCurrentYear), rather than one extractor function per format.
// The locator templates and decode combinators are reused across patterns
// that share structure (syslog BSD and ctime both reuse
// dayPaddingLayouts/rolloverToCurrentYear; RFC 3339 and Apple unified share
// extendFraction).
package tspattern

import (
	"time"

	"logcore/internal/classify"
)

// Pattern is an immutable descriptor: a recognizer capable of finding its
// format inside a candidate line, and the numeric conversion rule. Patterns
// are owned by the Registry and share its (process) lifetime; callers must
// treat a *Pattern as a non-owning reference.
type Pattern struct {
	// Name identifies the pattern for logging and tests.
	Name string

	locate func(line []byte) int
	decode func(line []byte, pos int) (epochMillis int64, end int, ok bool)
}

// Parse attempts to parse a timestamp belonging to this pattern out of line.
// It returns the signed 64-bit millisecond epoch and the [begin, end) byte
// span of the timestamp within line. ok is false if the pattern does not
// occur in line.
func (p *Pattern) Parse(line []byte) (epochMillis int64, begin, end int, ok bool) {
	pos := p.locate(line)
	if pos < 0 {
		return 0, 0, 0, false
	}
	epoch, end, ok := p.decode(line, pos)
	if !ok {
		return 0, 0, 0, false
	}
	return epoch, pos, end, true
}

// Registry is the static, ordered list of known timestamp patterns. The zero
// value is not usable; use NewRegistry or DefaultRegistry.
type Registry struct {
	patterns []*Pattern
}

// NewRegistry builds a registry from an explicit, ordered pattern list. Order
// determines first-fit priority in Search.
func NewRegistry(patterns []*Pattern) *Registry {
	return &Registry{patterns: patterns}
}

// DefaultRegistry returns the registry of built-in timestamp formats. It
// holds five patterns, in declared first-fit priority order:
//
//   - rfc3339:    RFC 3339 / ISO 8601 (2024-01-15T10:30:45.123456Z) and,
//     via the same entry, Apple unified log (2024-01-15 10:30:45.123456-0800)
//   - syslog_bsd: Syslog BSD (RFC 3164): Jan  5 15:04:02
//   - clf:        Common Log Format: [02/Jan/2006:15:04:05 -0700]
//   - go_ruby:    Go/Ruby datestamp: 2024/01/15 10:30:45
//   - ctime:      Ctime / BSD: Fri Feb 13 17:49:50.028 2026
//
// A ctime stamp contains a syslog BSD stamp after its weekday, so Search
// reports ctime-formatted lines as syslog_bsd (without the fraction or the
// year); the ctime pattern itself is reached through ParseWith or a
// registry that orders it before syslog_bsd.
func DefaultRegistry() *Registry {
	return NewRegistry([]*Pattern{
		{Name: "rfc3339", locate: dateDashTemplate.locate, decode: decodeDateDash},
		{Name: "syslog_bsd", locate: monthPrefixTemplate.locate, decode: decodeSyslogBSD},
		{Name: "clf", locate: clfPrefixTemplate.locate, decode: decodeCLF},
		{Name: "go_ruby", locate: dateSlashTemplate.locate, decode: decodeGoRuby},
		{Name: "ctime", locate: weekdayMonthTemplate.locate, decode: decodeCtime},
	})
}

// Patterns returns the registry's patterns in declared first-fit order.
// The returned slice is owned by the caller; Registry is otherwise
// immutable and this does not expose a way to mutate it.
func (r *Registry) Patterns() []*Pattern {
	return append([]*Pattern(nil), r.patterns...)
}

// ParseWith attempts exactly one pattern against line. This is the retained
// per-message hint path: callers try the pattern that matched the previous
// line in this message before falling back to Search.
func (r *Registry) ParseWith(p *Pattern, line []byte) (epochMillis int64, begin, end int, ok bool) {
	return p.Parse(line)
}

// Search scans the registry in declared order and returns the first pattern
// that matches line, along with its parsed epoch and span. Returns ok=false
// if no pattern matches.
func (r *Registry) Search(line []byte) (p *Pattern, epochMillis int64, begin, end int, ok bool) {
	for _, pat := range r.patterns {
		if epoch, b, e, matched := pat.Parse(line); matched {
			return pat, epoch, b, e, true
		}
	}
	return nil, 0, 0, 0, false
}

// --- declarative locator engine ---
//
// Every pattern's locator reduces to the same shape: scan for the earliest
// fixed-width window whose bytes satisfy a declared sequence of per-position
// classes (digit, upper-case letter, lower-case letter, or an exact byte),
// plus an optional whole-window check for constraints a byte class can't
// express (month/weekday dictionary membership). prefixTemplate captures
// that shape once; each format supplies only its declaration.

type classFn func(b byte) bool

func digit(b byte) bool { return classify.IsDecimalDigit(b) }
func upper(b byte) bool { return b >= 'A' && b <= 'Z' }
func lower(b byte) bool { return b >= 'a' && b <= 'z' }
func exact(want byte) classFn {
	return func(b byte) bool { return b == want }
}

type prefixTemplate struct {
	width   int
	classes []classFn
	extra   func(window []byte) bool
}

func (t prefixTemplate) locate(raw []byte) int {
	for i := 0; i+t.width <= len(raw); i++ {
		if t.matches(raw[i : i+t.width]) {
			return i
		}
	}
	return -1
}

func (t prefixTemplate) matches(w []byte) bool {
	for i, c := range t.classes {
		if !c(w[i]) {
			return false
		}
	}
	return t.extra == nil || t.extra(w)
}

var monthAbbrev = map[string]bool{
	"Jan": true, "Feb": true, "Mar": true, "Apr": true, "May": true, "Jun": true,
	"Jul": true, "Aug": true, "Sep": true, "Oct": true, "Nov": true, "Dec": true,
}

var weekdayAbbrev = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true, "Fri": true, "Sat": true, "Sun": true,
}

var (
	// dateDashTemplate matches YYYY-MM-DD, the shared prefix of RFC 3339 and
	// Apple unified log timestamps (disambiguated later by the byte at the
	// date/time separator).
	dateDashTemplate = prefixTemplate{
		width:   10,
		classes: []classFn{digit, digit, digit, digit, exact('-'), digit, digit, exact('-'), digit, digit},
	}
	// dateSlashTemplate matches YYYY/MM/DD (Go/Ruby datestamps).
	dateSlashTemplate = prefixTemplate{
		width:   10,
		classes: []classFn{digit, digit, digit, digit, exact('/'), digit, digit, exact('/'), digit, digit},
	}
	// monthPrefixTemplate matches a 3-letter month abbreviation followed by
	// a space (syslog BSD).
	monthPrefixTemplate = prefixTemplate{
		width:   4,
		classes: []classFn{upper, lower, lower, exact(' ')},
		extra:   func(w []byte) bool { return monthAbbrev[string(w[:3])] },
	}
	// clfPrefixTemplate matches "[DD/Mon/" (Common Log Format).
	clfPrefixTemplate = prefixTemplate{
		width:   8,
		classes: []classFn{exact('['), digit, digit, exact('/'), upper, lower, lower, exact('/')},
	}
	// weekdayMonthTemplate matches "Dow Mon " (ctime/BSD). The width covers
	// the full minimum timestamp length so a candidate too close to the end
	// of the line is rejected before decode is ever attempted.
	weekdayMonthTemplate = prefixTemplate{
		width:   19,
		classes: []classFn{upper, lower, lower, exact(' '), upper, lower, lower, exact(' ')},
		extra: func(w []byte) bool {
			return weekdayAbbrev[string(w[0:3])] && monthAbbrev[string(w[4:7])]
		},
	}
)

// --- shared decode combinators ---

func epochMillis(t time.Time) int64 { return t.UnixMilli() }

// extendDigits advances end past a run of decimal digits starting at end.
func extendDigits(r []byte, end int) int {
	for end < len(r) && classify.IsDecimalDigit(r[end]) {
		end++
	}
	return end
}

// extendFraction advances past an optional ".NNN" fractional-seconds
// suffix beginning at end, reporting the new offset and the number of
// fractional digits consumed (0 if none present).
func extendFraction(r []byte, end int) (newEnd, digits int) {
	if end >= len(r) || r[end] != '.' {
		return end, 0
	}
	start := end + 1
	newEnd = extendDigits(r, start)
	return newEnd, newEnd - start
}

// fracLayout returns the time.Parse fractional-seconds layout fragment for
// n digits of precision (e.g. 3 -> ".000"). n<=0 yields no fraction.
func fracLayout(n int) string {
	const zeros = ".000000000"
	if n <= 0 {
		return ""
	}
	if n > len(zeros)-1 {
		n = len(zeros) - 1
	}
	return zeros[:n+1]
}

// tryLayouts attempts to parse s against each layout in order, returning the
// first success. Patterns with two day-padding conventions ("Jan  2" vs
// "Jan 02") try both via this helper rather than duplicating the loop.
func tryLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// dayPaddingLayouts returns both space- and zero-padded day layouts for a
// "Mon Day <suffix>" timestamp, since BSD-ish formats allow either
// "Jan  2" or "Jan 02".
func dayPaddingLayouts(suffix string) []string {
	return []string{"Jan  2 " + suffix, "Jan 02 " + suffix}
}

// rolloverToCurrentYear anchors a year-less timestamp to the most recent
// past occurrence of its month/day/time, so a line timestamped just before
// midnight on December 31st is not misread as being from the future when
// processed early the following January.
func rolloverToCurrentYear(ts, now time.Time) time.Time {
	ts = ts.AddDate(now.Year(), 0, 0)
	if ts.After(now.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts
}

// --- RFC 3339 / Apple unified log ---

func decodeDateDash(raw []byte, pos int) (int64, int, bool) {
	r := raw[pos:]
	if len(r) < 19 {
		return 0, 0, false
	}
	switch r[10] {
	case 'T':
		return decodeRFC3339(r, pos)
	case ' ':
		return decodeAppleUnified(r, pos)
	default:
		return 0, 0, false
	}
}

func decodeRFC3339(r []byte, pos int) (int64, int, bool) {
	if len(r) < 20 || r[13] != ':' || r[16] != ':' {
		return 0, 0, false
	}

	end, _ := extendFraction(r, 19)
	if end >= len(r) {
		return 0, 0, false
	}

	switch r[end] {
	case 'Z':
		end++
	case '+', '-':
		if end+6 > len(r) {
			return 0, 0, false
		}
		end += 6
	default:
		return 0, 0, false
	}

	ts, err := time.Parse(time.RFC3339Nano, string(r[:end]))
	if err != nil {
		return 0, 0, false
	}
	return epochMillis(ts), pos + end, true
}

func decodeAppleUnified(r []byte, pos int) (int64, int, bool) {
	if len(r) < 19 || r[13] != ':' || r[16] != ':' {
		return 0, 0, false
	}

	end, fracDigits := extendFraction(r, 19)

	hasTZ := end+5 <= len(r) && (r[end] == '+' || r[end] == '-') &&
		classify.IsDecimalDigit(r[end+1]) && classify.IsDecimalDigit(r[end+2]) &&
		classify.IsDecimalDigit(r[end+3]) && classify.IsDecimalDigit(r[end+4])
	if hasTZ {
		end += 5
	}

	format := "2006-01-02 15:04:05" + fracLayout(fracDigits)
	if hasTZ {
		format += "-0700"
	}

	ts, err := time.Parse(format, string(r[:end]))
	if err != nil {
		return 0, 0, false
	}
	return epochMillis(ts), pos + end, true
}

// --- Syslog BSD (RFC 3164) ---

func decodeSyslogBSD(raw []byte, pos int) (int64, int, bool) {
	r := raw[pos:]
	if len(r) < 15 || r[3] != ' ' || r[6] != ' ' || r[9] != ':' || r[12] != ':' {
		return 0, 0, false
	}

	ts, ok := tryLayouts(string(r[:15]), dayPaddingLayouts("15:04:05"))
	if !ok {
		return 0, 0, false
	}
	return epochMillis(rolloverToCurrentYear(ts, time.Now())), pos + 15, true
}

// --- Common Log Format ---

func decodeCLF(raw []byte, pos int) (int64, int, bool) {
	r := raw[pos:]
	if len(r) < 28 {
		return 0, 0, false
	}
	end := 1
	for end < len(r) && end < 32 && r[end] != ']' {
		end++
	}
	if end >= len(r) || r[end] != ']' {
		return 0, 0, false
	}
	ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", string(r[1:end]))
	if err != nil {
		return 0, 0, false
	}
	return epochMillis(ts), pos + end + 1, true
}

// --- Go/Ruby ---

func decodeGoRuby(raw []byte, pos int) (int64, int, bool) {
	r := raw[pos:]
	if len(r) < 19 || r[10] != ' ' || r[13] != ':' || r[16] != ':' {
		return 0, 0, false
	}
	ts, err := time.Parse("2006/01/02 15:04:05", string(r[:19]))
	if err != nil {
		return 0, 0, false
	}
	return epochMillis(ts), pos + 19, true
}

// --- Ctime / BSD ---

func decodeCtime(raw []byte, pos int) (int64, int, bool) {
	r := raw[pos:]
	if len(r) < 19 {
		return 0, 0, false
	}

	after := r[4:] // past "Dow "
	if len(after) < 15 || after[3] != ' ' || after[6] != ' ' || after[9] != ':' || after[12] != ':' {
		return 0, 0, false
	}

	end, fracDigits := extendFraction(after, 15)
	hasFrac := fracDigits > 0

	hasYear := end+5 <= len(after) && after[end] == ' ' &&
		classify.IsDecimalDigit(after[end+1]) && classify.IsDecimalDigit(after[end+2]) &&
		classify.IsDecimalDigit(after[end+3]) && classify.IsDecimalDigit(after[end+4])
	if hasYear {
		end += 5
	}

	suffix := "15:04:05"
	if hasFrac {
		suffix += fracLayout(fracDigits)
	}
	if hasYear {
		suffix += " 2006"
	}

	ts, ok := tryLayouts(string(after[:end]), dayPaddingLayouts(suffix))
	if !ok {
		return 0, 0, false
	}
	if !hasYear {
		ts = rolloverToCurrentYear(ts, time.Now())
	}
	return epochMillis(ts), pos + 4 + end, true
}
