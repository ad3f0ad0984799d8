// Package varenc defines the VariableEncoder external contract (spec.md §6)
// and the EncodedVariableKind classification rule (spec.md §3). The real
// variable-encoding primitives that turn a recognized textual variable into
// a machine integer are an external collaborator per spec.md §1; this
// package supplies the contract plus one concrete default so the assembler
// and query compiler can be exercised end to end without the archive.
package varenc

import (
	"fmt"
	"strconv"
	"strings"

	"logcore/internal/classify"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind is the closed set of variable classifications.
type Kind int

const (
	// KindDecimalDigit is a token containing at least one decimal digit.
	KindDecimalDigit Kind = iota
	// KindMultiDigitHex is a token with no decimal digit or '='-alpha match
	// that could be parsed as a multi-digit hex value.
	KindMultiDigitHex
	// KindAssignmentAlpha is a token immediately preceded by '=' containing
	// at least one alphabetic character.
	KindAssignmentAlpha
)

func (k Kind) String() string {
	switch k {
	case KindDecimalDigit:
		return "decimal_digit"
	case KindMultiDigitHex:
		return "multi_digit_hex"
	case KindAssignmentAlpha:
		return "assignment_alpha"
	default:
		return "unknown"
	}
}

// Placeholder glyphs reserved for each variable kind in a logtype string.
// These bytes are part of the on-disk contract with the archive component
// (spec.md §6) and must never collide with ordinary text bytes.
const (
	PlaceholderDecimalDigit byte = 0x11
	PlaceholderMultiDigitHex byte = 0x12
	PlaceholderAssignmentAlpha byte = 0x13
)

// Placeholder returns the logtype placeholder glyph for kind.
func Placeholder(kind Kind) byte {
	switch kind {
	case KindDecimalDigit:
		return PlaceholderDecimalDigit
	case KindMultiDigitHex:
		return PlaceholderMultiDigitHex
	case KindAssignmentAlpha:
		return PlaceholderAssignmentAlpha
	default:
		return PlaceholderAssignmentAlpha
	}
}

// EncodedValue is the machine-integer (or packed string) form of a
// recognized variable, wire-encoded with msgpack so it has a stable,
// inspectable representation even though the archive that ultimately stores
// it is out of scope for this core.
type EncodedValue struct {
	Kind   Kind
	Text   string
	Packed []byte
}

// Encoder is the external contract a variable-encoding collaborator must
// satisfy. Classify (spec.md §3) delegates the hex-eligibility question to
// CouldBeMultiDigitHexValue rather than deciding it itself.
type Encoder interface {
	CouldBeMultiDigitHexValue(s string) bool
	Encode(kind Kind, s string) (EncodedValue, error)
}

// DefaultEncoder is a concrete Encoder sufficient to exercise the assembler
// and compiler without the real archive's encoding primitives.
type DefaultEncoder struct{}

// CouldBeMultiDigitHexValue reports whether s is at least two hex digits.
// Classify calls this either on an explicit "0x"-prefixed token's suffix, or
// as the final fallback once s is known not to contain a decimal digit and
// not to be an assignment-alpha token; in both cases wildcard glyphs have
// already been stripped from s by the caller.
func (DefaultEncoder) CouldBeMultiDigitHexValue(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !classify.IsHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// Encode packs s according to kind.
func (DefaultEncoder) Encode(kind Kind, s string) (EncodedValue, error) {
	switch kind {
	case KindDecimalDigit:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Falls back to packing the literal text: spec.md's
			// classification only requires "contains a decimal digit",
			// not that the whole token parses as a base-10 integer
			// (e.g. "v2.3" contains digits but isn't one integer).
			packed, perr := msgpack.Marshal(s)
			if perr != nil {
				return EncodedValue{}, fmt.Errorf("pack decimal-digit text %q: %w", s, perr)
			}
			return EncodedValue{Kind: kind, Text: s, Packed: packed}, nil
		}
		packed, err := msgpack.Marshal(n)
		if err != nil {
			return EncodedValue{}, fmt.Errorf("pack decimal value %d: %w", n, err)
		}
		return EncodedValue{Kind: kind, Text: s, Packed: packed}, nil

	case KindMultiDigitHex:
		n, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return EncodedValue{}, fmt.Errorf("parse hex value %q: %w", s, err)
		}
		packed, err := msgpack.Marshal(n)
		if err != nil {
			return EncodedValue{}, fmt.Errorf("pack hex value %q: %w", s, err)
		}
		return EncodedValue{Kind: kind, Text: s, Packed: packed}, nil

	case KindAssignmentAlpha:
		packed, err := msgpack.Marshal(s)
		if err != nil {
			return EncodedValue{}, fmt.Errorf("pack assignment-alpha text %q: %w", s, err)
		}
		return EncodedValue{Kind: kind, Text: s, Packed: packed}, nil

	default:
		return EncodedValue{}, fmt.Errorf("unknown variable kind %d", kind)
	}
}

// hasHexPrefix reports whether s opens with the conventional "0x"/"0X" radix
// marker. A token shaped like this is an explicit hex literal, not an
// ambiguous run of digits, so it is checked for hex eligibility ahead of the
// generic decimal-digit rule below.
func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// stripWildcards removes wildcard glyphs from s. A merged composite-token
// group can carry a literal wildcard run in its text (the bytes the tokenizer
// kept verbatim); a wildcard position imposes no constraint of its own on
// classification, so it is elided before any character-class scan runs.
func stripWildcards(s string) string {
	if !strings.ContainsAny(s, "*?") {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if classify.IsWildcard(s[i]) {
			continue
		}
		b = append(b, s[i])
	}
	return string(b)
}

// Classify implements the classification rule from spec.md §3, extended to
// cover merged composite-wildcard groups (spec.md §8 scenario 6): a token
// opening with an explicit "0x"/"0X" prefix is checked for hex eligibility
// before the generic decimal-digit rule, since the prefix marks it as a hex
// literal rather than an ambiguous numeric run, and any wildcard glyphs
// folded into s by a merged group are stripped before each check rather than
// disqualifying it outright. A token with no such prefix only qualifies as
// MultiDigitHex once it is at least minUnprefixedHexLen bytes long, so short
// all-hex-alphabet words ("abc", "bad", "cab") fall through to "not a
// variable" instead of being misread as hex. precedingByte is the byte
// immediately before s, used only for the AssignmentAlpha rule; hasPreceding
// is false when s starts at offset 0.
func Classify(enc Encoder, s string, precedingByte byte, hasPreceding bool) (Kind, bool) {
	containsDecimalDigit := false
	containsAlphabet := false
	for i := 0; i < len(s); i++ {
		if classify.IsWildcard(s[i]) {
			continue
		}
		if classify.IsDecimalDigit(s[i]) {
			containsDecimalDigit = true
		} else if classify.IsAlphabet(s[i]) {
			containsAlphabet = true
		}
	}

	if hasHexPrefix(s) && enc.CouldBeMultiDigitHexValue(stripWildcards(s[2:])) {
		return KindMultiDigitHex, true
	}
	if containsDecimalDigit {
		return KindDecimalDigit, true
	}
	if hasPreceding && precedingByte == '=' && containsAlphabet {
		return KindAssignmentAlpha, true
	}
	// Without an explicit "0x" marker, a run of plain hex-alphabet letters is
	// weak evidence on its own: "abc", "bad", "cab" are ordinary words, not
	// hex values. minUnprefixedHexLen raises the bar for that unmarked case
	// so short words don't get misclassified, while an explicit "0x" prefix
	// above is trusted down to CouldBeMultiDigitHexValue's own two-digit
	// floor since the prefix is itself the evidence.
	if stripped := stripWildcards(s); len(stripped) >= minUnprefixedHexLen && enc.CouldBeMultiDigitHexValue(stripped) {
		return KindMultiDigitHex, true
	}
	return 0, false
}

// minUnprefixedHexLen is the minimum length of a hex-alphabet run classified
// as MultiDigitHex when it carries no explicit "0x"/"0X" marker.
const minUnprefixedHexLen = 4
