// Package classify provides the byte-level predicates shared by the message
// assembler and the wildcard query compiler: delimiters, wildcards, digits,
// and letters. These must stay byte-for-byte stable across producers and
// consumers of compiled queries (spec: compiled logtype queries are an
// on-disk-adjacent contract with the archive component).
package classify

// IsDelim reports whether b separates variables from surrounding text.
// The delimiter class is whitespace plus common punctuation; it does not
// include '*', '?', or '\\', which have their own meaning in wildcard
// queries.
func IsDelim(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r',
		',', ';', ':', '=', '(', ')', '[', ']', '{', '}',
		'"', '\'', '<', '>', '!', '|', '&':
		return true
	default:
		return false
	}
}

// IsWildcard reports whether b is a wildcard metacharacter.
func IsWildcard(b byte) bool {
	return b == '*' || b == '?'
}

// IsEscape reports whether b begins an escape sequence.
func IsEscape(b byte) bool {
	return b == '\\'
}

// IsDecimalDigit reports whether b is an ASCII decimal digit.
func IsDecimalDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// IsAlphabet reports whether b is an ASCII letter.
func IsAlphabet(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsHexDigit reports whether b is a hex digit (either case).
func IsHexDigit(b byte) bool {
	return IsDecimalDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
