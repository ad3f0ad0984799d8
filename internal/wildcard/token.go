// Package wildcard implements the Wildcard Query Compiler: QueryTokenizer,
// CompositeWildcardToken interpretation enumeration, and SubQueryGenerator
// (spec.md §4.4–§4.6). Grounded in style on internal/querylang's
// lexer/glob machinery, and in algorithm on original_source's
// ffi::search::query_methods.cpp (tokenize_query, generate_subqueries,
// find_delimiter, find_wildcard_or_non_delimiter).
package wildcard

import (
	"logcore/internal/classify"
	"logcore/internal/varenc"
)

// ExactVariableToken is a substring of the query containing no wildcards,
// classified as a variable (spec.md §3).
type ExactVariableToken struct {
	Text    string
	Begin   int
	End     int
	Encoded varenc.Kind
}

func (t ExactVariableToken) begin() int { return t.Begin }
func (t ExactVariableToken) end() int   { return t.End }

// queryToken is the closed sum type produced by tokenization: either an
// ExactVariableToken or a *CompositeWildcardToken.
type queryToken interface {
	begin() int
	end() int
}

// QueryTokenizer splits a wildcard query into constant runs (left implicit,
// recovered by the caller from the gaps between token spans), exact-variable
// tokens, and composite-wildcard tokens.
type QueryTokenizer struct {
	query   string
	encoder varenc.Encoder
}

// NewQueryTokenizer creates a tokenizer for query using enc to resolve the
// VariableEncoder external contract (could_be_multi_digit_hex_value).
func NewQueryTokenizer(query string, enc varenc.Encoder) *QueryTokenizer {
	return &QueryTokenizer{query: query, encoder: enc}
}

// Tokenize runs the tokenizer once, producing all tokens in left-to-right
// order plus the subset that are composite wildcard tokens (for the
// enumerator driver). Tokenize is a pure function of (query, encoder):
// equal inputs yield byte-equal token vectors (spec.md §8 invariant 4).
func (qt *QueryTokenizer) Tokenize() ([]queryToken, []*CompositeWildcardToken) {
	var tokens []queryToken
	var composites []*CompositeWildcardToken

	endPos := 0
	for {
		beginPos := endPos
		containsWildcard, found := findWildcardOrNonDelimiter(qt.query, &beginPos)
		if !found {
			break
		}

		endPos = beginPos
		containsAlphabet := false
		containsDecimalDigit := false
		findDelimiter(qt.query, &endPos, &containsAlphabet, &containsDecimalDigit, &containsWildcard)

		if containsWildcard {
			if endPos-beginPos > 1 {
				c := newCompositeWildcardToken(qt.query, beginPos, endPos, qt.encoder)
				tokens = append(tokens, c)
				composites = append(composites, c)
			}
			continue
		}

		variable := qt.query[beginPos:endPos]
		precededByEquals := beginPos > 0 && qt.query[beginPos-1] == '='
		if containsDecimalDigit ||
			(precededByEquals && containsAlphabet) ||
			qt.encoder.CouldBeMultiDigitHexValue(variable) {
			tokens = append(tokens, ExactVariableToken{
				Text:  variable,
				Begin: beginPos,
				End:   endPos,
				Encoded: classifyFinal(qt.encoder, variable, containsDecimalDigit,
					precededByEquals, containsAlphabet),
			})
		}
	}

	return tokens, composites
}

// classifyFinal resolves the exact Kind using the flags already gathered by
// find_delimiter, mirroring the same precedence used inline above so the
// stored token carries its classification instead of recomputing it.
func classifyFinal(enc varenc.Encoder, s string, containsDecimalDigit, precededByEquals, containsAlphabet bool) varenc.Kind {
	if containsDecimalDigit {
		return varenc.KindDecimalDigit
	}
	if precededByEquals && containsAlphabet {
		return varenc.KindAssignmentAlpha
	}
	return varenc.KindMultiDigitHex
}

// findWildcardOrNonDelimiter implements Scanner A (spec.md §4.4): skip
// delimiters, stop at the first wildcard or non-delimiter character.
// Backslash escapes the next character; an escaped non-delimiter stops one
// position before the escape so the escape is preserved in the token span.
func findWildcardOrNonDelimiter(value string, pos *int) (containsWildcard, found bool) {
	isEscaped := false
	for ; *pos < len(value); *pos++ {
		c := value[*pos]

		if isEscaped {
			isEscaped = false
			if !classify.IsDelim(c) {
				*pos--
				return false, true
			}
			continue
		}
		if classify.IsEscape(c) {
			isEscaped = true
			continue
		}
		if classify.IsWildcard(c) {
			return true, true
		}
		if !classify.IsDelim(c) {
			return false, true
		}
	}
	return false, false
}

// findDelimiter implements Scanner B (spec.md §4.4): starting at a
// token-begin, advance until the next unescaped delimiter, recording
// whether the span contains a wildcard, a decimal digit, or an alphabetic
// character. An escaped delimiter stops one position before the escape so
// the escape stays outside the token.
func findDelimiter(value string, pos *int, containsAlphabet, containsDecimalDigit, containsWildcard *bool) {
	isEscaped := false
	for ; *pos < len(value); *pos++ {
		c := value[*pos]

		if isEscaped {
			isEscaped = false
			if classify.IsDelim(c) {
				*pos--
				return
			}
		} else if classify.IsEscape(c) {
			isEscaped = true
		} else {
			if classify.IsWildcard(c) {
				*containsWildcard = true
			} else if classify.IsDelim(c) {
				return
			}
		}

		if classify.IsDecimalDigit(c) {
			*containsDecimalDigit = true
		} else if classify.IsAlphabet(c) {
			*containsAlphabet = true
		}
	}
}
