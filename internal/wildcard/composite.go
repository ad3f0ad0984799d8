package wildcard

import (
	"logcore/internal/classify"
	"logcore/internal/varenc"
)

// run is one maximal contiguous piece of a composite token's span: either a
// run of wildcard characters or a run of everything else (literal bytes,
// including escaped characters with their leading backslash stripped).
type run struct {
	text       string
	isWildcard bool
}

// WildcardToken is one variable sub-span produced by an interpretation of a
// CompositeWildcardToken: a literal-plus-wildcard span whose wildcards
// constrain (rather than determine) the matching variable's text.
type WildcardToken struct {
	Text    string
	Begin   int
	End     int
	Encoded varenc.Kind
}

// CompositeWildcardToken is a query span containing at least one wildcard
// and spanning more than one character (spec.md §4.4). It enumerates every
// partition of its span into alternating constant and variable sub-spans
// consistent with the classification rule (spec.md §4.5).
type CompositeWildcardToken struct {
	query            string
	Begin, End       int
	runs             []run
	wildcardRunIdx   []int // indices into runs that are wildcard runs
	precededByEquals bool
	encoder          varenc.Encoder

	cursor uint64 // bitmask over wildcardRunIdx; bit=1 merges the run into its flanking variable span
}

func (t *CompositeWildcardToken) begin() int { return t.Begin }
func (t *CompositeWildcardToken) end() int   { return t.End }

// newCompositeWildcardToken splits query[begin:end) into literal/wildcard
// runs, unescaping backslash sequences in the literal runs as it goes
// (escaped characters lose their leading backslash, matching the effect
// find_wildcard_or_non_delimiter/find_delimiter already had in locating the
// span, exactly as the original tokenizer strips escapes from stored tokens).
func newCompositeWildcardToken(query string, begin, end int, enc varenc.Encoder) *CompositeWildcardToken {
	t := &CompositeWildcardToken{
		query:            query,
		Begin:            begin,
		End:              end,
		encoder:          enc,
		precededByEquals: begin > 0 && query[begin-1] == '=',
	}

	var cur []byte
	curIsWildcard := false
	flush := func() {
		if len(cur) > 0 {
			t.runs = append(t.runs, run{text: string(cur), isWildcard: curIsWildcard})
			cur = nil
		}
	}

	escaped := false
	for i := begin; i < end; i++ {
		c := query[i]
		if escaped {
			escaped = false
			if curIsWildcard {
				flush()
				curIsWildcard = false
			}
			cur = append(cur, c)
			continue
		}
		if classify.IsEscape(c) {
			escaped = true
			continue
		}
		isWildcard := classify.IsWildcard(c)
		if isWildcard != curIsWildcard {
			flush()
			curIsWildcard = isWildcard
		}
		cur = append(cur, c)
	}
	flush()

	for i, r := range t.runs {
		if r.isWildcard {
			t.wildcardRunIdx = append(t.wildcardRunIdx, i)
		}
	}

	return t
}

// interpretationCount returns 2^k, k being the number of wildcard runs. A
// token with k=0 wildcard runs cannot occur: a composite token always
// contains at least one wildcard run by construction.
func (t *CompositeWildcardToken) interpretationCount() uint64 {
	return uint64(1) << uint(len(t.wildcardRunIdx))
}

// GenerateNextInterpretation advances to the next of the 2^k interpretations
// of this token's span and reports whether it is a fresh one (false once the
// cursor has cycled back to the first interpretation, so a caller driving an
// odometer across sibling composite tokens knows when to carry into the next
// token, spec.md §4.5).
func (t *CompositeWildcardToken) GenerateNextInterpretation() bool {
	t.cursor++
	if t.cursor >= t.interpretationCount() {
		t.cursor = 0
		return false
	}
	return true
}

// Reset returns the token to its first interpretation (all wildcard runs
// unmerged).
func (t *CompositeWildcardToken) Reset() { t.cursor = 0 }

// group is one merge group of the current interpretation: either a maximal
// run of literal runs bridged across wildcard runs whose merge bit is set to
// 1 (merged == true, eligible for classification), or a single run standing
// alone because no adjacent wildcard was ever folded into it (merged ==
// false — plain unmerged literal text, or a lone unmerged wildcard run).
// Literal text that was never actually bridged with a wildcard is never a
// classification candidate on its own; only a group a wildcard was folded
// into can become a variable (spec.md §8 scenarios 5 and 6: the unmerged
// interpretation of a composite token must render as plain constant text,
// not trigger independent classification of its flanking literal runs).
type group struct {
	begin, end int // byte offsets within t.query
	text       string
	merged     bool
}

// groupsFor computes the merge groups for a given cursor value by walking
// runs left to right. A wildcard run with its bit set merges into whatever
// group is open (attaching forward if none is open yet, backward otherwise)
// and marks that group merged; a wildcard run with its bit clear closes any
// open group and stands alone, unmerged.
func (t *CompositeWildcardToken) groupsFor(cursor uint64) []group {
	var groups []group
	var pending *group
	pos := t.Begin

	wcBit := func(runIdx int) bool {
		for bit, idx := range t.wildcardRunIdx {
			if idx == runIdx {
				return cursor&(1<<uint(bit)) != 0
			}
		}
		return false
	}

	flush := func() {
		if pending != nil {
			groups = append(groups, *pending)
			pending = nil
		}
	}

	for i, r := range t.runs {
		// Step over the run's bytes in t.query, including the escape
		// backslashes its unescaped text no longer holds.
		end := pos
		for n := 0; n < len(r.text); n++ {
			if classify.IsEscape(t.query[end]) {
				end++
			}
			end++
		}
		switch {
		case !r.isWildcard:
			if pending == nil {
				pending = &group{begin: pos, end: end, text: r.text}
			} else {
				pending.text += r.text
				pending.end = end
			}
		case wcBit(i):
			if pending == nil {
				pending = &group{begin: pos, end: end, text: r.text, merged: true}
			} else {
				pending.text += r.text
				pending.end = end
				pending.merged = true
			}
		default:
			flush()
			groups = append(groups, group{begin: pos, end: end, text: r.text})
		}
		pos = end
	}
	flush()

	return groups
}

// AddToQuery renders the current interpretation, appending each group's
// constant text to logtype (with variable groups replaced by their kind's
// placeholder glyph) and appending each classified group as a vars entry.
// An interpretation that classifies no group at all still renders validly:
// the whole span becomes constant text (spec.md §4.5: "always resolves one
// way").
func (t *CompositeWildcardToken) AddToQuery(logtype *[]byte, vars *[]WildcardToken) {
	for _, g := range t.groupsFor(t.cursor) {
		if !g.merged {
			*logtype = append(*logtype, g.text...)
			continue
		}

		var preceding byte
		hasPreceding := false
		if t.precededByEquals && g.begin == t.Begin {
			preceding, hasPreceding = '=', true
		} else if g.begin > t.Begin {
			preceding, hasPreceding = t.query[g.begin-1], true
		}

		kind, ok := varenc.Classify(t.encoder, g.text, preceding, hasPreceding)
		if !ok {
			*logtype = append(*logtype, g.text...)
			continue
		}

		*logtype = append(*logtype, varenc.Placeholder(kind))
		*vars = append(*vars, WildcardToken{
			Text:    g.text,
			Begin:   g.begin,
			End:     g.end,
			Encoded: kind,
		})
	}
}
