package wildcard

import (
	"errors"
	"strconv"
	"strings"

	"logcore/internal/classify"
	"logcore/internal/varenc"
)

// ErrBadParam is returned when GenerateSubqueries is given an empty query.
var ErrBadParam = errors.New("wildcard: empty query")

// SubQuery is one compiled interpretation of a wildcard query: a logtype
// string with variable positions replaced by kind placeholders, plus the
// ordered vector of variable tokens those placeholders stand for (spec.md
// §4.6).
type SubQuery struct {
	Logtype string
	Vars    []WildcardToken
}

// SubQueryGenerator compiles a wildcard query into its deduplicated set of
// SubQuery interpretations.
type SubQueryGenerator struct {
	encoder varenc.Encoder
}

// NewSubQueryGenerator creates a generator using enc as the VariableEncoder
// collaborator.
func NewSubQueryGenerator(enc varenc.Encoder) *SubQueryGenerator {
	return &SubQueryGenerator{encoder: enc}
}

// GenerateSubqueries tokenizes query and enumerates every interpretation of
// its composite wildcard tokens, deduplicating by (logtype, vars) so logtypes
// reachable by more than one interpretation appear once (spec.md §4.6
// invariant: "deduplicated by (logtype, vars) equality").
func (g *SubQueryGenerator) GenerateSubqueries(query string) ([]SubQuery, error) {
	if len(query) == 0 {
		return nil, ErrBadParam
	}

	tok := NewQueryTokenizer(query, g.encoder)
	tokens, composites := tok.Tokenize()
	for _, c := range composites {
		c.Reset()
	}

	seen := make(map[string]struct{})
	var out []SubQuery

	for {
		logtype, vars := render(query, tokens)
		key := dedupKey(logtype, vars)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, SubQuery{Logtype: logtype, Vars: vars})
		}

		if !advance(composites) {
			break
		}
	}

	return out, nil
}

// render walks tokens in query order, filling the gaps between token spans
// with unescaped literal text and expanding each token into the running
// logtype and vars accumulators.
func render(query string, tokens []queryToken) (string, []WildcardToken) {
	var logtype []byte
	var vars []WildcardToken

	pos := 0
	for _, tk := range tokens {
		if tk.begin() > pos {
			logtype = append(logtype, unescape(query[pos:tk.begin()])...)
		}

		switch v := tk.(type) {
		case ExactVariableToken:
			logtype = append(logtype, varenc.Placeholder(v.Encoded))
			vars = append(vars, WildcardToken{Text: v.Text, Begin: v.Begin, End: v.End, Encoded: v.Encoded})
		case *CompositeWildcardToken:
			v.AddToQuery(&logtype, &vars)
		}

		pos = tk.end()
	}
	if pos < len(query) {
		logtype = append(logtype, unescape(query[pos:])...)
	}

	return string(logtype), vars
}

// unescape strips backslash escapes from a constant run so `\*` in the
// original query becomes a literal `*` in the compiled logtype rather than a
// stray escape byte.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if classify.IsEscape(c) {
			escaped = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// advance carries an odometer across composites: the first composite that
// has more interpretations left is bumped, and every composite before it
// (which just wrapped) resets to its first interpretation. Returns false
// once every composite has cycled back to its start.
func advance(composites []*CompositeWildcardToken) bool {
	for _, c := range composites {
		if c.GenerateNextInterpretation() {
			return true
		}
	}
	return false
}

// dedupKey builds a byte-equality key over (logtype, vars) per spec.md §4.6:
// two interpretations collapse to one SubQuery iff their logtype strings are
// byte-equal and their variable vectors are element-wise equal in both kind
// and bound text.
func dedupKey(logtype string, vars []WildcardToken) string {
	var b strings.Builder
	b.WriteString(logtype)
	b.WriteByte(0)
	for _, v := range vars {
		b.WriteString(strconv.Itoa(int(v.Encoded)))
		b.WriteByte('|')
		b.WriteString(v.Text)
		b.WriteByte(0)
	}
	return b.String()
}
