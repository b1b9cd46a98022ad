package candidate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

var tagName = regexp.MustCompile(`\\?[A-Z][A-Z_]*`)

// TagPattern is a regular expression over POS-tag sequences. Tag names in
// the expression are written bare, e.g. `(ADJ)?(NOUN)+`; each name matches
// exactly one token carrying that tag.
type TagPattern struct {
	expr   string
	anchor *regexp.Regexp
	prefix *regexp.Regexp
}

// CompileTagPattern compiles expr. Uppercase names preceded by a backslash
// keep their regexp meaning (`\S`, `\W`).
func CompileTagPattern(expr string) (*TagPattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty tag pattern: %w", internalerr.ErrInvalidInput)
	}
	rewritten := tagName.ReplaceAllStringFunc(expr, func(m string) string {
		if strings.HasPrefix(m, `\`) {
			return m
		}
		return "(?:" + regexp.QuoteMeta(m) + " )"
	})
	anchor, err := regexp.Compile("^(?:" + rewritten + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile tag pattern %q: %w", expr, err)
	}
	prefix := regexp.MustCompile("^(?:" + rewritten + ")")
	return &TagPattern{expr: expr, anchor: anchor, prefix: prefix}, nil
}

// MustCompileTagPattern is CompileTagPattern that panics on error.
func MustCompileTagPattern(expr string) *TagPattern {
	p, err := CompileTagPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *TagPattern) String() string { return p.expr }

// tagString renders tags so that every tag is followed by one space.
func tagString(tags []string) string {
	var b strings.Builder
	for _, t := range tags {
		b.WriteString(t)
		b.WriteByte(' ')
	}
	return b.String()
}

// Match reports whether the whole tag sequence matches.
func (p *TagPattern) Match(tags []string) bool {
	return p.anchor.MatchString(tagString(tags))
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start, End int
}

// FindAll returns the leftmost non-overlapping token spans whose tags match.
// Matches are only tried at token boundaries, so a tag name never matches
// inside a longer tag.
func (p *TagPattern) FindAll(tags []string) []Span {
	s := tagString(tags)

	// offsets[i] is the byte offset of token i; boundary inverts it
	offsets := make([]int, len(tags)+1)
	boundary := make(map[int]int, len(tags)+1)
	for i, t := range tags {
		boundary[offsets[i]] = i
		offsets[i+1] = offsets[i] + len(t) + 1
	}
	boundary[offsets[len(tags)]] = len(tags)

	var spans []Span
	for i := 0; i < len(tags); {
		if m := p.prefix.FindStringIndex(s[offsets[i]:]); m != nil {
			if end, ok := boundary[offsets[i]+m[1]]; ok && end > i {
				spans = append(spans, Span{Start: i, End: end})
				i = end
				continue
			}
		}
		i++
	}
	return spans
}
