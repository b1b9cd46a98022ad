package eval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// All is the cut-off keeping every extracted keyphrase.
const All = 0

// DefaultCutoffs are the cut-offs reported by the PRFM evaluator.
var DefaultCutoffs = []int{5, 10, 15, All}

// Measures holds the scores of one cut-off.
type Measures struct {
	Cutoff    int     `json:"cutoff"` // 0 means all
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AP        float64 `json:"ap,omitempty"` // mean average precision in averages
}

// DocumentResult holds the measures of one document.
type DocumentResult struct {
	Document  string     `json:"document"`
	Extracted []string   `json:"extracted"`
	Measures  []Measures `json:"measures"`
}

// Report aggregates the per-document results of a run.
type Report struct {
	Evaluator string           `json:"evaluator"`
	Documents int              `json:"documents"`
	Averages  []Measures       `json:"averages"`
	Results   []DocumentResult `json:"results"`
}

// Normalizer maps a keyphrase to its comparison form: lowercased,
// tokenized and stemmed. Nil fields fall back to whitespace splitting and no
// stemming.
type Normalizer struct {
	Stemmer   ingest.Stemmer
	Tokenizer ingest.WordTokenizer
}

// Normalize returns the comparison form of a keyphrase.
func (n Normalizer) Normalize(phrase string) string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	var tokens []string
	if n.Tokenizer != nil {
		tokens = n.Tokenizer.Tokenize(phrase)
	} else {
		tokens = strings.Fields(phrase)
	}
	if n.Stemmer != nil {
		tokens = ingest.StemAll(n.Stemmer, tokens)
	}
	return strings.Join(tokens, " ")
}

// Evaluator compares extracted keyphrases with references. It is safe for
// concurrent use.
type Evaluator struct {
	Name    string
	Cutoffs []int
	MAP     bool

	refs document.References
	norm Normalizer

	mu      sync.Mutex
	results map[string]DocumentResult
}

// NewPRF creates an evaluator of precision, recall and F1 over all
// extracted keyphrases.
func NewPRF(refs document.References, norm Normalizer) *Evaluator {
	return &Evaluator{Name: "prf", Cutoffs: []int{All}, refs: refs, norm: norm, results: make(map[string]DocumentResult)}
}

// NewPRFM creates an evaluator of precision, recall, F1 and mean average
// precision at the default cut-offs.
func NewPRFM(refs document.References, norm Normalizer) *Evaluator {
	return &Evaluator{Name: "prfm", Cutoffs: DefaultCutoffs, MAP: true, refs: refs, norm: norm, results: make(map[string]DocumentResult)}
}

// Consume evaluates the selected keyphrases of a document.
func (e *Evaluator) Consume(ctx context.Context, doc *document.Document, selected []rank.Scored) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Evaluate(doc.Name, rank.Texts(selected))
	return nil
}

// Evaluate scores the extracted keyphrases of the named document and records
// the result. A document without references is scored against an empty
// list.
func (e *Evaluator) Evaluate(name string, extracted []string) DocumentResult {
	refs := e.normalizeAll(e.refs[name])
	ext := e.normalizeAll(extracted)

	res := DocumentResult{Document: name, Extracted: extracted}
	for _, k := range e.Cutoffs {
		m := Score(ext, refs, k)
		if !e.MAP {
			m.AP = 0
		}
		res.Measures = append(res.Measures, m)
	}

	e.mu.Lock()
	e.results[name] = res
	e.mu.Unlock()
	return res
}

// normalizeAll normalizes phrases, dropping empty and repeated ones.
func (e *Evaluator) normalizeAll(phrases []string) []string {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		n := e.norm.Normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Score computes the measures of the first k extracted keyphrases against
// refs; k = All keeps every one. Average precision grows by precision_i/|refs|
// at each rank i holding a match.
func Score(extracted, refs []string, k int) Measures {
	m := Measures{Cutoff: k}
	if k != All && k < len(extracted) {
		extracted = extracted[:k]
	}
	refSet := make(map[string]bool, len(refs))
	for _, r := range refs {
		refSet[r] = true
	}

	matches := 0
	for i, e := range extracted {
		if !refSet[e] {
			continue
		}
		matches++
		m.AP += float64(matches) / float64(i+1) / float64(len(refSet))
	}

	if len(extracted) > 0 {
		m.Precision = float64(matches) / float64(len(extracted))
	}
	if len(refSet) > 0 {
		m.Recall = float64(matches) / float64(len(refSet))
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Results returns the per-document results ordered by document.
func (e *Evaluator) Results() []DocumentResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DocumentResult, 0, len(e.results))
	for _, r := range e.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document < out[j].Document })
	return out
}

// Averages returns the macro averages per cut-off. AP averages into MAP.
func (e *Evaluator) Averages() []Measures {
	results := e.Results()
	out := make([]Measures, len(e.Cutoffs))
	for i, k := range e.Cutoffs {
		out[i].Cutoff = k
	}
	if len(results) == 0 {
		return out
	}
	for _, r := range results {
		for i, m := range r.Measures {
			out[i].Precision += m.Precision
			out[i].Recall += m.Recall
			out[i].F1 += m.F1
			out[i].AP += m.AP
		}
	}
	n := float64(len(results))
	for i := range out {
		out[i].Precision /= n
		out[i].Recall /= n
		out[i].F1 /= n
		out[i].AP /= n
	}
	return out
}

// Report summarises the evaluation.
func (e *Evaluator) Report() Report {
	results := e.Results()
	return Report{Evaluator: e.Name, Documents: len(results), Averages: e.Averages(), Results: results}
}
