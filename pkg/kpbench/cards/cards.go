package cards

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/eval"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Builder constructs explainable keyphrase cards
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	explainer *rank.FeatureRanker
	refs      document.References
	norm      eval.Normalizer
}

// explainWeights reports every feature unscaled.
var explainWeights = rank.Weights{TFIDF: 1, Frequency: 1, Position: 1, Spread: 1, Length: 1}

// New creates a card builder. explainer supplies the feature breakdown of
// every keyphrase; nil uses the raw features of the document alone.
func New(explainer *rank.FeatureRanker, refs document.References, norm eval.Normalizer) *Builder {
	if explainer == nil {
		explainer = rank.NewFeatureRanker(explainWeights, 0, norm.Stemmer)
	}
	return &Builder{
		entropy:   ulid.Monotonic(rand.Reader, 0),
		explainer: explainer,
		refs:      refs,
		norm:      norm,
	}
}

// Card represents the explained selection of one document
type Card struct {
	ID             string             `json:"id"`
	Document       string             `json:"document"`
	Title          string             `json:"title"`
	Keyphrases     []Entry            `json:"keyphrases"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`
	Explain        Explain            `json:"explain"`
}

// Entry is one selected keyphrase
type Entry struct {
	Rank        int                 `json:"rank"`
	Form        string              `json:"form"`
	Score       float64             `json:"score"`
	Occurrences int                 `json:"occurrences"`
	Matched     bool                `json:"matched"`
	Breakdown   rank.ScoreBreakdown `json:"breakdown"`
}

// Explain relates the selection to the reference keyphrases
type Explain struct {
	References []string `json:"references"`
	Matched    []string `json:"matched"`
	Missed     []string `json:"missed"`
}

// Build creates a card from the selected keyphrases of doc
func (b *Builder) Build(doc *document.Document, selected []rank.Scored) Card {
	card := Card{
		ID:             b.nextID(),
		Document:       doc.Name,
		Title:          doc.Title,
		Keyphrases:     make([]Entry, 0, len(selected)),
		ScoreBreakdown: make(map[string]float64),
		Explain: Explain{
			References: b.refs[doc.Name],
			Matched:    []string{},
			Missed:     []string{},
		},
	}

	refForms := make(map[string]string)
	for _, r := range card.Explain.References {
		refForms[b.norm.Normalize(r)] = r
	}
	matched := make(map[string]bool)

	var sum rank.ScoreBreakdown
	for i, s := range selected {
		bd := b.explainer.ScoreWithBreakdown(doc, s.Unit)
		norm := b.norm.Normalize(s.Unit.Text())
		_, hit := refForms[norm]
		card.Keyphrases = append(card.Keyphrases, Entry{
			Rank:        i + 1,
			Form:        s.Unit.Form,
			Score:       s.Score,
			Occurrences: s.Unit.Frequency(),
			Matched:     hit,
			Breakdown:   bd,
		})
		if hit && !matched[norm] {
			matched[norm] = true
			card.Explain.Matched = append(card.Explain.Matched, refForms[norm])
		}

		sum.TFIDF += bd.TFIDF
		sum.Frequency += bd.Frequency
		sum.Position += bd.Position
		sum.Spread += bd.Spread
		sum.Length += bd.Length
	}

	// Average feature values over the selection
	n := float64(len(selected))
	if n > 0 {
		card.ScoreBreakdown["tfidf"] = sum.TFIDF / n
		card.ScoreBreakdown["frequency"] = sum.Frequency / n
		card.ScoreBreakdown["position"] = sum.Position / n
		card.ScoreBreakdown["spread"] = sum.Spread / n
		card.ScoreBreakdown["length"] = sum.Length / n
	}

	for _, r := range card.Explain.References {
		if !matched[b.norm.Normalize(r)] {
			card.Explain.Missed = append(card.Explain.Missed, r)
		}
	}
	return card
}

func (b *Builder) nextID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Now(), b.entropy).String()
}

// Writer is a keyphrase consumer writing one JSON card per line.
type Writer struct {
	builder *Builder

	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter creates a consumer writing the cards of b to w.
func NewWriter(w io.Writer, b *Builder) *Writer {
	return &Writer{builder: b, enc: json.NewEncoder(w)}
}

// Consume builds and writes the card of doc.
func (w *Writer) Consume(ctx context.Context, doc *document.Document, selected []rank.Scored) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	card := w.builder.Build(doc, selected)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(card)
}
