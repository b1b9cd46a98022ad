package rank

import (
	"context"
	"math"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/pmi"
)

// FeatureRanker calculates hybrid feature scores for candidates
type FeatureRanker struct {
	weights       Weights
	positionDecay float64
	stemmer       ingest.Stemmer
	df            *pmi.Counter
}

// Weights defines the scoring weights
type Weights struct {
	TFIDF     float64 `yaml:"tfidf"`     // frequency times inverse document frequency
	Frequency float64 `yaml:"frequency"` // log frequency in the document
	Position  float64 `yaml:"position"`  // decay with the first occurrence
	Spread    float64 `yaml:"spread"`    // distance between first and last occurrence
	Length    float64 `yaml:"length"`    // length penalty
}

// Preset weight sets.
var (
	TFIDFWeights         = Weights{TFIDF: 1}
	FirstPositionWeights = Weights{Position: 1}
	FrequencyWeights     = Weights{Frequency: 1}
)

// NewFeatureRanker creates a ranker with the given weights. positionDecay is
// the token distance over which the position feature decays by 1/e.
func NewFeatureRanker(w Weights, positionDecay float64, stemmer ingest.Stemmer) *FeatureRanker {
	if positionDecay <= 0 {
		positionDecay = 100
	}
	if stemmer == nil {
		stemmer = ingest.NoStemmer{}
	}
	return &FeatureRanker{weights: w, positionDecay: positionDecay, stemmer: stemmer, df: pmi.NewCounter()}
}

// Prepare learns stem document frequencies from the training documents.
func (r *FeatureRanker) Prepare(ctx context.Context, _ *document.Corpus, train []*document.Document) error {
	r.df = pmi.NewCounter()
	for _, doc := range train {
		if err := ctx.Err(); err != nil {
			return err
		}
		var stems []string
		for _, s := range doc.FullTextSentences() {
			stems = append(stems, ingest.StemAll(r.stemmer, s.Words)...)
		}
		r.df.AddDocument(stems)
	}
	return nil
}

// ScoreBreakdown provides detailed scoring information
type ScoreBreakdown struct {
	TFIDF     float64 `json:"tfidf"`
	Frequency float64 `json:"frequency"`
	Position  float64 `json:"position"`
	Spread    float64 `json:"spread"`
	Length    float64 `json:"length"`
	Total     float64 `json:"total"`
}

// Rank implements Ranker. Every member of every group is scored.
func (r *FeatureRanker) Rank(ctx context.Context, doc *document.Document, groups []*cluster.TopicGroup) ([]Scored, error) {
	offsets, total := sentenceOffsets(doc)
	units := cluster.Units(groups)
	scored := make([]Scored, 0, len(units))
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored = append(scored, Scored{Unit: u, Score: r.breakdown(u, offsets, total).Total})
	}
	Sort(scored)
	return scored, nil
}

// ScoreWithBreakdown calculates the score of u in doc with detailed breakdown
func (r *FeatureRanker) ScoreWithBreakdown(doc *document.Document, u *candidate.TextualUnit) ScoreBreakdown {
	offsets, total := sentenceOffsets(doc)
	return r.breakdown(u, offsets, total)
}

func (r *FeatureRanker) breakdown(u *candidate.TextualUnit, offsets []int, total int) ScoreBreakdown {
	tf := float64(u.Frequency())

	idf := 0.0
	for _, s := range u.Stems {
		idf += r.df.IDF(s)
	}
	idf /= math.Max(1, float64(len(u.Stems)))

	occs := u.Occurrences()
	position, spread := 0.0, 0.0
	if len(occs) > 0 {
		first := offsets[occs[0].Sentence] + occs[0].Position
		last := offsets[occs[len(occs)-1].Sentence] + occs[len(occs)-1].Position
		position = math.Exp(-float64(first) / r.positionDecay)
		if total > 0 {
			spread = float64(last-first) / float64(total)
		}
	}

	lenPenalty := math.Log(float64(u.Len() + 1))

	b := ScoreBreakdown{
		TFIDF:     r.weights.TFIDF * tf * idf,
		Frequency: r.weights.Frequency * math.Log(tf+1),
		Position:  r.weights.Position * position,
		Spread:    r.weights.Spread * spread,
		Length:    r.weights.Length * lenPenalty,
	}
	b.Total = b.TFIDF + b.Frequency + b.Position + b.Spread - b.Length
	return b
}

// sentenceOffsets returns the token offset of each full-text sentence and
// the total token count.
func sentenceOffsets(doc *document.Document) ([]int, int) {
	sentences := doc.FullTextSentences()
	offsets := make([]int, len(sentences))
	total := 0
	for i, s := range sentences {
		offsets[i] = total
		total += s.Len()
	}
	return offsets, total
}
