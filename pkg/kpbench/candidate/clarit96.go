package candidate

import (
	"context"
	"strconv"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
)

// Fixed association scores and defaults of the CLARIT'96 grouping.
const (
	ImpossibleScore = 100.0
	SpecialScore    = 10.0
	AtomScore       = 0.0

	DefaultLambda1       = 5.0
	DefaultLambda2       = 1000.0
	DefaultMinPreference = 0.5

	DefaultAtomPattern       = `(NOUN)(NOUN)`
	DefaultImpossiblePattern = `(ADJ)(ADJ)|(NOUN)(ADJ)`

	// GroupSeparator joins the words of a grouped unit in candidate forms.
	GroupSeparator = "_"
)

// Clarit96Extractor extracts noun phrases and, inside every noun phrase
// longer than two words, repeatedly groups the best adjacent pair into a
// single unit. Pair statistics are computed over the noun phrases of the
// document joined with the background noun phrases learnt by Prepare.
// Base noun phrases and every grouping step are emitted.
type Clarit96Extractor struct {
	NounPhrases       *PatternExtractor
	AtomPattern       *TagPattern
	ImpossiblePattern *TagPattern
	SpecialTags       map[string]bool

	Lambda1       float64
	Lambda2       float64
	MinPreference float64

	Annotator Annotator

	background []nounPhrase
}

type nounPhrase struct {
	words    []string
	tags     []string
	sentence int
	position int
}

// NewClarit96Extractor creates an extractor with the default patterns and
// constants around the noun-phrase extractor np.
func NewClarit96Extractor(np *PatternExtractor) *Clarit96Extractor {
	return &Clarit96Extractor{
		NounPhrases:       np,
		AtomPattern:       MustCompileTagPattern(DefaultAtomPattern),
		ImpossiblePattern: MustCompileTagPattern(DefaultImpossiblePattern),
		SpecialTags:       map[string]bool{"NUM": true, "X": true},
		Lambda1:           DefaultLambda1,
		Lambda2:           DefaultLambda2,
		MinPreference:     DefaultMinPreference,
		Annotator:         np.Annotator,
	}
}

// Prepare collects the background noun phrases of the training documents.
// It replaces any previously collected background.
func (e *Clarit96Extractor) Prepare(ctx context.Context, train []*document.Document) error {
	var background []nounPhrase
	for _, doc := range train {
		err := e.NounPhrases.each(ctx, doc, func(words, tags []string, sentence, position int) error {
			background = append(background, nounPhrase{words: words, tags: tags})
			return nil
		})
		if err != nil {
			return err
		}
	}
	e.background = background
	return nil
}

// BackgroundSize returns the number of background noun phrases.
func (e *Clarit96Extractor) BackgroundSize() int { return len(e.background) }

// Extract implements Extractor.
func (e *Clarit96Extractor) Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error) {
	set := e.Annotator.NewSet()
	var phrases []nounPhrase
	err := e.NounPhrases.each(ctx, doc, func(words, tags []string, sentence, position int) error {
		phrases = append(phrases, nounPhrase{words: words, tags: tags, sentence: sentence, position: position})
		return set.add("", words, tags, sentence, position)
	})
	if err != nil {
		return nil, err
	}

	arena := newClaritArena(e, phrases)
	for _, np := range phrases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(np.words) <= 2 {
			continue
		}
		for _, form := range arena.groupings(np) {
			if err := set.add(form, np.words, np.tags, np.sentence, np.position); err != nil {
				return nil, err
			}
		}
	}
	return set.Units(), nil
}

type idPair struct{ a, b int }

type neighbourStats struct {
	max, avg float64
}

// claritArena holds the interned noun-phrase corpus and the memo tables of
// one document. Sequences and units are interned to small integers.
type claritArena struct {
	cfg *Clarit96Extractor

	wordIDs map[string]int
	words   []string

	phrases  [][]int
	tags     [][]string
	postings map[int][]int

	seqIDs map[string]int
	seqs   [][]int

	unitIDs  map[string]int
	unitSeq  []int
	unitTag  []string
	concatID map[idPair]int

	freq      map[int]int
	disc      map[idPair]int
	left      map[idPair]neighbourStats
	right     map[idPair]neighbourStats
	score     map[idPair]float64
	dominant  map[idPair]int
	groupMemo map[string][]string
}

func newClaritArena(cfg *Clarit96Extractor, docPhrases []nounPhrase) *claritArena {
	a := &claritArena{
		cfg:       cfg,
		wordIDs:   make(map[string]int),
		postings:  make(map[int][]int),
		seqIDs:    make(map[string]int),
		unitIDs:   make(map[string]int),
		concatID:  make(map[idPair]int),
		freq:      make(map[int]int),
		disc:      make(map[idPair]int),
		left:      make(map[idPair]neighbourStats),
		right:     make(map[idPair]neighbourStats),
		score:     make(map[idPair]float64),
		dominant:  make(map[idPair]int),
		groupMemo: make(map[string][]string),
	}
	add := func(np nounPhrase) {
		ids := make([]int, len(np.words))
		for i, w := range np.words {
			ids[i] = a.word(w)
		}
		pi := len(a.phrases)
		a.phrases = append(a.phrases, ids)
		a.tags = append(a.tags, np.tags)
		seen := make(map[int]bool, len(ids))
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				a.postings[id] = append(a.postings[id], pi)
			}
		}
	}
	for _, np := range docPhrases {
		add(np)
	}
	for _, np := range cfg.background {
		add(np)
	}
	return a
}

func (a *claritArena) word(w string) int {
	if id, ok := a.wordIDs[w]; ok {
		return id
	}
	id := len(a.words)
	a.wordIDs[w] = id
	a.words = append(a.words, w)
	return id
}

func seqKey(tokens []int) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(t))
	}
	return b.String()
}

func (a *claritArena) seq(tokens []int) int {
	key := seqKey(tokens)
	if id, ok := a.seqIDs[key]; ok {
		return id
	}
	id := len(a.seqs)
	a.seqIDs[key] = id
	a.seqs = append(a.seqs, append([]int(nil), tokens...))
	return id
}

// unit interns a token sequence with its head tag.
func (a *claritArena) unit(seqID int, tag string) int {
	key := strconv.Itoa(seqID) + "/" + tag
	if id, ok := a.unitIDs[key]; ok {
		return id
	}
	id := len(a.unitSeq)
	a.unitIDs[key] = id
	a.unitSeq = append(a.unitSeq, seqID)
	a.unitTag = append(a.unitTag, tag)
	return id
}

// concat returns the sequence of x followed by y.
func (a *claritArena) concat(x, y int) int {
	if id, ok := a.concatID[idPair{x, y}]; ok {
		return id
	}
	tokens := append(append([]int(nil), a.seqs[x]...), a.seqs[y]...)
	id := a.seq(tokens)
	a.concatID[idPair{x, y}] = id
	return id
}

// find returns the start positions of tokens inside phrase, from index from.
func find(phrase, tokens []int, from int) []int {
	var out []int
	for i := from; i+len(tokens) <= len(phrase); i++ {
		match := true
		for j, t := range tokens {
			if phrase[i+j] != t {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

func indexOf(phrase, tokens []int, from int) int {
	for i := from; i+len(tokens) <= len(phrase); i++ {
		match := true
		for j, t := range tokens {
			if phrase[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// candidates returns the phrases that may contain the sequence.
func (a *claritArena) candidates(seqID int) []int {
	tokens := a.seqs[seqID]
	if len(tokens) == 0 {
		return nil
	}
	return a.postings[tokens[0]]
}

// f returns the number of occurrences of a sequence in the corpus.
func (a *claritArena) f(seqID int) int {
	if n, ok := a.freq[seqID]; ok {
		return n
	}
	n := 0
	for _, pi := range a.candidates(seqID) {
		n += len(find(a.phrases[pi], a.seqs[seqID], 0))
	}
	a.freq[seqID] = n
	return n
}

// fPair is the continuous frequency f(x,y).
func (a *claritArena) fPair(x, y int) int {
	return a.f(a.concat(x, y))
}

// df is the discontinuous frequency: non-overlapping occurrences of x
// followed by y with at least one word in between.
func (a *claritArena) df(x, y int) int {
	key := idPair{x, y}
	if n, ok := a.disc[key]; ok {
		return n
	}
	xs, ys := a.seqs[x], a.seqs[y]
	n := 0
	for _, pi := range a.candidates(x) {
		phrase := a.phrases[pi]
		pos := 0
		for {
			i := indexOf(phrase, xs, pos)
			if i < 0 {
				break
			}
			j := indexOf(phrase, ys, i+len(xs)+1)
			if j < 0 {
				break
			}
			n++
			pos = j + len(ys)
		}
	}
	a.disc[key] = n
	return n
}

// leftStats aggregates ldf(w,x,y) = min(f(w,x), df(w,y)) over the words w
// seen directly left of x.
func (a *claritArena) leftStats(x, y int) neighbourStats {
	key := idPair{x, y}
	if s, ok := a.left[key]; ok {
		return s
	}
	neighbours := make(map[int]bool)
	for _, pi := range a.candidates(x) {
		phrase := a.phrases[pi]
		for _, i := range find(phrase, a.seqs[x], 0) {
			if i > 0 {
				neighbours[a.seq(phrase[i-1:i])] = true
			}
		}
	}
	s := a.aggregate(neighbours, x, y, func(w int) int {
		return min(a.fPair(w, x), a.df(w, y))
	})
	a.left[key] = s
	return s
}

// rightStats aggregates rdf(x,y,w) = min(df(x,w), f(y,w)) over the words w
// seen directly right of y.
func (a *claritArena) rightStats(x, y int) neighbourStats {
	key := idPair{x, y}
	if s, ok := a.right[key]; ok {
		return s
	}
	ys := a.seqs[y]
	neighbours := make(map[int]bool)
	for _, pi := range a.candidates(y) {
		phrase := a.phrases[pi]
		for _, i := range find(phrase, ys, 0) {
			if end := i + len(ys); end < len(phrase) {
				neighbours[a.seq(phrase[end:end+1])] = true
			}
		}
	}
	s := a.aggregate(neighbours, x, y, func(w int) int {
		return min(a.df(x, w), a.fPair(y, w))
	})
	a.right[key] = s
	return s
}

func (a *claritArena) aggregate(neighbours map[int]bool, x, y int, value func(w int) int) neighbourStats {
	maxV, sum, nonzero := 0, 0, 0
	for w := range neighbours {
		if w == x || w == y {
			continue
		}
		v := value(w)
		if v > maxV {
			maxV = v
		}
		if v > 0 {
			sum += v
			nonzero++
		}
	}
	return neighbourStats{max: float64(maxV), avg: float64(sum) / float64(1+nonzero)}
}

func (a *claritArena) impossible(u, v int) bool {
	return a.cfg.ImpossiblePattern != nil && a.cfg.ImpossiblePattern.Match([]string{a.unitTag[u], a.unitTag[v]})
}

// assoc returns the association score A of adjacent units (lower is
// better).
func (a *claritArena) assoc(u, v int) float64 {
	key := idPair{u, v}
	if s, ok := a.score[key]; ok {
		return s
	}
	s := a.computeAssoc(u, v)
	a.score[key] = s
	return s
}

func (a *claritArena) computeAssoc(u, v int) float64 {
	if a.impossible(u, v) {
		return ImpossibleScore
	}
	if a.cfg.SpecialTags[a.unitTag[u]] || a.cfg.SpecialTags[a.unitTag[v]] {
		return SpecialScore
	}

	x, y := a.unitSeq[u], a.unitSeq[v]
	f := float64(a.fPair(x, y))
	df := float64(a.df(x, y))
	left := a.leftStats(x, y)
	right := a.rightStats(x, y)

	if a.cfg.AtomPattern != nil && a.cfg.AtomPattern.Match([]string{a.unitTag[u], a.unitTag[v]}) &&
		f > left.max && f > df {
		return AtomScore
	}

	l1, l2 := a.cfg.Lambda1, a.cfg.Lambda2
	association := l2 / (float64(a.f(x)+a.f(y)) - 2*f + l2)
	denominator := l1*f + df
	if denominator == 0 {
		return ImpossibleScore
	}
	return ((l1 + left.avg + right.avg) / denominator) * association
}

// preference returns PS = locally dominant phrases / f(x,y).
func (a *claritArena) preference(u, v int) float64 {
	x, y := a.unitSeq[u], a.unitSeq[v]
	f := a.fPair(x, y)
	if f == 0 {
		return 0
	}
	return float64(a.dominantCount(u, v)) / float64(f)
}

// dominantCount counts the phrases containing u v in which no other
// adjacent pair has a lower association score.
func (a *claritArena) dominantCount(u, v int) int {
	key := idPair{u, v}
	if n, ok := a.dominant[key]; ok {
		return n
	}
	xy := a.concat(a.unitSeq[u], a.unitSeq[v])
	xLen := len(a.seqs[a.unitSeq[u]])
	yLen := len(a.seqs[a.unitSeq[v]])
	target := a.assoc(u, v)

	n := 0
	for _, pi := range a.candidates(xy) {
		phrase := a.phrases[pi]
		i := indexOf(phrase, a.seqs[xy], 0)
		if i < 0 {
			continue
		}
		units := make([]int, 0, len(phrase))
		for k := 0; k < i; k++ {
			units = append(units, a.unit(a.seq(phrase[k:k+1]), a.tags[pi][k]))
		}
		pos := len(units)
		units = append(units, u, v)
		for k := i + xLen + yLen; k < len(phrase); k++ {
			units = append(units, a.unit(a.seq(phrase[k:k+1]), a.tags[pi][k]))
		}

		dominant := true
		for k := 0; k+1 < len(units); k++ {
			if k == pos {
				continue
			}
			if a.assoc(units[k], units[k+1]) < target {
				dominant = false
				break
			}
		}
		if dominant {
			n++
		}
	}
	a.dominant[key] = n
	return n
}

// groupings runs the grouping loop on one phrase and returns the rendered
// phrase after every committed grouping.
func (a *claritArena) groupings(np nounPhrase) []string {
	memoKey := strings.Join(np.words, " ") + "\t" + strings.Join(np.tags, " ")
	if forms, ok := a.groupMemo[memoKey]; ok {
		return forms
	}

	units := make([]int, len(np.words))
	for i, w := range np.words {
		units[i] = a.unit(a.seq([]int{a.word(w)}), np.tags[i])
	}

	var forms []string
	for len(units) > 2 {
		best := -1
		var bestScore, bestIPS float64
		for i := 0; i+1 < len(units); i++ {
			u, v := units[i], units[i+1]
			if a.impossible(u, v) {
				continue
			}
			ps := a.preference(u, v)
			if ps <= 0 || ps < a.cfg.MinPreference {
				continue
			}
			score, ips := a.assoc(u, v), 1/ps
			if best < 0 || score < bestScore || (score == bestScore && ips < bestIPS) {
				best, bestScore, bestIPS = i, score, ips
			}
		}
		if best < 0 {
			break
		}

		u, v := units[best], units[best+1]
		merged := a.unit(a.concat(a.unitSeq[u], a.unitSeq[v]), a.unitTag[v])
		next := make([]int, 0, len(units)-1)
		next = append(next, units[:best]...)
		next = append(next, merged)
		next = append(next, units[best+2:]...)
		units = next
		forms = append(forms, a.render(units))
	}

	a.groupMemo[memoKey] = forms
	return forms
}

func (a *claritArena) render(units []int) string {
	parts := make([]string, len(units))
	for i, u := range units {
		tokens := a.seqs[a.unitSeq[u]]
		words := make([]string, len(tokens))
		for j, t := range tokens {
			words[j] = a.words[t]
		}
		parts[i] = strings.Join(words, GroupSeparator)
	}
	return strings.Join(parts, " ")
}
