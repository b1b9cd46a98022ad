package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// PreProcessor turns a document file into a sentence split, tokenized and
// POS-tagged Document.
type PreProcessor struct {
	Splitter  SentenceSplitter
	Tokenizer WordTokenizer
	Tagger    Tagger

	// Reader overrides the extension based reader selection when set.
	Reader Reader

	// Separator must not occur in any token; it packs word<sep>tag in the
	// cached form of the document.
	Separator string

	logger *slog.Logger
}

// NewPreProcessor creates a pre-processor with the builtin splitter,
// tokenizer and rule tagger for language.
func NewPreProcessor(language string, logger *slog.Logger) *PreProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreProcessor{
		Splitter:  NewRuleSplitter(),
		Tokenizer: NewTokenizer(),
		Tagger:    NewRuleTagger(language),
		Separator: document.DefaultSeparator,
		logger:    logger,
	}
}

// Process reads path and builds the Document. A missing file yields an
// error wrapping internalerr.ErrNotFound; tagger errors propagate.
func (p *PreProcessor) Process(ctx context.Context, path, corpus, language, encoding string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := Decode(f, encoding)
	if err != nil {
		return nil, err
	}
	reader := p.Reader
	if reader == nil {
		reader = ReaderFor(path)
	}
	sections, err := reader.Read(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := document.New(corpus, document.Name(path), language, encoding)
	if err := p.Build(ctx, doc, sections); err != nil {
		return nil, fmt.Errorf("process %s: %w", doc.ID, err)
	}

	p.logger.Debug("document pre-processed", "doc", doc.ID, "sentences", len(doc.FullTextSentences()), "tokens", doc.TokenCount())
	return doc, nil
}

// Build fills the raw text and the tagged sentences of doc from sections.
// All sections are tagged in one batch.
func (p *PreProcessor) Build(ctx context.Context, doc *document.Document, sections Sections) error {
	doc.Title = Normalize(sections.Title)
	doc.Abstract = Normalize(sections.Abstract)
	doc.Content = Normalize(sections.Content)

	parts := []string{doc.Title, doc.Abstract, doc.Content}
	var batch [][]string
	counts := make([]int, len(parts))
	for i, text := range parts {
		for _, sentence := range p.Splitter.Split(text) {
			words := p.Tokenizer.Tokenize(sentence)
			if len(words) == 0 {
				continue
			}
			for _, w := range words {
				if p.Separator != "" && strings.Contains(w, p.Separator) {
					return fmt.Errorf("token %q contains the tag separator: %w", w, internalerr.ErrInvalidInput)
				}
			}
			batch = append(batch, words)
			counts[i]++
		}
	}

	tags, err := p.Tagger.Tag(ctx, batch)
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	if len(tags) != len(batch) {
		return fmt.Errorf("tagger returned %d sentences for %d", len(tags), len(batch))
	}

	sentences := make([]document.Sentence, 0, len(batch))
	for i, words := range batch {
		if len(tags[i]) != len(words) {
			return fmt.Errorf("sentence %d: %d words but %d tags", i, len(words), len(tags[i]))
		}
		lowered := make([]string, len(words))
		for j, w := range words {
			lowered[j] = strings.ToLower(w)
		}
		sentences = append(sentences, document.Sentence{Words: lowered, Tags: tags[i]})
	}

	doc.TitleSentences = sentences[:counts[0]:counts[0]]
	doc.AbstractSentences = sentences[counts[0] : counts[0]+counts[1] : counts[0]+counts[1]]
	doc.ContentSentences = sentences[counts[0]+counts[1]:]
	return nil
}
