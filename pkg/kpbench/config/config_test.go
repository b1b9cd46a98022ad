package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

const sampleRuns = `
defaults:
  cache_dir: /tmp/kpbench-cache
  workers: 4
runs:
  - name: topicrank
    corpus_builder:
      path: corpora/demo
      language: en
    candidate_extractor:
      type: pattern
      pattern: "(ADJ)*(NOUN)+"
    candidate_clusterer:
      type: hac
      threshold: 0.25
    ranker:
      type: topicrank
      lazy: true
      order: CENTROID
    selector:
      type: unredundant_topk
      k: 5
    keyphrase_consumers:
      - prfm
      - type: text
        dir: out
  - name: textrank
    corpus_builder:
      path: corpora/demo
    candidate_extractor: ngram
    ranker: textrank
    stemming: false
`

func TestParseRuns(t *testing.T) {
	f, err := Parse([]byte(sampleRuns))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(f.Runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(f.Runs))
	}
	if f.Defaults.Workers != 4 || f.Defaults.CacheDir != "/tmp/kpbench-cache" {
		t.Errorf("Unexpected defaults %+v", f.Defaults)
	}

	run := f.Runs[0]
	if run.Ranker.Type != "topicrank" || !run.Ranker.Lazy {
		t.Errorf("Expected lazy topicrank ranker, got %+v", run.Ranker)
	}
	var sel selectorParams
	if err := run.Selector.Decode(&sel); err != nil {
		t.Fatalf("Decode selector: %v", err)
	}
	if sel.K != 5 {
		t.Errorf("Expected k=5, got %d", sel.K)
	}
	if len(run.KeyphraseConsumers) != 2 || run.KeyphraseConsumers[0].Type != "prfm" {
		t.Errorf("Expected shorthand prfm consumer, got %+v", run.KeyphraseConsumers)
	}
	if !run.StemmingEnabled() {
		t.Error("Stemming should default to on")
	}

	short := f.Runs[1]
	if short.CandidateExtractor.Type != "ngram" || short.Ranker.Type != "textrank" {
		t.Errorf("Shorthand components not parsed: %+v", short)
	}
	if short.StemmingEnabled() {
		t.Error("Stemming should be off")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no runs":        "runs: []\n",
		"no name":        "runs:\n  - corpus_builder: {path: x}\n    candidate_extractor: ngram\n    ranker: textrank\n",
		"no corpus":      "runs:\n  - name: a\n    candidate_extractor: ngram\n    ranker: textrank\n",
		"no ranker":      "runs:\n  - name: a\n    corpus_builder: {path: x}\n    candidate_extractor: ngram\n",
		"duplicate name": "runs:\n  - {name: a, corpus_builder: {path: x}, candidate_extractor: ngram, ranker: textrank}\n  - {name: a, corpus_builder: {path: x}, candidate_extractor: ngram, ranker: textrank}\n",
		"bad yaml":       "runs: [\n",
	}
	for name, data := range cases {
		_, err := Parse([]byte(data))
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		var cfgErr *internalerr.ConfigurationError
		if !errors.As(err, &cfgErr) || !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected a ConfigurationError, got %v", name, err)
		}
	}
}

func TestFingerprint(t *testing.T) {
	f, err := Parse([]byte(`
runs:
  - name: a
    corpus_builder: {path: x}
    candidate_extractor: {type: pattern, min_word_length: 3}
    ranker: {type: textrank, window: 2}
  - name: b
    corpus_builder: {path: x}
    candidate_extractor: {type: pattern, min_word_length: 3, lazy: true}
    ranker: {type: textrank, window: 3}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, b := f.Runs[0], f.Runs[1]

	if a.CandidateExtractor.Fingerprint("up") != b.CandidateExtractor.Fingerprint("up") {
		t.Error("Lazy flag should not change the fingerprint")
	}
	if a.Ranker.Fingerprint("up") == b.Ranker.Fingerprint("up") {
		t.Error("Different params should change the fingerprint")
	}
	if a.Ranker.Fingerprint("up") == a.Ranker.Fingerprint("other") {
		t.Error("Different upstream should change the fingerprint")
	}
	if !strings.HasPrefix(a.Ranker.Fingerprint("up"), "textrank-") {
		t.Errorf("Fingerprint should start with the type, got %s", a.Ranker.Fingerprint("up"))
	}
}

func TestRenderKeepsParams(t *testing.T) {
	f, err := Parse([]byte(sampleRuns))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := f.Runs[0].Render()
	if !strings.Contains(out, "order: CENTROID") || !strings.Contains(out, "unredundant_topk") {
		t.Errorf("Rendered run lost its params:\n%s", out)
	}

	again, err := Parse([]byte("runs:\n" + indent(out)))
	if err != nil {
		t.Fatalf("Parse rendered run: %v", err)
	}
	if again.Runs[0].Ranker.Type != "topicrank" || !again.Runs[0].Ranker.Lazy {
		t.Errorf("Rendered run did not parse back: %+v", again.Runs[0].Ranker)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.yaml")
	if err := os.WriteFile(path, []byte(sampleRuns), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Runs[1].Name != "textrank" {
		t.Errorf("Expected second run textrank, got %s", f.Runs[1].Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Should error on nonexistent file")
	}
}

// indent turns a rendered run into a list item.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if i == 0 {
			lines[i] = "  - " + l
		} else {
			lines[i] = "    " + l
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
