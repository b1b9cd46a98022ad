package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/graph"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/selector"
	"github.com/cognicore/kpbench/pkg/kpbench/topicrankpp"
)

// writeCorpus lays out a one-document corpus with references.
func writeCorpus(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "demo")
	files := map[string]string{
		"test/t1.txt":        "The quick brown fox jumps over the lazy dog.\n",
		"test_ref/refs.txt":  "t1\tbrown fox;lazy dog\n",
		"train/d1.txt":       "Neural networks learn deep representations.\n",
		"train_ref/refs.txt": "d1\tneural network;deep learning\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func parseRun(t *testing.T, root, body string) Run {
	t.Helper()
	f, err := Parse([]byte("runs:\n  - name: demo-run\n    corpus_builder:\n      path: " + root + "\n" + body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f.Runs[0]
}

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}
	if err := loader.Load(); err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if loader.stops != nil || loader.lexicon != nil {
		t.Error("Empty loader should not load files")
	}
}

func TestLoaderNonExistentStoplist(t *testing.T) {
	loader := Loader{StoplistPath: "/nonexistent/stoplist.yaml"}
	if err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent stoplist")
	}
}

func TestLoaderNonExistentLexicon(t *testing.T) {
	loader := Loader{LexiconPath: "/nonexistent/lexicon.yaml"}
	if err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent lexicon")
	}
}

func TestLoaderValidFiles(t *testing.T) {
	tmpDir := t.TempDir()
	stopPath := filepath.Join(tmpDir, "stoplist.yaml")
	if err := os.WriteFile(stopPath, []byte("terms:\n  - quick\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := Loader{StoplistPath: stopPath}
	if err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loader.stops.IsStop("quick") {
		t.Error("Stoplist term not loaded")
	}
}

func TestBuildUnknownComponents(t *testing.T) {
	root := writeCorpus(t)
	cases := map[string]string{
		"extractor": "    candidate_extractor: bogus\n    ranker: textrank\n",
		"clusterer": "    candidate_extractor: ngram\n    candidate_clusterer: bogus\n    ranker: textrank\n",
		"ranker":    "    candidate_extractor: ngram\n    ranker: bogus\n",
		"mode":      "    candidate_extractor: ngram\n    ranker: {type: topicrank, mode: bogus}\n",
		"selector":  "    candidate_extractor: ngram\n    ranker: textrank\n    selector: bogus\n",
		"consumer":  "    candidate_extractor: ngram\n    ranker: textrank\n    keyphrase_consumers: [bogus]\n",
		"builder":   "    document_builder: bogus\n    candidate_extractor: ngram\n    ranker: textrank\n",
		"weighting": "    candidate_extractor: ngram\n    ranker: {type: topicrank++, weighting: bogus}\n",
	}
	for name, body := range cases {
		loader := &Loader{}
		_, err := loader.Build(context.Background(), parseRun(t, root, body), Defaults{})
		var cfgErr *internalerr.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected a ConfigurationError, got %v", name, err)
		}
		loader.Close()
	}
}

func TestBuildMissingCorpus(t *testing.T) {
	run := parseRun(t, filepath.Join(t.TempDir(), "nowhere"), "    candidate_extractor: ngram\n    ranker: textrank\n")
	loader := &Loader{}
	defer loader.Close()
	if _, err := loader.Build(context.Background(), run, Defaults{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected configuration error for a missing corpus, got %v", err)
	}
}

func TestBuildComponents(t *testing.T) {
	root := writeCorpus(t)
	run := parseRun(t, root, `    candidate_extractor: {type: pattern, lazy: true}
    candidate_clusterer: {type: hac, threshold: 0.5}
    ranker: {type: topicrank, order: CENTROID, damping: 0.9}
    selector: {type: unredundant_topk, k: 3}
`)
	loader := &Loader{Workers: 2}
	defer loader.Close()
	p, err := loader.Build(context.Background(), run, Defaults{Workers: 8})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if p.Pool.Size() != 2 {
		t.Errorf("Expected loader workers to override defaults, got %d", p.Pool.Size())
	}
	if !p.Stages.Extractor.Lazy || p.Stages.Ranker.Lazy {
		t.Errorf("Unexpected lazy flags %+v", p.Stages)
	}
	if !p.Stages.Builder.Shared {
		t.Error("Document builder should use the shared namespace")
	}
	names := map[string]bool{}
	for _, s := range []string{p.Stages.Builder.Component, p.Stages.Extractor.Component, p.Stages.Clusterer.Component, p.Stages.Ranker.Component, p.Stages.Selector.Component} {
		names[s] = true
	}
	if len(names) != 5 {
		t.Errorf("Expected distinct component names, got %v", names)
	}

	r, ok := p.Ranker.(*graph.Ranker)
	if !ok {
		t.Fatalf("Expected a graph ranker, got %T", p.Ranker)
	}
	if r.Config.Damping != 0.9 || r.Config.Epsilon != graph.DefaultEpsilon {
		t.Errorf("Unexpected PageRank config %+v", r.Config)
	}
	if sel, ok := p.Selector.(selector.UnredundantTopK); !ok || sel.K != 3 {
		t.Errorf("Expected UnredundantTopK{3}, got %#v", p.Selector)
	}
	if len(p.Evaluators) != 1 || p.Evaluators[0].Name != "prfm" {
		t.Errorf("Expected the default prfm evaluator, got %d evaluators", len(p.Evaluators))
	}
	if p.RunID == "" || !strings.Contains(p.Config, "topicrank") {
		t.Errorf("Run ID and config should be set: %q", p.RunID)
	}
}

func TestBuildTopicRankPP(t *testing.T) {
	root := writeCorpus(t)
	run := parseRun(t, root, `    candidate_extractor: pattern
    candidate_clusterer: hac
    ranker: {type: topicrank++, weighting: npmi, lambda_t: 0.3, quota: 2}
`)
	loader := &Loader{}
	defer loader.Close()
	p, err := loader.Build(context.Background(), run, Defaults{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r, ok := p.Ranker.(*topicrankpp.Ranker)
	if !ok {
		t.Fatalf("Expected a TopicRank++ ranker, got %T", p.Ranker)
	}
	if r.LambdaTopic != 0.3 || r.LambdaKeyphrase != topicrankpp.DefaultLambdaKeyphrase || r.Quota != 2 {
		t.Errorf("Unexpected params %+v", r)
	}
}

func TestBuildAndRun(t *testing.T) {
	root := writeCorpus(t)
	out := filepath.Join(t.TempDir(), "out")
	run := parseRun(t, root, `    candidate_extractor: pattern
    ranker: tfidf
    selector: {type: topk, k: 5}
    keyphrase_consumers: [prf, text, sqlite, cards]
`)
	loader := &Loader{CacheDir: filepath.Join(t.TempDir(), "cache")}
	defer loader.Close()
	p, err := loader.Build(context.Background(), run, Defaults{OutputDir: out, Workers: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Store == nil || p.Cache == nil {
		t.Fatal("Expected a results store and a cache")
	}

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Processed != 1 || rep.Failed != 0 {
		t.Fatalf("Expected 1 processed document, got %+v", rep)
	}

	if _, err := os.Stat(filepath.Join(out, "demo-run", "t1.txt")); err != nil {
		t.Errorf("Keyphrase file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "demo-run.cards.jsonl")); err != nil {
		t.Errorf("Cards file not written: %v", err)
	}

	runs, err := p.Store.ListRuns(context.Background())
	if err != nil || len(runs) != 1 || runs[0].Processed != 1 {
		t.Errorf("Expected the run recorded in the store, got %+v (%v)", runs, err)
	}
	kps, err := p.Store.GetKeyphrases(context.Background(), p.RunID, "demo_t1")
	if err != nil || len(kps) == 0 {
		t.Errorf("Expected stored keyphrases, got %+v (%v)", kps, err)
	}
}
