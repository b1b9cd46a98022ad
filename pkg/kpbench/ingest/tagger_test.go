package ingest

import (
	"bytes"
	"context"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

func TestRuleTaggerEnglish(t *testing.T) {
	tagger := NewRuleTagger("en")
	words := []string{"The", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog", "."}

	tags, err := tagger.Tag(context.Background(), [][]string{words})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	want := []string{"DET", "ADJ", "ADJ", "NOUN", "NOUN", "ADP", "DET", "ADJ", "NOUN", "PUNCT"}
	if !reflect.DeepEqual(tags[0], want) {
		t.Errorf("Tag() = %v, want %v", tags[0], want)
	}
}

func TestRuleTaggerSuffixes(t *testing.T) {
	tagger := NewRuleTagger("en")
	words := []string{"statistical", "models", "quickly", "converge", "with", "42", "trained", "parameters"}

	tags, _ := tagger.Tag(context.Background(), [][]string{words})
	want := []string{"ADJ", "NOUN", "ADV", "NOUN", "ADP", "NUM", "ADJ", "NOUN"}
	if !reflect.DeepEqual(tags[0], want) {
		t.Errorf("Tag() = %v, want %v", tags[0], want)
	}
}

func TestRuleTaggerOverrides(t *testing.T) {
	tagger := NewRuleTagger("en")
	tagger.Overrides["converge"] = TagVerb

	tags, _ := tagger.Tag(context.Background(), [][]string{{"models", "converge"}})
	if tags[0][1] != TagVerb {
		t.Errorf("Expected override VERB, got %s", tags[0][1])
	}
}

func TestRuleTaggerFrench(t *testing.T) {
	tags, _ := NewRuleTagger("fr").Tag(context.Background(), [][]string{{"les", "réseaux", "neuronaux", "profonds"}})
	if tags[0][0] != TagDet || tags[0][1] != TagNoun {
		t.Errorf("Unexpected French tags %v", tags[0])
	}
}

func TestRuleTaggerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRuleTagger("en").Tag(ctx, [][]string{{"a"}}); err == nil {
		t.Error("Expected cancellation error")
	}
}

func TestCommandTaggerParse(t *testing.T) {
	c := NewCommandTagger("fake", nil, "")
	out := bytes.NewBufferString("graph/NOUN ranking/NOUN\nand/CONJ\n\n")

	tags, err := c.parse(out, [][]string{{"graph", "ranking"}, {"and"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(tags, [][]string{{"NOUN", "NOUN"}, {"CONJ"}}) {
		t.Errorf("Unexpected tags %v", tags)
	}
}

func TestCommandTaggerParseErrors(t *testing.T) {
	c := NewCommandTagger("fake", nil, "/")

	if _, err := c.parse(bytes.NewBufferString("graph/NOUN\n"), [][]string{{"graph", "x"}}); err == nil {
		t.Error("Token count mismatch should fail")
	}
	if _, err := c.parse(bytes.NewBufferString("graph\n"), [][]string{{"graph"}}); err == nil {
		t.Error("Missing separator should fail")
	}
	if _, err := c.parse(bytes.NewBufferString(""), [][]string{{"graph"}}); err == nil {
		t.Error("Missing lines should fail")
	}
}

func TestCommandTaggerRun(t *testing.T) {
	if _, err := exec.LookPath("sed"); err != nil {
		t.Skip("sed not available")
	}
	// Tags every token as NOUN.
	c := NewCommandTagger("sed", []string{"-E", `s#([^ ]+)#\1/NOUN#g`}, "/")

	tags, err := c.Tag(context.Background(), [][]string{{"keyphrase", "extraction"}, {"graphs"}})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(tags) != 2 || strings.Join(tags[0], " ") != "NOUN NOUN" {
		t.Errorf("Unexpected tags %v", tags)
	}
}

func TestCommandTaggerFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	if _, err := NewCommandTagger("false", nil, "").Tag(context.Background(), [][]string{{"x"}}); err == nil {
		t.Error("Nonzero exit should fail")
	}
}
