package ingest

import (
	"errors"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

func TestSnowballStemmerEnglish(t *testing.T) {
	s, err := NewSnowballStemmer("en-US")
	if err != nil {
		t.Fatalf("NewSnowballStemmer: %v", err)
	}

	if s.Stem("networks") != s.Stem("network") {
		t.Errorf("Expected 'networks' and 'network' to share a stem, got %q and %q", s.Stem("networks"), s.Stem("network"))
	}
	if got := s.Stem("Running"); got != "run" {
		t.Errorf("Stem('Running') = %q, want 'run'", got)
	}
}

func TestSnowballStemmerUnknownLanguage(t *testing.T) {
	_, err := NewSnowballStemmer("xx")
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestNoStemmer(t *testing.T) {
	if got := (NoStemmer{}).Stem("Networks"); got != "networks" {
		t.Errorf("NoStemmer should only lowercase, got %q", got)
	}
}

func TestStemAll(t *testing.T) {
	got := StemAll(NoStemmer{}, []string{"Brown", "FOX"})
	if len(got) != 2 || got[0] != "brown" || got[1] != "fox" {
		t.Errorf("Unexpected stems %v", got)
	}
}
