package ingest

import (
	"reflect"
	"testing"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer()

	tokens := tokenizer.Tokenize("The quick brown fox jumps over the lazy dog.")
	expected := []string{"The", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog", "."}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerHyphens(t *testing.T) {
	tokenizer := NewTokenizer()

	tokens := tokenizer.Tokenize("state-of-the-art machine-learning")
	expected := []string{"state-of-the-art", "machine-learning"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerDanglingHyphens(t *testing.T) {
	tokenizer := NewTokenizer()

	tokens := tokenizer.Tokenize("pre- and post-processing -- done")
	expected := []string{"pre", "-", "and", "post-processing", "-", "-", "done"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerNumbers(t *testing.T) {
	tokenizer := NewTokenizer()

	tokens := tokenizer.Tokenize("It costs 3.5 dollars, or 1,000 cents.")
	expected := []string{"It", "costs", "3.5", "dollars", ",", "or", "1,000", "cents", "."}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerApostrophe(t *testing.T) {
	tokenizer := NewTokenizer()

	tokens := tokenizer.Tokenize("the model's output isn't 'quoted'")
	expected := []string{"the", "model's", "output", "isn't", "'", "quoted", "'"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerPreservesCase(t *testing.T) {
	tokens := NewTokenizer().Tokenize("BERT GPT-4")
	expected := []string{"BERT", "GPT-4"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerDropsControlCharacters(t *testing.T) {
	tokens := NewTokenizer().Tokenize("alpha\x1fbeta\tgamma")
	expected := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokenize() = %v, want %v", tokens, expected)
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	if tokens := NewTokenizer().Tokenize("   \n\t "); len(tokens) != 0 {
		t.Errorf("Expected no tokens, got %v", tokens)
	}
}

func TestTokenizerUnicode(t *testing.T) {
	tokens := NewTokenizer().Tokenize("réseau neuronal profond")
	if len(tokens) != 3 || tokens[0] != "réseau" {
		t.Errorf("Unexpected tokens %v", tokens)
	}
}

func TestIsWord(t *testing.T) {
	if !IsWord("fox") || !IsWord("42") {
		t.Error("Alphanumeric tokens are words")
	}
	if IsWord(".") || IsWord("--") {
		t.Error("Punctuation tokens are not words")
	}
}

func TestIsNumeric(t *testing.T) {
	for _, s := range []string{"42", "3.5", "1,000", "1990-2000"} {
		if !isNumeric(s) {
			t.Errorf("%q should be numeric", s)
		}
	}
	for _, s := range []string{"gpt-4", "-", "abc"} {
		if isNumeric(s) {
			t.Errorf("%q should not be numeric", s)
		}
	}
}
