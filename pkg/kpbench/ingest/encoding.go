package ingest

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

// Decode wraps r so that it yields UTF-8 text from the named encoding
// (WHATWG labels such as "utf-8", "latin1", "windows-1252"). An empty name
// means UTF-8.
func Decode(r io.Reader, encoding string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	return enc.NewDecoder().Reader(r), nil
}

// charsetReader adapts Decode to encoding/xml.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	return Decode(input, label)
}

// Normalize returns the NFC form of s.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
