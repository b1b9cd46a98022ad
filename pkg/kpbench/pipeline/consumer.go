package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Consumer receives the selected keyphrases of every processed document.
// Consumers are called from concurrent workers.
type Consumer interface {
	Consume(ctx context.Context, doc *document.Document, selected []rank.Scored) error
}

// TextWriter writes one file per document, one keyphrase per line, under
// Dir/<run name>/<document name>.txt.
type TextWriter struct {
	Dir string
	Run string
}

// Consume implements Consumer.
func (w TextWriter) Consume(ctx context.Context, doc *document.Document, selected []rank.Scored) error {
	dir := filepath.Join(w.Dir, w.Run)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, s := range selected {
		b.WriteString(s.Unit.Form)
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, doc.Name+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write keyphrases of %s: %w", doc.ID, err)
	}
	return nil
}
