package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/pmi"
	"github.com/cognicore/kpbench/pkg/kpbench/stoplist"
	"github.com/cognicore/kpbench/pkg/kpbench/workpool"
)

func newStoplistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stoplist",
		Short: "Suggest corpus specific stop words",
		Long: `Suggest stop words for a corpus: tokens found in most training documents
that associate with no other token. The output is a stop-word file
extending the builtin list, usable with 'kpbench run --stoplist'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.suggestStopwords(cmd.Context(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringP("corpus", "c", "", "corpus root")
	f.StringP("language", "l", "en", "corpus language")
	f.String("encoding", "utf-8", "corpus encoding")
	f.String("stoplist", "", "stop-word list YAML to extend instead of the builtin list")
	f.Float64("min-df", stoplist.DefaultThresholds().DFPercent, "minimum document frequency, in percent")
	f.Float64("max-npmi", stoplist.DefaultThresholds().NPMIMax, "maximum association with any other token")
	f.Int("top", 50, "maximum number of suggestions")
	f.IntP("workers", "j", 0, "documents processed in parallel")
	return cmd
}

func (a *app) suggestStopwords(ctx context.Context, out io.Writer) error {
	root := a.v.GetString("corpus")
	if root == "" {
		return internalerr.Configf("corpus", "no corpus given")
	}
	lang := a.v.GetString("language")
	corpus, err := document.LoadCorpus(root, filepath.Base(filepath.Clean(root)), lang, a.v.GetString("encoding"), "", "")
	if err != nil {
		return internalerr.Configf("corpus", "%v", err)
	}
	files := corpus.Train
	if len(files) == 0 {
		files = corpus.Test
	}

	mgr := stoplist.ForLanguage(lang)
	if path := a.v.GetString("stoplist"); path != "" {
		if mgr, err = stoplist.LoadYAML(path); err != nil {
			return err
		}
	}

	pre := ingest.NewPreProcessor(lang, a.logger)
	results, err := workpool.Map(ctx, workpool.New(a.v.GetInt("workers")), files,
		func(ctx context.Context, path string) ([]string, error) {
			doc, err := pre.Process(ctx, path, corpus.Name, corpus.Language, corpus.Encoding)
			if err != nil {
				return nil, err
			}
			return contentWords(doc), nil
		})
	if err != nil {
		return err
	}
	counter := pmi.NewCounter()
	for i, r := range results {
		if r.Err != nil {
			a.logger.Warn("document skipped", "doc", document.Name(files[i]), "err", r.Err)
			continue
		}
		counter.AddDocument(r.Value)
	}

	th := stoplist.DefaultThresholds()
	th.DFPercent = a.v.GetFloat64("min-df")
	th.NPMIMax = a.v.GetFloat64("max-npmi")
	candidates := mgr.Suggest(stoplist.CorpusStats(counter), th)
	if top := a.v.GetInt("top"); top > 0 && len(candidates) > top {
		candidates = candidates[:top]
	}

	suggested := stoplist.File{Language: lang, Extends: "builtin"}
	for _, c := range candidates {
		a.logger.Info("stop word suggested", "token", c.Token, "score", c.Score,
			"df_percent", c.Stats.DFPercent, "npmi_max", c.Stats.NPMIMax)
		suggested.Terms = append(suggested.Terms, c.Token)
	}
	a.logger.Info("stop words suggested", "documents", counter.TotalDocs(), "tokens", len(counter.Terms()), "suggested", len(candidates))

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(suggested); err != nil {
		return err
	}
	return enc.Close()
}

// contentWords returns the lowercased words of a document, punctuation and
// numbers left out.
func contentWords(doc *document.Document) []string {
	var words []string
	for _, s := range doc.FullTextSentences() {
		for i, w := range s.Words {
			if s.Tags[i] == ingest.TagPunct || s.Tags[i] == ingest.TagNum {
				continue
			}
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}
