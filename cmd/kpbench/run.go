package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cognicore/kpbench/pkg/kpbench/config"
	"github.com/cognicore/kpbench/pkg/kpbench/eval"
	"github.com/cognicore/kpbench/pkg/kpbench/pipeline"
)

const defaultOutputDir = "output"

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [runs.yaml]",
		Short: "Run keyphrase extraction methods over a corpus",
		Long: `Run every run of a YAML run file, or a single method preset applied to
the corpus given by --corpus.

Each run writes its keyphrases under <output>/<run>/, records its scores in
<output>/results.db and writes a JSON report to <output>/<run>.report.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	f := cmd.Flags()
	f.StringP("method", "m", "topicrank", "method preset used without a run file (see 'kpbench methods')")
	f.StringP("corpus", "c", "", "corpus root holding train/, test/, train_ref/ and test_ref/")
	f.String("corpus-name", "", "corpus name (default is the base name of the corpus root)")
	f.StringP("language", "l", "en", "corpus language")
	f.String("encoding", "utf-8", "corpus encoding")
	f.String("train-ref", "", "training references file or directory")
	f.String("test-ref", "", "test references file or directory")
	f.StringP("output", "o", "", "output directory (default is the run file's output_dir, then ./output)")
	f.String("cache", "", "cache directory (default is the run file's cache_dir; no cache when empty)")
	f.IntP("workers", "j", 0, "documents processed in parallel (default is the run file's workers, then 8)")
	f.String("stoplist", "", "stop-word list YAML replacing the builtin list")
	f.String("lexicon", "", "lemma lexicon YAML")
	return cmd
}

func (a *app) run(ctx context.Context, out io.Writer, args []string) error {
	file, err := a.runFile(args)
	if err != nil {
		return err
	}

	outDir := firstNonEmpty(a.v.GetString("output"), file.Defaults.OutputDir, defaultOutputDir)
	loader := &config.Loader{
		StoplistPath: a.v.GetString("stoplist"),
		LexiconPath:  a.v.GetString("lexicon"),
		CacheDir:     a.v.GetString("cache"),
		OutputDir:    outDir,
		Workers:      a.v.GetInt("workers"),
		Logger:       a.logger,
	}
	defer loader.Close()

	for _, run := range file.Runs {
		p, err := loader.Build(ctx, run, file.Defaults)
		if err != nil {
			return fmt.Errorf("run %s: %w", run.Name, err)
		}
		rep, err := p.Run(ctx)
		if err != nil {
			return fmt.Errorf("run %s: %w", run.Name, err)
		}
		path := filepath.Join(outDir, run.Name+".report.json")
		if err := writeReport(path, rep); err != nil {
			return fmt.Errorf("run %s: write report: %w", run.Name, err)
		}
		printSummary(out, rep)
	}
	return nil
}

// runFile loads the run file given as argument, or builds one from the
// method preset and corpus flags.
func (a *app) runFile(args []string) (*config.File, error) {
	if len(args) == 1 {
		return config.Load(args[0])
	}
	return presetFile(a.v.GetString("method"), config.CorpusSpec{
		Path:     a.v.GetString("corpus"),
		Name:     a.v.GetString("corpus-name"),
		Language: a.v.GetString("language"),
		Encoding: a.v.GetString("encoding"),
		TrainRef: a.v.GetString("train-ref"),
		TestRef:  a.v.GetString("test-ref"),
	})
}

func writeReport(path string, rep *pipeline.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printSummary(w io.Writer, rep *pipeline.Report) {
	fmt.Fprintf(w, "%s (%s): %d/%d documents processed, %d failed\n",
		rep.Name, rep.RunID, rep.Processed, rep.Documents, rep.Failed)
	for _, ev := range rep.Evaluations {
		for _, m := range ev.Averages {
			fmt.Fprintf(w, "  %-5s %-4s P=%.4f R=%.4f F1=%.4f", ev.Evaluator, cutoffLabel(m.Cutoff), m.Precision, m.Recall, m.F1)
			if ev.Evaluator == "prfm" {
				fmt.Fprintf(w, " MAP=%.4f", m.AP)
			}
			fmt.Fprintln(w)
		}
	}
}

func cutoffLabel(k int) string {
	if k == eval.All {
		return "@all"
	}
	return fmt.Sprintf("@%d", k)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
