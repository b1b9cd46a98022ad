package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/kpbench/pkg/kpbench/store"
	"github.com/cognicore/kpbench/pkg/kpbench/store/sqlite"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [results.db]",
		Short: "Show the runs recorded in a results store",
		Long: `Show every run recorded in a results store with its averaged scores.
Without an argument the store of the output directory is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(firstNonEmpty(a.v.GetString("output"), defaultOutputDir), "results.db")
			if len(args) == 1 {
				path = args[0]
			}
			return a.results(cmd.Context(), cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output directory holding results.db (default is ./output)")
	cmd.Flags().Bool("failures", false, "also list failed documents")
	return cmd
}

func (a *app) results(ctx context.Context, out io.Writer, path string) error {
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNAME\tCORPUS\tSTARTED\tDOCS\tFAILED\tEVALUATOR\tCUTOFF\tP\tR\tF1")
	for _, r := range runs {
		ms, err := st.GetMeasures(ctx, r.ID, "")
		if err != nil {
			return err
		}
		head := fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d", r.ID, r.Name, r.Corpus, r.StartedAt.Format(time.DateTime), r.Processed, r.Failed)
		if len(ms) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\n", head)
		}
		for _, m := range ms {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%.4f\n", head, m.Evaluator, cutoffLabel(m.Cutoff), m.Precision, m.Recall, m.F1)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !a.v.GetBool("failures") {
		return nil
	}
	return printFailures(ctx, out, st, runs)
}

func printFailures(ctx context.Context, out io.Writer, st store.Store, runs []store.Run) error {
	for _, r := range runs {
		fs, err := st.Failures(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, f := range fs {
			fmt.Fprintf(out, "%s %s [%s] %s\n", r.Name, f.DocID, f.Stage, f.Error)
		}
	}
	return nil
}
