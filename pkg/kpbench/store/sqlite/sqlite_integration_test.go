package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/kpbench/pkg/kpbench/store"
)

func openTest(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteRuns tests run upsert and listing
func TestSQLiteRuns(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := store.Run{ID: "01J0RUN", Name: "textrank", Corpus: "demo", StartedAt: started, Config: "name: textrank\n"}
	if err := st.UpsertRun(ctx, run); err != nil {
		t.Fatalf("UpsertRun: %v", err)
	}

	run.Processed, run.Failed = 10, 1
	run.FinishedAt = started.Add(time.Minute)
	if err := st.UpsertRun(ctx, run); err != nil {
		t.Fatalf("UpsertRun update: %v", err)
	}

	got, ok, err := st.GetRun(ctx, "01J0RUN")
	if err != nil || !ok {
		t.Fatalf("GetRun: %v (found=%v)", err, ok)
	}
	if got.Processed != 10 || got.Failed != 1 || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("Expected updated run, got %+v", got)
	}
	if got.Config != run.Config || !got.StartedAt.Equal(started) {
		t.Errorf("Run fields not preserved: %+v", got)
	}

	if _, ok, _ := st.GetRun(ctx, "missing"); ok {
		t.Error("Expected missing run")
	}
	runs, err := st.ListRuns(ctx)
	if err != nil || len(runs) != 1 {
		t.Errorf("Expected 1 run, got %d (%v)", len(runs), err)
	}
}

// TestSQLiteKeyphrases tests that keyphrases are replaced per document
func TestSQLiteKeyphrases(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	first := []store.Keyphrase{{Rank: 1, Form: "lazy dog", Score: 2}, {Rank: 2, Form: "brown fox", Score: 1.5}}
	if err := st.PutKeyphrases(ctx, "r1", "c_t1", first); err != nil {
		t.Fatalf("PutKeyphrases: %v", err)
	}
	if err := st.PutKeyphrases(ctx, "r1", "c_t1", first[:1]); err != nil {
		t.Fatalf("PutKeyphrases replace: %v", err)
	}

	got, err := st.GetKeyphrases(ctx, "r1", "c_t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Form != "lazy dog" || got[0].Score != 2 {
		t.Errorf("Expected replaced keyphrases, got %+v", got)
	}
	if other, _ := st.GetKeyphrases(ctx, "r2", "c_t1"); len(other) != 0 {
		t.Errorf("Runs should not share keyphrases, got %+v", other)
	}
}

// TestSQLiteMeasures tests measure storage and cut-off ordering
func TestSQLiteMeasures(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	ms := []store.Measure{
		{Evaluator: "prfm", Cutoff: 0, Precision: 0.5, Recall: 0.25, F1: 1.0 / 3.0},
		{Evaluator: "prfm", Cutoff: 5, Precision: 1, Recall: 0.25, F1: 0.4, AP: 0.25},
	}
	if err := st.PutMeasures(ctx, "r1", "", ms); err != nil {
		t.Fatalf("PutMeasures: %v", err)
	}
	got, err := st.GetMeasures(ctx, "r1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Cutoff != 5 || got[1].Cutoff != 0 {
		t.Errorf("Expected cut-off 5 before all, got %+v", got)
	}
	if got[0].AP != 0.25 {
		t.Errorf("Expected AP 0.25, got %f", got[0].AP)
	}
}

// TestSQLiteConcurrentWrites tests writes from parallel workers
func TestSQLiteConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := fmt.Sprintf("doc-%d", i)
			if err := st.PutKeyphrases(ctx, "r1", doc, []store.Keyphrase{{Rank: 1, Form: doc}}); err != nil {
				errs <- err
				return
			}
			if i%4 == 0 {
				errs <- st.AddFailure(ctx, store.Failure{ID: fmt.Sprintf("f%02d", i), RunID: "r1", DocID: doc, Stage: "ranker", Error: "boom", At: time.Now()})
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent write: %v", err)
		}
	}

	failures, err := st.Failures(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 4 {
		t.Errorf("Expected 4 failures, got %d", len(failures))
	}
	if failures[0].Stage != "ranker" || failures[0].Error != "boom" {
		t.Errorf("Failure fields not preserved: %+v", failures[0])
	}
}
