package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/categora/internal/model"
)

// upperReconciler matches case-insensitively, otherwise keeps the proposal
type upperReconciler struct{}

func (upperReconciler) Reconcile(_ context.Context, proposed string, existing []string) (string, *model.Trace) {
	time.Sleep(time.Millisecond)
	for _, e := range existing {
		if strings.EqualFold(e, proposed) {
			return e, &model.Trace{Method: model.MethodExact, Final: e}
		}
	}
	return proposed, &model.Trace{Method: model.MethodKeepProposed, Final: proposed}
}

func TestBatchReconciler_PreservesOrder(t *testing.T) {
	b := NewBatchReconciler(upperReconciler{}, 3)
	proposals := []string{"work", "chess", "HEALTH", "errand", "Work"}
	results := b.Reconcile(context.Background(), proposals, []string{"Work", "Health"})

	want := []string{"Work", "chess", "Health", "errand", "Work"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Error != nil {
			t.Errorf("result %d: unexpected error %v", i, r.Error)
		}
		if r.Proposed != proposals[i] || r.Label != want[i] {
			t.Errorf("result %d = %q -> %q, want %q -> %q", i, r.Proposed, r.Label, proposals[i], want[i])
		}
	}
}

func TestBatchReconciler_Empty(t *testing.T) {
	b := NewBatchReconciler(upperReconciler{}, 2)
	if got := b.Reconcile(context.Background(), nil, nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestBatchReconciler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatchReconciler(upperReconciler{}, 2)
	results := b.Reconcile(ctx, []string{"a", "b", "c"}, nil)
	if len(results) != 3 {
		t.Fatalf("expected a result per proposal, got %d", len(results))
	}
	for i, r := range results {
		if !errors.Is(r.Error, context.Canceled) {
			t.Errorf("result %d: expected cancellation, got %v", i, r.Error)
		}
	}
}

func TestReadLinesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "# proposals\nWork\n\n  Health  \nWork\n#skip\nErrand\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLinesFromFile(path)
	if err != nil {
		t.Fatalf("ReadLinesFromFile failed: %v", err)
	}
	want := []string{"Work", "Health", "Errand"}
	if strings.Join(lines, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", lines, want)
	}

	if _, err := ReadLinesFromFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchReconciler_ReconcileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("health\nchess\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := NewBatchReconciler(upperReconciler{}, 2)
	results, err := b.ReconcileFile(context.Background(), path, []string{"Health"})
	if err != nil {
		t.Fatalf("ReconcileFile failed: %v", err)
	}
	if len(results) != 2 || results[0].Label != "Health" || results[1].Label != "chess" {
		t.Errorf("unexpected results %+v", results)
	}
}
