package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/categora/internal/model"
)

// Reconciler resolves one proposal against existing labels
type Reconciler interface {
	Reconcile(ctx context.Context, proposed string, existing []string) (string, *model.Trace)
}

// ReconcileJob reconciles a single proposal
type ReconcileJob struct {
	Index      int
	Proposed   string
	Existing   []string
	Reconciler Reconciler
}

func (j *ReconcileJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ReconcileResult{Index: j.Index, Proposed: j.Proposed, Error: err}
	}
	final, trace := j.Reconciler.Reconcile(ctx, j.Proposed, j.Existing)
	return &ReconcileResult{Index: j.Index, Proposed: j.Proposed, Label: final, Trace: trace}
}

// ReconcileResult is the outcome of a ReconcileJob
type ReconcileResult struct {
	Index    int          `json:"-"`
	Proposed string       `json:"proposed"`
	Label    string       `json:"label"`
	Trace    *model.Trace `json:"trace,omitempty"`
	Error    error        `json:"-"`
}

func (r *ReconcileResult) GetError() error {
	return r.Error
}

// BatchReconciler reconciles many proposals against one snapshot of the
// existing labels.
type BatchReconciler struct {
	reconciler  Reconciler
	concurrency int
}

func NewBatchReconciler(reconciler Reconciler, concurrency int) *BatchReconciler {
	return &BatchReconciler{reconciler: reconciler, concurrency: concurrency}
}

// Reconcile returns one result per proposal, in input order
func (b *BatchReconciler) Reconcile(ctx context.Context, proposals, existing []string) []*ReconcileResult {
	if len(proposals) == 0 {
		return []*ReconcileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	for i, p := range proposals {
		pool.Submit(&ReconcileJob{
			Index:      i,
			Proposed:   p,
			Existing:   existing,
			Reconciler: b.reconciler,
		})
	}
	results := pool.Wait()

	out := make([]*ReconcileResult, len(proposals))
	for _, r := range results {
		rr := r.(*ReconcileResult)
		out[rr.Index] = rr
	}
	// proposals never submitted because ctx ended
	for i, r := range out {
		if r == nil {
			out[i] = &ReconcileResult{Index: i, Proposed: proposals[i], Error: context.Cause(ctx)}
		}
	}
	return out
}

// ReconcileFile reads proposals from a file and reconciles them
func (b *BatchReconciler) ReconcileFile(ctx context.Context, filePath string, existing []string) ([]*ReconcileResult, error) {
	proposals, err := ReadLinesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read proposals: %w", err)
	}
	return b.Reconcile(ctx, proposals, existing), nil
}

// ReadLinesFromFile reads one entry per line, skipping blanks, # comments
// and repeats.
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return lines, nil
}
