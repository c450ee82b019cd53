package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/worker"
	"github.com/spf13/cobra"
)

var (
	reconcileExisting []string
	reconcileFile     string
	reconcileJSON     bool
	reconcileWorkers  int
	reconcileTimeout  time.Duration
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [label]",
	Short: "Reconcile a proposed label against existing labels",
	Long: `Reconcile runs a proposed label through the matching cascade:
- Exact match on the normalized label
- Synonym family lookup
- Embedding similarity (when a backend is available)
- Fuzzy spelling similarity
- Otherwise the proposal is kept

Existing labels come from the current session unless --existing is given.
Nothing is written to the store.

Example:
  categora reconcile exercise --existing Health,Work
  categora reconcile "meat shopping" --json
  categora reconcile --file proposals.txt --workers 8`,
	Args: func(cmd *cobra.Command, args []string) error {
		if reconcileFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringSliceVar(&reconcileExisting, "existing", nil, "comma separated existing labels (default: labels in the session)")
	reconcileCmd.Flags().StringVar(&reconcileFile, "file", "", "reconcile every line of a file")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "print the full trace as JSON")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 0, "concurrent workers for --file (default: config workers)")
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 5*time.Minute, "overall timeout")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), reconcileTimeout)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var existing []string
	if cmd.Flags().Changed("existing") {
		existing = append([]string{}, reconcileExisting...)
	} else {
		counts, err := a.tracker.Labels(ctx, session)
		if err != nil {
			return fmt.Errorf("load labels: %w", err)
		}
		existing = make([]string, 0, len(counts))
		for _, c := range counts {
			existing = append(existing, c.Label)
		}
	}

	out := cmd.OutOrStdout()

	if reconcileFile == "" {
		final, trace, err := a.tracker.Reconcile(ctx, session, args[0], existing)
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}
		if reconcileJSON {
			return writeJSON(out, trace)
		}
		printTrace(out, final, trace)
		return nil
	}

	workers := reconcileWorkers
	if workers <= 0 {
		workers = a.cfg.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Reconciling %s with %d workers against %d labels...\n", reconcileFile, workers, len(existing))
	}

	batch := worker.NewBatchReconciler(a.tracker.Reconciler(), workers)
	results, err := batch.ReconcileFile(ctx, reconcileFile, existing)
	if err != nil {
		return fmt.Errorf("batch reconcile failed: %w", err)
	}

	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
		}
	}

	if reconcileJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Error != nil {
				fmt.Fprintf(out, "✗ %s: %v\n", r.Proposed, r.Error)
				continue
			}
			fmt.Fprintf(out, "%s → %s (%s)\n", r.Proposed, r.Label, r.Trace.Method)
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Reconciled %d proposals (%d failed)\n", len(results)-failures, failures)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d proposals failed", failures, len(results))
	}
	return nil
}

// printTrace renders a trace for humans
func printTrace(w io.Writer, final string, tr *model.Trace) {
	fmt.Fprintf(w, "✓ %s (method: %s)\n", final, tr.Method)
	if tr.Family != "" {
		fmt.Fprintf(w, "  family:   %s\n", tr.Family)
	}
	if tr.Semantic != nil {
		fmt.Fprintf(w, "  semantic: %.3f (threshold %.2f)\n", *tr.Semantic, tr.Thresholds.Semantic)
	}
	if tr.Fuzzy != nil {
		fmt.Fprintf(w, "  fuzzy:    %.3f (threshold %.2f)\n", *tr.Fuzzy, tr.Thresholds.Fuzzy)
	}
	if !verbose {
		return
	}
	for _, at := range tr.Attempts {
		line := fmt.Sprintf("  - %-9s %s", at.Stage, at.Outcome)
		if at.Score != nil {
			line += fmt.Sprintf(" %.3f", *at.Score)
		}
		if at.Candidate != "" {
			line += " " + at.Candidate
		}
		if at.Reason != "" {
			line += " (" + at.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
