package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	nearestThreshold     float64
	consolidateThreshold float64
	consolidateDryRun    bool
	consolidateJSON      bool
)

// nearestCmd represents the nearest command
var nearestCmd = &cobra.Command{
	Use:   "nearest <text>",
	Short: "Find the label whose items best match a text",
	Long: `Nearest encodes the text and compares it with the centroid of every
label in the session. A label is reported only when its score reaches the
threshold. Requires an embedding backend.

Example:
  categora nearest "pick up dry cleaning"
  categora nearest "gym session" --threshold 0.6`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		threshold := a.cfg.Thresholds.Assign
		if cmd.Flags().Changed("threshold") {
			threshold = nearestThreshold
		}
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("--threshold must be within [0,1], got %v", threshold)
		}

		ctx := cmd.Context()
		if !a.backend.Available(ctx) {
			fmt.Fprintf(os.Stderr, "Embedding backend unavailable: %v\n", a.backend.LoadError())
		}

		match, ok, err := a.tracker.Nearest(ctx, session, args[0], threshold)
		if err != nil {
			return fmt.Errorf("nearest failed: %w", err)
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintf(out, "No label reaches %.2f\n", threshold)
			return nil
		}
		fmt.Fprintf(out, "✓ %s (score %.3f)\n", match.Label, match.Score)
		return nil
	},
}

// consolidateCmd represents the consolidate command
var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge near-duplicate labels in the session",
	Long: `Consolidate compares the centroids of all labels in the session and
merges every connected group of labels whose pairwise similarity reaches the
threshold. Each group keeps one canonical label: the most used one, then a
label without the internal marker, then the shorter one, then alphabetical.

Consolidation only merges. Items are relabeled in a single transaction and
no category is ever deleted outright. Requires an embedding backend.

Example:
  categora consolidate --dry-run
  categora consolidate --threshold 0.8 --session 3f1c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		threshold := a.cfg.Thresholds.Merge
		if cmd.Flags().Changed("threshold") {
			threshold = consolidateThreshold
		}
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("--threshold must be within [0,1], got %v", threshold)
		}

		ctx := cmd.Context()
		if !a.backend.Available(ctx) {
			fmt.Fprintf(os.Stderr, "Embedding backend unavailable, nothing to merge: %v\n", a.backend.LoadError())
		}

		res, err := a.tracker.Consolidate(ctx, session, threshold, consolidateDryRun)
		if err != nil {
			return fmt.Errorf("consolidate failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if consolidateJSON {
			return writeJSON(out, res)
		}
		if len(res.Renames) == 0 {
			fmt.Fprintln(out, "No labels to merge")
			return nil
		}
		for _, rn := range res.Renames {
			fmt.Fprintf(out, "%s → %s (score %.3f)\n", rn.From, rn.To, rn.Score)
		}
		if consolidateDryRun {
			fmt.Fprintf(out, "\n%d renames in %d groups (dry run, nothing changed)\n", len(res.Renames), res.Components)
		} else {
			fmt.Fprintf(out, "\n✓ %d renames in %d groups, %d items relabeled\n", len(res.Renames), res.Components, res.Moved)
		}
		return nil
	},
}

// sessionCmd groups session helpers
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage session scopes",
	Long: `Items, labels and consolidation are scoped by session. The default
session is "public"; pass --session to work in another one.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a fresh session id",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), uuid.NewString())
	},
}

func init() {
	rootCmd.AddCommand(nearestCmd, consolidateCmd, sessionCmd)
	sessionCmd.AddCommand(sessionNewCmd)

	nearestCmd.Flags().Float64Var(&nearestThreshold, "threshold", 0, "minimum centroid similarity (default: thresholds.assign)")

	consolidateCmd.Flags().Float64Var(&consolidateThreshold, "threshold", 0, "merge threshold (default: thresholds.merge)")
	consolidateCmd.Flags().BoolVar(&consolidateDryRun, "dry-run", false, "show planned renames without applying them")
	consolidateCmd.Flags().BoolVar(&consolidateJSON, "json", false, "print the result as JSON")
}
