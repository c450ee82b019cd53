package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/pipeline"
	"github.com/ppiankov/categora/internal/store"
	"github.com/spf13/cobra"
)

var (
	addLabel    string
	addPriority int
	addDue      string
	addJSON     bool
	listLabel   string
	listStatus  string
	listJSON    bool
	labelsJSON  bool
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add an item with a proposed label",
	Long: `Add stores an item after reconciling its proposed label against the
session's labels. When item text strongly matches an existing category the
item may be snapped into it, and the session is swept for near-duplicate
categories afterwards (see consolidation.after_insert).

Example:
  categora add "buy milk" --label groceries
  categora add "quarterly report" --label work --priority 1 --due 2026-03-01T09:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in the session",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark an item as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withItem(cmd, args[0], "done", func(ctx context.Context, a *app, id uint) error {
			return a.tracker.Done(ctx, session, id)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withItem(cmd, args[0], "deleted", func(ctx context.Context, a *app, id uint) error {
			return a.tracker.Delete(ctx, session, id)
		})
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List labels in the session with item counts",
	Args:  cobra.NoArgs,
	RunE:  runLabels,
}

func init() {
	rootCmd.AddCommand(addCmd, listCmd, doneCmd, deleteCmd, labelsCmd)

	addCmd.Flags().StringVarP(&addLabel, "label", "l", "", "proposed label")
	addCmd.Flags().IntVarP(&addPriority, "priority", "p", 3, "priority (1 = highest)")
	addCmd.Flags().StringVar(&addDue, "due", "", "due time, RFC3339")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "print the stored item and trace as JSON")

	listCmd.Flags().StringVarP(&listLabel, "label", "l", "", "only items with this label")
	listCmd.Flags().StringVar(&listStatus, "status", "", "only items with this status (open, done)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print items as JSON")

	labelsCmd.Flags().BoolVar(&labelsJSON, "json", false, "print labels as JSON")
}

func runAdd(cmd *cobra.Command, args []string) error {
	in := pipeline.NewItem{Text: args[0], Label: addLabel, Priority: addPriority}
	if addDue != "" {
		due, err := time.Parse(time.RFC3339, addDue)
		if err != nil {
			return fmt.Errorf("invalid --due %q: %w", addDue, err)
		}
		in.DueAt = &due
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.tracker.Add(cmd.Context(), session, in)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if addJSON {
		return writeJSON(out, res)
	}

	fmt.Fprintf(out, "✓ Added #%d [%s] %s\n", res.Item.ID, res.Item.Label, res.Item.Text)
	fmt.Fprintf(out, "  label: %s (method: %s)\n", res.Trace.Final, res.Trace.Method)
	if res.Snapped != nil {
		fmt.Fprintf(out, "  snapped to %s (score %.3f)\n", res.Snapped.Label, res.Snapped.Score)
	}
	if res.Consolidation != nil {
		for _, rn := range res.Consolidation.Renames {
			fmt.Fprintf(out, "  merged %s → %s (score %.3f)\n", rn.From, rn.To, rn.Score)
		}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	items, err := a.tracker.Items(cmd.Context(), session, store.ListFilter{Label: listLabel, Status: listStatus})
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if listJSON {
		return writeJSON(out, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return nil
	}
	for _, it := range items {
		mark := " "
		if it.Status == model.StatusDone {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] #%d %-20s p%d %s", mark, it.ID, it.Label, it.Priority, it.Text)
		if it.DueAt != nil {
			line += " (due " + it.DueAt.Format(time.RFC3339) + ")"
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}

func runLabels(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	counts, err := a.tracker.Labels(cmd.Context(), session)
	if err != nil {
		return fmt.Errorf("labels failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if labelsJSON {
		return writeJSON(out, counts)
	}
	if len(counts) == 0 {
		fmt.Fprintln(out, "No labels")
		return nil
	}
	for _, c := range counts {
		fmt.Fprintf(out, "%-24s %d\n", c.Label, c.Count)
	}
	return nil
}

// withItem parses an item id and applies fn to it
func withItem(cmd *cobra.Command, raw, verb string, fn func(context.Context, *app, uint) error) error {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid item id: %s", raw)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := fn(cmd.Context(), a, uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("item #%d not found in session %s", id, session)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Item #%d %s\n", id, verb)
	return nil
}
