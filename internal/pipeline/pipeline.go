// Package pipeline wires reconciliation, nearest-centroid snapping,
// persistence and consolidation into the add-item flow.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/categora/internal/cluster"
	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/label"
	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/reconcile"
	"github.com/ppiankov/categora/internal/store"
)

// Tracker is the single entry point the CLI drives
type Tracker struct {
	repo       store.ItemRepo
	reconciler *reconcile.Reconciler
	builder    *cluster.Builder
	engine     *cluster.Engine
	config     model.Config
	log        *logger.Logger
}

// NewTracker assembles the components from configuration. The backend is
// shared by reconciliation and clustering.
func NewTracker(cfg model.Config, repo store.ItemRepo, backend *embed.Backend, log *logger.Logger) (*Tracker, error) {
	if log == nil {
		log = logger.Nop()
	}

	extra := map[string]string{}
	if cfg.Synonyms.File != "" {
		entries, err := label.LoadSynonymFile(cfg.Synonyms.File)
		if err != nil {
			return nil, err
		}
		for k, v := range entries {
			extra[k] = v
		}
	}
	// inline entries win over the file
	for k, v := range cfg.Synonyms.Extra {
		extra[k] = v
	}
	synonyms := label.NewSynonyms(extra, cfg.Synonyms.AllowCreate)

	builder := cluster.NewBuilder(backend, repo)
	return &Tracker{
		repo:       repo,
		reconciler: reconcile.New(cfg.Thresholds, synonyms, backend, log),
		builder:    builder,
		engine:     cluster.NewEngine(builder, repo, cfg.Consolidation.InternalMarker, log),
		config:     cfg,
		log:        log.With("component", "tracker"),
	}, nil
}

// NewItem is what a caller proposes
type NewItem struct {
	Text     string
	Label    string // proposed by an external classifier or the user
	Priority int
	DueAt    *time.Time
}

// AddResult reports how the stored label was chosen
type AddResult struct {
	Item          model.Item          `json:"item"`
	Trace         *model.Trace        `json:"trace"`
	Snapped       *cluster.Assignment `json:"snapped,omitempty"`
	Consolidation *cluster.Result     `json:"consolidation,omitempty"`
}

// Add reconciles the proposed label, optionally snaps the item to the
// nearest existing cluster, persists it and sweeps the scope for duplicates.
func (t *Tracker) Add(ctx context.Context, scope string, in NewItem) (*AddResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("item text is required")
	}

	// 1. Existing labels, first-seen order
	existing, err := t.repo.Labels(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	// 2. Reconcile the proposal
	final, trace := t.reconciler.Reconcile(ctx, in.Label, existing)
	res := &AddResult{Trace: trace}

	// 3. Item-level evidence may pull the item into an existing cluster
	if t.config.Assign.Enabled && len(existing) > 0 {
		a, ok, err := t.builder.Nearest(ctx, text, scope, t.config.Thresholds.Assign)
		if err != nil {
			return nil, fmt.Errorf("nearest label: %w", err)
		}
		if ok && a.Label != final {
			t.log.Debug("snapped to nearest label", "scope", scope, "from", final, "to", a.Label, "score", a.Score)
			final = a.Label
			res.Snapped = &a
		}
	}

	// 4. Persist
	res.Item = model.Item{
		SessionID: scope,
		Text:      text,
		Label:     strings.TrimSpace(final),
		Priority:  in.Priority,
		DueAt:     in.DueAt,
	}
	if err := t.repo.Add(ctx, &res.Item); err != nil {
		return nil, err
	}

	// 5. Optional sweep; the item is already stored so failures only warn
	if t.config.Consolidation.AfterInsert {
		cons, err := t.engine.Consolidate(ctx, scope, t.config.Thresholds.Merge)
		if err != nil {
			t.log.Warn("consolidation after insert failed", "scope", scope, "error", err)
		} else if len(cons.Renames) > 0 {
			res.Consolidation = &cons
			for _, rn := range cons.Renames {
				if rn.From == res.Item.Label {
					res.Item.Label = rn.To
				}
			}
		}
	}
	return res, nil
}

// Reconcile resolves a proposal against the scope's current labels, or
// against explicit labels when existing is non-nil.
func (t *Tracker) Reconcile(ctx context.Context, scope, proposed string, existing []string) (string, *model.Trace, error) {
	if existing == nil {
		var err error
		existing, err = t.repo.Labels(ctx, scope)
		if err != nil {
			return "", nil, fmt.Errorf("load labels: %w", err)
		}
	}
	final, trace := t.reconciler.Reconcile(ctx, proposed, existing)
	return final, trace, nil
}

// Reconciler exposes the cascade for batch use
func (t *Tracker) Reconciler() *reconcile.Reconciler {
	return t.reconciler
}

// Nearest finds the label whose items best match text
func (t *Tracker) Nearest(ctx context.Context, scope, text string, threshold float64) (cluster.Assignment, bool, error) {
	return t.builder.Nearest(ctx, text, scope, threshold)
}

// Consolidate merges near-duplicate labels; dryRun only plans
func (t *Tracker) Consolidate(ctx context.Context, scope string, threshold float64, dryRun bool) (cluster.Result, error) {
	if dryRun {
		return t.engine.Plan(ctx, scope, threshold)
	}
	return t.engine.Consolidate(ctx, scope, threshold)
}

// Items lists a scope's items
func (t *Tracker) Items(ctx context.Context, scope string, filter store.ListFilter) ([]model.Item, error) {
	return t.repo.List(ctx, scope, filter)
}

// Labels lists a scope's labels with item counts
func (t *Tracker) Labels(ctx context.Context, scope string) ([]model.LabelCount, error) {
	return t.repo.LabelCounts(ctx, scope)
}

// Done marks an item finished
func (t *Tracker) Done(ctx context.Context, scope string, id uint) error {
	return t.repo.SetStatus(ctx, scope, id, model.StatusDone)
}

// Delete removes an item; its label vanishes with its last item
func (t *Tracker) Delete(ctx context.Context, scope string, id uint) error {
	return t.repo.Delete(ctx, scope, id)
}
