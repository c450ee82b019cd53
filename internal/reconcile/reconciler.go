// Package reconcile maps a proposed category label onto the existing label
// set through an ordered cascade of matching strategies.
package reconcile

import (
	"context"
	"strings"

	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/label"
	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/model"
)

// Reconciler runs the cascade. It is safe for concurrent use.
type Reconciler struct {
	strategies []Strategy
	thresholds model.Thresholds
	log        *logger.Logger
}

// New builds the standard cascade: exact, synonym, semantic, fuzzy
func New(thresholds model.Thresholds, synonyms *label.Synonyms, backend *embed.Backend, log *logger.Logger) *Reconciler {
	return NewWithStrategies(thresholds, log,
		Exact{},
		Synonym{Synonyms: synonyms},
		Semantic{Backend: backend},
		Fuzzy{},
	)
}

// NewWithStrategies builds a reconciler over a custom cascade
func NewWithStrategies(thresholds model.Thresholds, log *logger.Logger, strategies ...Strategy) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		strategies: strategies,
		thresholds: thresholds,
		log:        log.With("component", "reconcile"),
	}
}

// Reconcile returns the label to persist for proposed given the scope's
// existing labels, with a trace explaining the decision. It never fails:
// the worst case is the trimmed proposal itself.
func (r *Reconciler) Reconcile(ctx context.Context, proposed string, existing []string) (string, *model.Trace) {
	tr := &model.Trace{
		Proposed:   proposed,
		Thresholds: r.thresholds,
		Existing:   []string{},
		Attempts:   []model.Attempt{},
	}

	trimmed := strings.TrimSpace(proposed)
	if trimmed == "" {
		return r.finish(tr, proposed, model.MethodEmpty)
	}

	cands := label.Candidates(existing)
	tr.Key = label.Normalize(trimmed)
	for _, c := range cands {
		tr.Existing = append(tr.Existing, c.Label)
	}
	if len(cands) == 0 {
		return r.finish(tr, trimmed, model.MethodKeepProposed)
	}

	in := &Input{
		Proposed:   trimmed,
		Key:        tr.Key,
		Existing:   cands,
		Thresholds: r.thresholds,
	}
	for _, s := range r.strategies {
		if m, ok := s.Attempt(ctx, in, tr); ok {
			return r.finish(tr, m.Label, m.Method)
		}
	}
	return r.finish(tr, trimmed, model.MethodKeepProposed)
}

func (r *Reconciler) finish(tr *model.Trace, final string, method model.Method) (string, *model.Trace) {
	tr.Final = final
	tr.Method = method
	r.log.Debug("reconciled", "proposed", tr.Proposed, "final", final, "method", method)
	return final, tr
}
