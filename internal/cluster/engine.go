package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ppiankov/categora/internal/label"
	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/score"
)

// Store is what consolidation needs from persistence
type Store interface {
	TextSource
	LabelCounts(ctx context.Context, scope string) ([]model.LabelCount, error)
	Relabel(ctx context.Context, scope string, renames []model.Rename) (int64, error)
}

// Result describes one consolidation pass
type Result struct {
	Renames    []model.Rename `json:"renames"`
	Components int            `json:"components"` // merged components (size > 1)
	Moved      int64          `json:"moved"`      // items relabeled, zero for a plan
}

// Engine merges labels whose centroids are near-duplicates
type Engine struct {
	builder *Builder
	store   Store
	marker  string
	log     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an engine. Labels starting with marker lose canonical
// ties against labels that do not; an empty marker disables the rule.
func NewEngine(builder *Builder, store Store, marker string, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		builder: builder,
		store:   store,
		marker:  marker,
		log:     log.With("component", "consolidate"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (e *Engine) scopeLock(scope string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[scope]
	if !ok {
		l = &sync.Mutex{}
		e.locks[scope] = l
	}
	return l
}

// Consolidate merges near-duplicate labels in scope and applies the renames
// as one transaction.
func (e *Engine) Consolidate(ctx context.Context, scope string, threshold float64) (Result, error) {
	return e.run(ctx, scope, threshold, true)
}

// Plan computes the renames Consolidate would apply without writing them
func (e *Engine) Plan(ctx context.Context, scope string, threshold float64) (Result, error) {
	return e.run(ctx, scope, threshold, false)
}

func (e *Engine) run(ctx context.Context, scope string, threshold float64, apply bool) (Result, error) {
	lock := e.scopeLock(scope)
	lock.Lock()
	defer lock.Unlock()

	centroids, err := e.builder.Build(ctx, scope)
	if err != nil {
		return Result{}, fmt.Errorf("build centroids: %w", err)
	}
	if centroids.Len() < 2 {
		e.log.Debug("nothing to consolidate", "scope", scope, "labels", centroids.Len())
		return Result{Renames: []model.Rename{}}, nil
	}

	counts, err := e.store.LabelCounts(ctx, scope)
	if err != nil {
		return Result{}, fmt.Errorf("count labels: %w", err)
	}
	countOf := make(map[string]int, len(counts))
	for _, c := range counts {
		countOf[c.Label] = c.Count
	}

	res := Result{Renames: []model.Rename{}}
	for _, group := range e.components(centroids, threshold) {
		if len(group) < 2 {
			continue
		}
		res.Components++
		canonical := e.canonical(group, countOf)
		for _, l := range group {
			if l == canonical {
				continue
			}
			res.Renames = append(res.Renames, model.Rename{
				From:  l,
				To:    canonical,
				Score: score.Semantic(centroids.Vectors[l], centroids.Vectors[canonical]),
			})
		}
	}

	if !apply || len(res.Renames) == 0 {
		return res, nil
	}
	moved, err := e.store.Relabel(ctx, scope, res.Renames)
	if err != nil {
		return Result{}, fmt.Errorf("apply renames: %w", err)
	}
	res.Moved = moved
	for _, rn := range res.Renames {
		e.log.Info("merged label", "scope", scope, "from", rn.From, "to", rn.To, "score", rn.Score, "threshold", threshold)
	}
	return res, nil
}

// components links every pair scoring at least threshold and returns the
// connected label groups in first-seen order.
func (e *Engine) components(c Centroids, threshold float64) [][]string {
	n := c.Len()
	ds := NewDisjointSet(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if score.Semantic(c.Vectors[c.Labels[i]], c.Vectors[c.Labels[j]]) >= threshold {
				ds.Union(i, j)
			}
		}
	}
	var out [][]string
	for _, idx := range ds.Components() {
		group := make([]string, len(idx))
		for k, i := range idx {
			group[k] = c.Labels[i]
		}
		out = append(out, group)
	}
	return out
}

// canonical picks the surviving label of a group: most items, then not
// internal, then shortest key, then smallest title-cased form, then the raw
// label itself.
func (e *Engine) canonical(group []string, countOf map[string]int) string {
	ranked := append([]string(nil), group...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if countOf[a] != countOf[b] {
			return countOf[a] > countOf[b]
		}
		if ia, ib := e.internal(a), e.internal(b); ia != ib {
			return !ia
		}
		la, lb := utf8.RuneCountInString(label.Normalize(a)), utf8.RuneCountInString(label.Normalize(b))
		if la != lb {
			return la < lb
		}
		if ta, tb := label.Title(a), label.Title(b); ta != tb {
			return ta < tb
		}
		return a < b
	})
	return ranked[0]
}

func (e *Engine) internal(l string) bool {
	return e.marker != "" && strings.HasPrefix(l, e.marker)
}
