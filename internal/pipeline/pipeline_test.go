package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/store"
)

func setupTracker(t *testing.T, cfg model.Config, backend *embed.Backend) (*Tracker, store.ItemRepo) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })

	repo := store.NewItemRepo(db, nil)
	tr, err := NewTracker(cfg, repo, backend, nil)
	require.NoError(t, err)
	return tr, repo
}

func tableBackend(table map[string][]float32) *embed.Backend {
	return embed.Static(embed.EncoderFunc("stub", func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, s := range texts {
			if v, ok := table[s]; ok {
				out[i] = v
				continue
			}
			out[i] = []float32{0, 0, 1}
		}
		return out, nil
	}))
}

func TestTracker_AddWithoutBackend(t *testing.T) {
	tr, repo := setupTracker(t, model.DefaultConfig(), embed.Unavailable())
	ctx := context.Background()

	first, err := tr.Add(ctx, "s", NewItem{Text: "read a novel", Label: "Reading"})
	require.NoError(t, err)
	assert.Equal(t, "Reading", first.Item.Label)
	assert.Equal(t, model.MethodKeepProposed, first.Trace.Method)

	second, err := tr.Add(ctx, "s", NewItem{Text: "go to the gym", Label: "exercise"})
	require.NoError(t, err)
	assert.Equal(t, "Health", second.Item.Label)
	assert.Equal(t, model.MethodSynonymNew, second.Trace.Method)

	third, err := tr.Add(ctx, "s", NewItem{Text: "yoga", Label: "workout"})
	require.NoError(t, err)
	assert.Equal(t, "Health", third.Item.Label)
	assert.Equal(t, model.MethodSynonymExisting, third.Trace.Method)

	labels, err := repo.Labels(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reading", "Health"}, labels)
}

func TestTracker_AddRequiresText(t *testing.T) {
	tr, _ := setupTracker(t, model.DefaultConfig(), embed.Unavailable())
	_, err := tr.Add(context.Background(), "s", NewItem{Text: "  ", Label: "Work"})
	assert.Error(t, err)
}

func TestTracker_AddSnapsToNearestCluster(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Consolidation.AfterInsert = false
	backend := tableBackend(map[string][]float32{
		"buy milk":         {1, 0, 0},
		"buy bread":        {0.95, 0.31, 0},
		"groceries errand": {0, 1, 0},
	})
	tr, _ := setupTracker(t, cfg, backend)
	ctx := context.Background()

	_, err := tr.Add(ctx, "s", NewItem{Text: "buy milk", Label: "Groceries/Errands"})
	require.NoError(t, err)

	res, err := tr.Add(ctx, "s", NewItem{Text: "buy bread", Label: "Bakery"})
	require.NoError(t, err)
	require.NotNil(t, res.Snapped)
	assert.Equal(t, "Groceries/Errands", res.Item.Label)
	assert.Equal(t, model.MethodKeepProposed, res.Trace.Method)
	assert.Equal(t, "Bakery", res.Trace.Final)
}

func TestTracker_AssignDisabled(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Assign.Enabled = false
	cfg.Consolidation.AfterInsert = false
	backend := tableBackend(map[string][]float32{
		"buy milk":  {1, 0, 0},
		"buy bread": {1, 0, 0},
		"grocery":   {0, 1, 0},
	})
	tr, _ := setupTracker(t, cfg, backend)
	ctx := context.Background()

	_, err := tr.Add(ctx, "s", NewItem{Text: "buy milk", Label: "Groceries"})
	require.NoError(t, err)
	res, err := tr.Add(ctx, "s", NewItem{Text: "buy bread", Label: "Bakery"})
	require.NoError(t, err)
	assert.Nil(t, res.Snapped)
	assert.Equal(t, "Bakery", res.Item.Label)
}

func TestTracker_ConsolidateAfterInsert(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Assign.Enabled = false
	backend := tableBackend(map[string][]float32{
		"prepare slides": {1, 0, 0},
		"email boss":     {1, 0, 0},
		"file reports":   {0.8, 0.6, 0},
		"work":           {1, 0, 0},
		"office task":    {0, 1, 0},
	})
	tr, repo := setupTracker(t, cfg, backend)
	ctx := context.Background()

	for _, it := range []NewItem{
		{Text: "prepare slides", Label: "Work"},
		{Text: "email boss", Label: "Work"},
	} {
		_, err := tr.Add(ctx, "s", it)
		require.NoError(t, err)
	}

	res, err := tr.Add(ctx, "s", NewItem{Text: "file reports", Label: "office tasks"})
	require.NoError(t, err)
	require.NotNil(t, res.Consolidation)
	assert.Equal(t, "Work", res.Item.Label)

	counts, err := repo.LabelCounts(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []model.LabelCount{{Label: "Work", Count: 3}}, counts)
}

func TestTracker_ConsolidateDryRunAndItems(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Assign.Enabled = false
	cfg.Consolidation.AfterInsert = false
	backend := tableBackend(map[string][]float32{"a": {1, 0, 0}, "b": {1, 0, 0}, "chore": {0, 1, 0}})
	tr, _ := setupTracker(t, cfg, backend)
	ctx := context.Background()

	_, err := tr.Add(ctx, "s", NewItem{Text: "a", Label: "Chores"})
	require.NoError(t, err)
	_, err = tr.Add(ctx, "s", NewItem{Text: "b", Label: "Housework"})
	require.NoError(t, err)

	plan, err := tr.Consolidate(ctx, "s", cfg.Thresholds.Merge, true)
	require.NoError(t, err)
	require.Len(t, plan.Renames, 1)

	labels, err := tr.Labels(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	applied, err := tr.Consolidate(ctx, "s", cfg.Thresholds.Merge, false)
	require.NoError(t, err)
	assert.Equal(t, plan.Renames, applied.Renames)

	items, err := tr.Items(ctx, "s", store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, items[0].Label, items[1].Label)

	require.NoError(t, tr.Done(ctx, "s", items[0].ID))
	require.NoError(t, tr.Delete(ctx, "s", items[1].ID))
	assert.ErrorIs(t, tr.Delete(ctx, "s", items[1].ID), store.ErrNotFound)
}

func TestTracker_ReconcileExplicitExisting(t *testing.T) {
	tr, _ := setupTracker(t, model.DefaultConfig(), embed.Unavailable())
	final, trace, err := tr.Reconcile(context.Background(), "s", "works", []string{"Work"})
	require.NoError(t, err)
	assert.Equal(t, "Work", final)
	assert.Equal(t, model.MethodExact, trace.Method)
}

func TestNewTracker_SynonymFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pilates: fitness\n"), 0o644))

	cfg := model.DefaultConfig()
	cfg.Synonyms.File = path
	cfg.Synonyms.AllowCreate = false
	tr, _ := setupTracker(t, cfg, embed.Unavailable())

	final, trace, err := tr.Reconcile(context.Background(), "s", "Pilates", []string{"Fitness"})
	require.NoError(t, err)
	assert.Equal(t, "Fitness", final)
	assert.Equal(t, model.MethodSynonymExisting, trace.Method)

	cfg.Synonyms.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewTracker(cfg, nil, embed.Unavailable(), nil)
	assert.Error(t, err)
}
