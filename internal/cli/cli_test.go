package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/categora/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setupViper(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CATEGORA_THRESHOLDS_SEMANTIC", "0.6")
	t.Setenv("CATEGORA_EMBEDDING_PROVIDER", "none")
	t.Setenv("CATEGORA_SYNONYMS_ALLOW_CREATE", "false")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.6, cfg.Thresholds.Semantic, 1e-9)
	assert.Equal(t, "none", cfg.Embedding.Provider)
	assert.False(t, cfg.Synonyms.AllowCreate)
}

func TestLoadConfig_LegacyAliases(t *testing.T) {
	t.Setenv("SIMILARITY_MODEL_MIN", "0.5")
	t.Setenv("SIMILARITY_FUZZY_MIN", "0.9")
	t.Setenv("MERGE_TAU", "0.8")
	t.Setenv("ASSIGN_MIN_SIM", "0.7")
	t.Setenv("SENTENCE_MODEL_NAME", "sentence-transformers/paraphrase-MiniLM-L3-v2")
	t.Setenv("TODO_DB_PATH", "/tmp/todo.db")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cfg.Thresholds.Semantic, 1e-9)
	assert.InDelta(t, 0.9, cfg.Thresholds.Fuzzy, 1e-9)
	assert.InDelta(t, 0.8, cfg.Thresholds.Merge, 1e-9)
	assert.InDelta(t, 0.7, cfg.Thresholds.Assign, 1e-9)
	assert.Equal(t, "sentence-transformers/paraphrase-MiniLM-L3-v2", cfg.Embedding.Model)
	assert.Equal(t, "/tmp/todo.db", cfg.Store.DSN)
}

func TestLoadConfig_PrefixedWinsOverLegacy(t *testing.T) {
	t.Setenv("MERGE_TAU", "0.8")
	t.Setenv("CATEGORA_THRESHOLDS_MERGE", "0.9")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, cfg.Thresholds.Merge, 1e-9)
}

func TestLoadConfig_FailsFast(t *testing.T) {
	t.Run("threshold out of range", func(t *testing.T) {
		t.Setenv("MERGE_TAU", "1.5")
		_, err := loadConfig(newTestViper(t))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidThreshold))
	})

	t.Run("unparsable number", func(t *testing.T) {
		t.Setenv("SIMILARITY_FUZZY_MIN", "high")
		_, err := loadConfig(newTestViper(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode config")
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("CATEGORA_EMBEDDING_PROVIDER", "word2vec")
		_, err := loadConfig(newTestViper(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown embedding provider")
	})
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestShowConfig_RedactsAPIKey(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.APIKey = "sk-secret"

	var buf bytes.Buffer
	require.NoError(t, showConfig(&buf, cfg))
	assert.NotContains(t, buf.String(), "sk-secret")
	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.Contains(t, buf.String(), "semantic: 0.58")
}

// run executes the root command against a throwaway store with embeddings off
func run(t *testing.T, dbFile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--db", dbFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_EndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CATEGORA_EMBEDDING_PROVIDER", "none")
	dbFile := filepath.Join(t.TempDir(), "items.db")

	out, err := run(t, dbFile, "add", "buy milk", "--label", "Groceries")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Added #1 [Groceries] buy milk")
	assert.Contains(t, out, "keep_proposed")

	out, err = run(t, dbFile, "add", "eggs", "--label", "groceries")
	require.NoError(t, err)
	assert.Contains(t, out, "[Groceries]")
	assert.Contains(t, out, "method: exact")

	out, err = run(t, dbFile, "add", "morning run", "--label", "exercise")
	require.NoError(t, err)
	assert.Contains(t, out, "[Health]")
	assert.Contains(t, out, "synonym_new")

	out, err = run(t, dbFile, "labels", "--json")
	require.NoError(t, err)
	var counts []model.LabelCount
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, []model.LabelCount{
		{Label: "Groceries", Count: 2},
		{Label: "Health", Count: 1},
	}, counts)

	out, err = run(t, dbFile, "done", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Item #1 done")

	_, err = run(t, dbFile, "delete", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err = run(t, dbFile, "list", "--status", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] #1")
	assert.NotContains(t, out, "eggs")

	out, err = run(t, dbFile, "reconcile", "gym", "--json")
	require.NoError(t, err)
	var tr model.Trace
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, model.MethodSynonymExisting, tr.Method)
	assert.Equal(t, "Health", tr.Final)
	assert.Equal(t, []string{"Groceries", "Health"}, tr.Existing)
	assert.Nil(t, tr.Semantic)

	out, err = run(t, dbFile, "consolidate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "No labels to merge")
}

func TestSessionNew(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "unused.db"), "session", "new")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 36)
}
