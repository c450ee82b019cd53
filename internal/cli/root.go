package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/categora/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	session string
	dbPath  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "categora",
	Short: "Categora - category reconciliation for task lists",
	Long: `Categora keeps the category labels of a task list from fragmenting.

Every proposed label is reconciled against the labels already in use:
exact match, synonym family, embedding similarity, then fuzzy spelling.
Near-duplicate categories are folded together by consolidation, which
only ever merges and never deletes a category.

Categora reports how each label was chosen, so every decision can be audited.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Categora.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "categora v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.categora/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&session, "session", model.DefaultScope, "session scope for items and labels")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "item store DSN (sqlite path, postgres:// or mysql:// URL)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("db"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.categora")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setupViper(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// legacyEnv maps config keys to the environment names older deployments used
var legacyEnv = map[string][]string{
	"thresholds.semantic": {"SIMILARITY_MODEL_MIN"},
	"thresholds.fuzzy":    {"SIMILARITY_FUZZY_MIN"},
	"thresholds.merge":    {"MERGE_TAU"},
	"thresholds.assign":   {"ASSIGN_MIN_SIM"},
	"embedding.model":     {"SENTENCE_MODEL_NAME"},
	"embedding.api_key":   {"OPENAI_API_KEY"},
	"store.dsn":           {"TODO_DB_PATH"},
}

// setupViper registers defaults and environment bindings. Every key needs a
// default so that AutomaticEnv values reach Unmarshal.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("CATEGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := model.DefaultConfig()
	defaults := map[string]interface{}{
		"thresholds.semantic":           d.Thresholds.Semantic,
		"thresholds.fuzzy":              d.Thresholds.Fuzzy,
		"thresholds.merge":              d.Thresholds.Merge,
		"thresholds.assign":             d.Thresholds.Assign,
		"synonyms.allow_create":         d.Synonyms.AllowCreate,
		"synonyms.file":                 d.Synonyms.File,
		"embedding.provider":            d.Embedding.Provider,
		"embedding.model":               d.Embedding.Model,
		"embedding.api_key":             d.Embedding.APIKey,
		"embedding.base_url":            d.Embedding.BaseURL,
		"embedding.timeout":             d.Embedding.Timeout,
		"embedding.requests_per_second": d.Embedding.RequestsPerSecond,
		"embedding.burst":               d.Embedding.Burst,
		"embedding.cache_dir":           d.Embedding.CacheDir,
		"embedding.cache_ttl":           d.Embedding.CacheTTL,
		"embedding.ort_library":         d.Embedding.ORTLibrary,
		"embedding.model_path":          d.Embedding.ModelPath,
		"embedding.tokenizer_path":      d.Embedding.TokenizerPath,
		"embedding.max_seq_len":         d.Embedding.MaxSeqLen,
		"embedding.http_proxy":          d.Embedding.HTTPProxy,
		"embedding.https_proxy":         d.Embedding.HTTPSProxy,
		"embedding.no_proxy":            d.Embedding.NoProxy,
		"store.dsn":                     d.Store.DSN,
		"consolidation.after_insert":    d.Consolidation.AfterInsert,
		"consolidation.internal_marker": d.Consolidation.InternalMarker,
		"assign.enabled":                d.Assign.Enabled,
		"workers":                       d.Workers,
		"log.mode":                      d.Log.Mode,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Explicit bindings replace AutomaticEnv for a key, so the prefixed
	// name goes first to keep precedence over the legacy one.
	for key, names := range legacyEnv {
		envs := append([]string{"CATEGORA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// loadConfig decodes and validates the merged configuration
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
