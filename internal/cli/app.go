package cli

import (
	"fmt"
	"time"

	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/pipeline"
	"github.com/ppiankov/categora/internal/store"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// app bundles what every data command needs
type app struct {
	cfg     model.Config
	log     *logger.Logger
	db      *gorm.DB
	backend *embed.Backend
	tracker *pipeline.Tracker
}

// openApp loads configuration and assembles logger, store, embedding
// backend and tracker. Callers must defer close.
func openApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		log.Sync()
		return nil, err
	}

	backend, err := newBackend(cfg, log)
	if err != nil {
		_ = store.Close(db)
		log.Sync()
		return nil, err
	}

	tracker, err := pipeline.NewTracker(cfg, store.NewItemRepo(db, log), backend, log)
	if err != nil {
		_ = backend.Close()
		_ = store.Close(db)
		log.Sync()
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: db, backend: backend, tracker: tracker}, nil
}

// newBackend builds the lazily loaded embedding backend; nothing is loaded here
func newBackend(cfg model.Config, log *logger.Logger) (*embed.Backend, error) {
	loader, err := embed.NewLoader(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	opts := []embed.Option{embed.WithLogger(log)}
	if cfg.Embedding.Timeout > 0 {
		opts = append(opts, embed.WithTimeout(time.Duration(cfg.Embedding.Timeout)*time.Second))
	}
	return embed.New(loader, opts...), nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.log.Warn("close embedding backend", "error", err)
	}
	if err := store.Close(a.db); err != nil {
		a.log.Warn("close store", "error", err)
	}
	a.log.Sync()
}
