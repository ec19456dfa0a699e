package main

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/auth"
	"github.com/billylighter/telegrab/internal/avatar"
	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/export"
	"github.com/billylighter/telegrab/internal/logging"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/session"
	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/internal/telegram"
)

// Env holds the wired application graph shared by the UI and the
// headless subcommands.
type Env struct {
	Config   *model.AppConfig
	Log      *zap.Logger
	Meta     *meta.Store
	Registry *session.Registry
	Exec     *executor.Executor
	Avatars  *avatar.Cache
	Flow     *auth.Flow
	Store    *store.SQLiteStore
	Engine   *export.Engine
}

// bootstrap loads configuration, prepares the data directories and
// wires the session layer. The caller owns Close.
func bootstrap() (*Env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Storage.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare data directories: %w", err)
	}

	logPath := cfg.LogFile
	if logPath != "" && !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cfg.Storage.DataDir, logPath)
	}
	log, err := logging.New(logPath, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	metaStore, err := meta.NewStore(cfg.Storage.MetaPath())
	if err != nil {
		return nil, err
	}

	historyStore, err := store.NewSQLiteStore(cfg.Storage.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	exec := executor.New(telegram.DefaultFactory(), cfg.Storage.SessionsPath(), log)
	exec.Start()

	registry := session.NewRegistry(cfg.Storage.SessionsPath(), cfg.Storage.ImagesPath(), metaStore, historyStore, cfg.UseKeyring, log)
	avatars := avatar.New(cfg.Storage.ImagesPath(), metaStore, log)
	flow := auth.NewFlow(exec, metaStore, registry, avatars, cfg.UseKeyring, log)
	engine := export.New(exec, historyStore, cfg.Storage.ExportsPath(), log)

	return &Env{
		Config:   cfg,
		Log:      log,
		Meta:     metaStore,
		Registry: registry,
		Exec:     exec,
		Avatars:  avatars,
		Flow:     flow,
		Store:    historyStore,
		Engine:   engine,
	}, nil
}

// Close stops the worker and releases the history database.
func (e *Env) Close() {
	e.Exec.Stop()
	if err := e.Store.Close(); err != nil {
		e.Log.Warn("failed to close history database", zap.Error(err))
	}
	syncLogger(e.Log)
}
