package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/thunfischtoast/gitlab-visualizer/config"
	"github.com/thunfischtoast/gitlab-visualizer/internal/api"
	"github.com/thunfischtoast/gitlab-visualizer/internal/db"
	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/state"
	"github.com/thunfischtoast/gitlab-visualizer/internal/sync"
)

// app holds what the commands share. The database and stores are opened on
// first use so that commands such as init work without them.
type app struct {
	configPath string
	cfg        *config.Config

	database    *db.DB
	aggregation *state.Aggregation
	connections *state.ConnectionStore
	selection   *state.GroupSelection
	themes      *state.ThemeStore
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadConfigOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) open() error {
	if a.database != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	database, err := db.New(a.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.database = database
	a.aggregation = state.NewAggregation(database)
	a.aggregation.UpdateQuery(func(q *filter.Query) {
		q.EnabledScopedKeys = a.cfg.EnabledScopedKeys
	})
	a.connections = state.NewConnectionStore(database, database)
	a.selection = state.NewGroupSelection(database)
	a.themes = state.NewThemeStore(database, lipgloss.HasDarkBackground)
	return nil
}

func (a *app) close() {
	if a.database == nil {
		return
	}
	if err := a.database.Close(); err != nil {
		log.Printf("Warning: failed to close database: %v", err)
	}
	a.database = nil
}

// connection returns the store for the active connection. A connection in
// the config file or environment takes precedence over the one stored with
// glv connect; its rotated OAuth tokens are kept for this run only.
func (a *app) connection() (*state.ConnectionStore, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	if a.cfg.HasConnection() {
		store := state.NewConnectionStore(state.NewMemoryStorage(), state.NewMemoryStorage())
		store.SetConnection(state.Connection{
			GitLabURL:  a.cfg.GitLabURL,
			AuthMethod: a.cfg.AuthMethod,
			ClientID:   a.cfg.ClientID,
		}, state.Credentials{
			Token:        a.cfg.Token,
			RefreshToken: a.cfg.RefreshToken,
		})
		return store, nil
	}
	if !a.connections.IsConnected() {
		return nil, fmt.Errorf("not connected: run glv connect or set %s and %s", config.EnvGitLabURL, config.EnvGitLabToken)
	}
	return a.connections, nil
}

func (a *app) client() (*api.GitLabClient, error) {
	store, err := a.connection()
	if err != nil {
		return nil, err
	}
	return api.NewGitLabClient(store.ClientConfig()), nil
}

func (a *app) sync(ctx context.Context) (sync.Stats, error) {
	client, err := a.client()
	if err != nil {
		return sync.Stats{}, err
	}
	syncer := sync.New(client, a.aggregation)
	syncer.SetWorkers(a.cfg.Workers)
	return syncer.Run(ctx, a.selection.IDs())
}

// ensureData loads the cached aggregation, fetching a new one when the cache
// is missing or stale unless offline is set
func (a *app) ensureData(ctx context.Context, offline bool) error {
	if err := a.open(); err != nil {
		return err
	}
	if a.aggregation.LoadFromCache() {
		ts, _ := a.aggregation.CacheTimestamp()
		log.Printf("Using cached data from %s", ts.Local().Format(time.DateTime))
		return nil
	}
	if offline {
		return fmt.Errorf("no fresh cached data, run glv sync first")
	}

	log.Printf("No fresh cached data, fetching from GitLab")
	_, err := a.sync(ctx)
	return err
}
