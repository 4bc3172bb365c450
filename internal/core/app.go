package core

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/catalog/audible"
	"github.com/vrsandeep/serieswatch/internal/config"
	"github.com/vrsandeep/serieswatch/internal/db"
	"github.com/vrsandeep/serieswatch/internal/jobs"
	"github.com/vrsandeep/serieswatch/internal/logging"
	"github.com/vrsandeep/serieswatch/internal/store"
	"github.com/vrsandeep/serieswatch/internal/tracker"
	"github.com/vrsandeep/serieswatch/internal/websocket"
)

var registerOnce sync.Once

// registerProviders makes every catalog variant available to catalog.New.
func registerProviders() {
	registerOnce.Do(func() {
		catalog.Register(catalog.KindAudible, audible.Factory)
	})
}

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	DB        *sql.DB
	Store     *store.Store
	Catalog   catalog.Provider
	WsHub     *websocket.Hub
	Jobs      *jobs.Manager
	Tracker   *tracker.Service
	Scheduler *tracker.Scheduler
}

// New loads config.yml and sets up a new App.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig opens the database, runs migrations and wires every
// component from cfg.
func NewWithConfig(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Log)
	registerProviders()

	provider, err := catalog.New(cfg.Catalog.Provider, catalog.Options{
		LookupBaseURL: cfg.Catalog.LookupBaseURL,
		APIBaseURL:    cfg.Catalog.APIBaseURL,
		Timeout:       cfg.Catalog.Timeout(),
	}, logging.Component(logger, "catalog"))
	if err != nil {
		return nil, err
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database, logging.Component(logger, "db")); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app := Assemble(cfg, logger, database, provider)
	logger.Info().Str("provider", string(provider.Kind())).Str("database", cfg.Database.Path).
		Msg("Core application setup complete.")
	return app, nil
}

// Assemble wires the tracking components around an open database and a
// catalog provider.
func Assemble(cfg *config.Config, logger zerolog.Logger, database *sql.DB, provider catalog.Provider) *App {
	st := store.New(database)
	hub := websocket.NewHub(logging.Component(logger, "websocket"))
	manager := jobs.NewManager(logging.Component(logger, "jobs"))

	service := tracker.NewService(st, provider, logging.Component(logger, "tracker"),
		tracker.WithNotifier(hub),
		tracker.WithSignaler(hub),
		tracker.WithDefaultRegion(cfg.Catalog.Region),
	)
	scheduler := tracker.NewScheduler(st, service, manager, tracker.SchedulerConfig{
		CheckTime:  cfg.Tracker.CheckTime,
		BatchSize:  cfg.Tracker.BatchSize,
		ItemDelay:  cfg.Tracker.ItemDelay(),
		StaleAfter: cfg.Tracker.StaleAfter(),
	}, logging.Component(logger, "scheduler"))

	return &App{
		Config:    cfg,
		Log:       logger,
		DB:        database,
		Store:     st,
		Catalog:   provider,
		WsHub:     hub,
		Jobs:      manager,
		Tracker:   service,
		Scheduler: scheduler,
	}
}

// Close stops the schedule, cancels a running sweep and waits for it and
// for background checks before closing the database. Series the cancelled
// sweep had not reached stay due for the next run.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Jobs != nil {
		a.Jobs.Shutdown()
	}
	if a.Tracker != nil {
		a.Tracker.Wait()
	}
	if a.WsHub != nil {
		a.WsHub.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
