package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cicconee/nugulmap/internal/auth"
	"github.com/cicconee/nugulmap/internal/config"
	"github.com/cicconee/nugulmap/internal/explorer"
	"github.com/cicconee/nugulmap/internal/favorite"
	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/cicconee/nugulmap/internal/logging"
	"github.com/cicconee/nugulmap/internal/nugul"
	"github.com/cicconee/nugulmap/internal/pool"
	"github.com/cicconee/nugulmap/internal/server"
	"github.com/cicconee/nugulmap/internal/storage"
	"github.com/go-chi/chi/v5"
)

var (
	port    string
	envPath string
)

func main() {
	flag.StringVar(&port, "p", "", "the port the server should listen on, overrides PORT")
	flag.StringVar(&envPath, "env", "", "path of a .env file to load")
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	var paths []string
	if envPath != "" {
		paths = append(paths, envPath)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	logger, closeLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	client := nugul.New(cfg.API.BaseURL, logger.With("component", "nugul"))

	workers := pool.New(cfg.Workers, cfg.Workers*4)
	workers.Start()
	defer workers.Stop()

	var locator explorer.Locator = explorer.StaticLocator{}
	if cfg.Device.Set {
		locator = explorer.StaticLocator{Point: geometry.NewPoint(cfg.Device.Lng, cfg.Device.Lat)}
	}

	favorites := favorite.New(store, logger.With("component", "favorite"))
	e := explorer.New(client, locator, favorites, logger.With("component", "explorer"))
	e.Pool = workers
	e.Debounce = cfg.RegionDebounce
	defer e.Close()

	session := auth.New(client, store, cfg.API.RedirectURI, logger.With("component", "auth"))

	if err := session.Init(ctx); err != nil {
		logger.Error("failed restoring session", "error", err)
	}
	if err := e.Init(ctx); err != nil {
		logger.Error("failed initializing explorer", "error", err)
	}

	srv := server.Server{
		Router:         chi.NewRouter(),
		Addr:           cfg.Port,
		Interval:       cfg.RefreshInterval,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Zones:          client,
		Explorer:       e,
		Session:        session,
	}

	return srv.Start()
}

func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	console := logging.NewConsoleHandler(logging.ConsoleConfig{
		Level:    cfg.Log.Level,
		IsJSON:   cfg.Log.JSON,
		UseColor: cfg.Log.UseColor,
	})

	if !cfg.FluentBit.Enabled {
		return slog.New(console), func() {}, nil
	}

	client, err := logging.NewFluentClient(logging.FluentConfig{
		Host:      cfg.FluentBit.Host,
		Port:      cfg.FluentBit.Port,
		TagPrefix: cfg.FluentBit.Tag,
	})
	if err != nil {
		return nil, nil, err
	}

	h := logging.NewFanout(console, logging.NewFluentHandler(client, cfg.FluentBit.Level))
	return slog.New(h), func() { client.Close() }, nil
}

func newStore(ctx context.Context, cfg config.Store) (storage.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverFile:
		return storage.NewFileStore(cfg.Path), func() {}, nil
	case config.DriverPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		s := storage.NewPostgresStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return s, closeDB(db), nil
	case config.DriverMemory:
		return storage.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed closing database:", err)
		}
	}
}
