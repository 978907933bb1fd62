package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/infra/buildinfo"
	"github.com/yndnr/sheetsync-go/internal/infra/confloader"
	"github.com/yndnr/sheetsync-go/internal/infra/credpool"
	"github.com/yndnr/sheetsync-go/internal/infra/shutdown"
	"github.com/yndnr/sheetsync-go/internal/infra/tlsroots"
	"github.com/yndnr/sheetsync-go/internal/server/config"
	"github.com/yndnr/sheetsync-go/internal/server/httpserver"
	"github.com/yndnr/sheetsync-go/internal/server/localserver"
	"github.com/yndnr/sheetsync-go/internal/storage"
	"github.com/yndnr/sheetsync-go/internal/storage/gsheets"
	"github.com/yndnr/sheetsync-go/internal/storage/memory"
	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
	"github.com/yndnr/sheetsync-go/internal/telemetry/metric"
)

var errDraining = errors.New("server is shutting down")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sheetsync-server",
		Usage:   "Serve incremental sync over a spreadsheet-backed store",
		Version: buildinfo.Get().Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"SHEETSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Override server.http.addr",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Override store.backend (sheets, memory)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, "sheetsync-server "+buildinfo.String())
					return nil
				},
			},
			adminCommand(),
			sealCommand(),
			sealKeyCommand(),
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	configFile := c.String("config")

	cfg, err := loadConfig(configFile, flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting sheetsync-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile,
		"settings", config.Sanitize(cfg))

	ctx := context.Background()
	registry := metric.NewRegistry()

	source, identities, err := initSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	source = storage.Instrument(source, registry, log.Slog())
	source = storage.Throttle(source, cfg.Store.RequestsPerMinute, cfg.Store.Burst)

	workbooks, err := domain.NewWorkbooks(cfg.Workbooks)
	if err != nil {
		return fmt.Errorf("init workbooks: %w", err)
	}
	log.Info("workbooks configured", "aliases", workbooks.Aliases())
	if cfg.Auth.PrivateToken == "" {
		log.Warn("auth.private_token is empty, /api routes are unauthenticated")
	}

	var draining atomic.Bool
	started := time.Now()
	cache := memory.NewCache()
	engine := service.NewEngine(workbooks, source, cache,
		service.WithConfig(service.Config{
			CacheMaxAge:      cfg.Sync.CacheMaxAge,
			WindowRows:       cfg.Sync.WindowRows,
			FullFetchMaxRows: cfg.Sync.FullFetchMaxRows,
		}),
		service.WithObserver(registry),
		service.WithLogger(log.Slog()),
	)
	registry.MustRegister(metric.NewCollector(cache.Len, func() int { return identities }))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Sync:               engine,
		Logger:             log.Slog(),
		PrivateToken:       cfg.Auth.PrivateToken,
		Metrics:            registry,
		Version:            info.Version,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimit:          cfg.Server.RateLimit,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		Ready: func(context.Context) error {
			if draining.Load() {
				return errDraining
			}
			return nil
		},
	})
	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, shutdown.WithLogger(log.Slog()))

	var serverOpts []httpserver.ServerOption
	useTLS := cfg.Server.HTTP.TLSCertFile != ""
	if useTLS {
		certs, err := tlsroots.NewWatcher(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(log.Slog()))
		if err != nil {
			return fmt.Errorf("load TLS key pair: %w", err)
		}
		go certs.Run(ctx)
		shutdownHandler.OnShutdown("tls-watcher", func(context.Context) error {
			return certs.Close()
		})
		serverOpts = append(serverOpts, httpserver.WithTLSConfig(certs.ServerConfig()))
	}
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router, serverOpts...)

	// Hooks run in reverse registration order.
	if cfg.Server.AdminSocket != "" {
		admin := localserver.New(cfg.Server.AdminSocket,
			localserver.NewHandler(engine, func() localserver.Status {
				return localserver.Status{
					Version:      info.Version,
					Uptime:       time.Since(started).Round(time.Second).String(),
					Backend:      cfg.Store.Backend,
					Workbooks:    workbooks.Len(),
					Identities:   identities,
					CacheEntries: cache.Len(),
					Draining:     draining.Load(),
				}
			}),
			localserver.WithLogger(log.Slog()))
		if err := admin.Listen(); err != nil {
			return fmt.Errorf("admin socket: %w", err)
		}
		go func() {
			if err := admin.Serve(); err != nil {
				log.Error("admin socket error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown("admin-socket", admin.Shutdown)
		log.Info("admin socket listening", "path", cfg.Server.AdminSocket)
	}
	if configFile != "" {
		watcher, err := watchLogLevel(configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			go watcher.Run(ctx)
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Close()
			})
		}
	}
	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown("readiness", func(context.Context) error {
		draining.Store(true)
		return nil
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", useTLS,
			"backend", cfg.Store.Backend,
			"workbooks", workbooks.Len())

		var err error
		if useTLS {
			// The key pair comes from the watcher's GetCertificate.
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case err := <-serveErr:
			log.Error("HTTP server error", "error", err)
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := shutdownHandler.Wait(waitCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// flagOverrides maps set flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := map[string]any{}
	if c.IsSet("addr") {
		overrides["server.http.addr"] = c.String("addr")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	if c.IsSet("backend") {
		overrides["store.backend"] = c.String("backend")
	}
	return overrides
}

// loadConfig loads configuration from defaults, file, environment and flags.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()
	err := confloader.Load(cfg,
		confloader.File(configFile),
		confloader.Env(confloader.EnvPrefix),
		confloader.Overrides(overrides),
	)
	if err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initSource builds the lease source for the configured backend and
// reports how many identities back it.
func initSource(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (service.Source, int, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store := memory.NewStore()
		if cfg.Store.SeedFile != "" {
			f, err := os.Open(cfg.Store.SeedFile)
			if err != nil {
				return nil, 0, err
			}
			defer f.Close()
			if err := store.LoadSeed(f); err != nil {
				return nil, 0, err
			}
		}
		log.Warn("using in-memory store, data is lost on restart", "seed_file", cfg.Store.SeedFile)
		return service.StaticSource{Store: store}, 0, nil

	default:
		creds, err := config.ResolveCredentials(cfg)
		if err != nil {
			return nil, 0, err
		}
		ids := make([]credpool.Identity, len(creds))
		for i, c := range creds {
			ids[i] = credpool.Identity{ClientEmail: c.ClientEmail, PrivateKey: c.PrivateKey}
		}

		var opts []option.ClientOption
		if cfg.Store.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Store.Endpoint))
		}
		tlsCfg, err := tlsroots.LoadClientConfig(cfg.Store.CAFile)
		if err != nil {
			return nil, 0, err
		}
		if tlsCfg != nil {
			// The JWT token source and the API calls share this base client.
			ctx = context.WithValue(ctx, oauth2.HTTPClient, tlsroots.HTTPClient(tlsCfg, 0))
		}
		pool, err := credpool.New[*sheets.Service](ids, gsheets.NewClientFactory(ctx, opts...))
		if err != nil {
			return nil, 0, err
		}
		log.Info("credential pool ready", "identities", pool.Len(), "client_emails", pool.Emails())
		return gsheets.NewSource(pool), pool.Len(), nil
	}
}

// watchLogLevel reloads log.level whenever the config file changes.
// Other settings need a restart.
func watchLogLevel(configFile string, log logger.Logger) (*confloader.Watcher, error) {
	return confloader.NewWatcher([]string{configFile}, func(path string) {
		next := config.Default()
		if err := confloader.Load(next, confloader.File(path), confloader.Env(confloader.EnvPrefix)); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		prev := logger.GetLevel()
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("config reload ignored log level", "path", path, "error", err)
			return
		}
		if cur := logger.GetLevel(); cur != prev {
			log.Info("log level changed", "level", cur)
		}
	}, confloader.WithWatcherLogger(log.Slog()))
}
