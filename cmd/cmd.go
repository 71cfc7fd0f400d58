package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/nest-integration/internal/pkg/config"
	"github.com/anicoll/nest-integration/internal/pkg/contxt"
	"github.com/anicoll/nest-integration/internal/pkg/database"
	"github.com/anicoll/nest-integration/internal/pkg/database/migration"
	"github.com/anicoll/nest-integration/internal/pkg/metrics"
	"github.com/anicoll/nest-integration/internal/pkg/model"
	"github.com/anicoll/nest-integration/internal/pkg/mqtt"
	"github.com/anicoll/nest-integration/internal/pkg/nest"
	"github.com/anicoll/nest-integration/internal/pkg/plugin"
	"github.com/anicoll/nest-integration/internal/pkg/publisher"
	"github.com/anicoll/nest-integration/internal/pkg/server"
)

var errCron = errors.New("cron error")

const (
	cleanupSchedule = "0 3 * * *"
	cleanupTimeout  = time.Minute
	shutdownTimeout = 5 * time.Second
)

// NestCommand is the main entry point of the CLI. Values come from the
// environment and are overridden by flags that were set explicitly.
func NestCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(ctx, cfg)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	return start(ctx.Context, cfg, logger)
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	setString("nest-username", &cfg.NestCfg.Username)
	setString("nest-password", &cfg.NestCfg.Password)
	setString("nest-login-url", &cfg.NestCfg.LoginURL)
	setString("mqtt-host", &cfg.MqttCfg.Host)
	setString("mqtt-user", &cfg.MqttCfg.Username)
	setString("mqtt-pass", &cfg.MqttCfg.Password)
	setString("database-url", &cfg.DatabaseURL)
	setString("migrations-folder", &cfg.MigrationsFolder)
	setString("http-addr", &cfg.HTTPAddr)
	setString("log-level", &cfg.LogLevel)
	if ctx.IsSet("poll-interval") {
		cfg.PollInterval = ctx.Duration("poll-interval")
	}
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// start wires the publishers, the Nest account and the HTTP API, then runs them.
func start(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pub := publisher.New()

	sink := metrics.New(append(nest.MetricsCollectors(), plugin.MetricsCollectors()...)...)
	if err := pub.RegisterPublisher("prometheus", sink); err != nil {
		return err
	}
	hub := server.NewHub()
	if err := pub.RegisterPublisher("websocket", hub); err != nil {
		return err
	}

	var db *database.Database
	if cfg.DatabaseURL != "" {
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		var err error
		if db, err = database.Connect(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer db.Close()
		if err := pub.RegisterPublisher("postgres", db); err != nil {
			return err
		}
	}

	client := nest.NewClient(
		nest.WithLoginURL(cfg.NestCfg.LoginURL),
		nest.WithHTTPClient(&http.Client{Timeout: cfg.NestCfg.Timeout}),
		nest.WithLogger(logger),
	)
	p := plugin.New(func(creds model.Credentials) plugin.API {
		return nest.NewService(client, creds)
	}, pub)

	if cfg.MqttCfg.Host != "" {
		mq := mqtt.New(mqtt.NewClient(cfg.MqttCfg.Host, cfg.MqttCfg.Username, cfg.MqttCfg.Password))
		if err := mq.Connect(); err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		if err := pub.RegisterPublisher("mqtt", mq); err != nil {
			return err
		}
		if err := mq.Subscribe(ctx, p.SetVariable); err != nil {
			return err
		}
	}

	var (
		handler http.Handler
		cleaner Cleaner
	)
	if db != nil {
		handler = server.New(p, db, hub, sink.Handler())
		cleaner = db
	} else {
		handler = server.New(p, nil, hub, sink.Handler())
	}

	return run(ctx, cfg, p, cleaner, handler, logger)
}

func run(ctx context.Context, cfg *config.Config, p NestPlugin, db Cleaner, handler http.Handler, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := p.Configure(ctx, cfg.Credentials()); err != nil {
			// the next scheduled poll retries
			logger.Error("nest configuration failed", zap.Error(err))
		}
		return plugin.Schedule(ctx, p, cfg.PollInterval)
	})

	if db != nil {
		eg.Go(func() error {
			return cronDbCleanup(ctx, db, logger)
		})
	}

	if handler != nil {
		eg.Go(func() error {
			srv := &http.Server{
				Handler:      handler,
				Addr:         cfg.HTTPAddr,
				WriteTimeout: 15 * time.Second,
				ReadTimeout:  15 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

func cronDbCleanup(ctx context.Context, db Cleaner, logger *zap.Logger) error {
	if err := db.Cleanup(ctx); err != nil {
		return fmt.Errorf("%w: %v", errCron, err)
	}

	c := cron.New(cron.WithLogger(plugin.CronLogger(logger)))
	if _, err := c.AddFunc(cleanupSchedule, func() {
		cctx, cancel := contxt.NewContext(ctx, cleanupTimeout)
		defer cancel()
		if err := db.Cleanup(cctx); err != nil {
			logger.Error("error cleaning up database", zap.Error(err))
			return
		}
		logger.Info("cleaned up variable history")
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
