package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"home_dispatch/internal/agent"
	"home_dispatch/internal/catalog"
	"home_dispatch/internal/config"
	"home_dispatch/internal/handlers"
	"home_dispatch/internal/hub"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/matcher"
	"home_dispatch/internal/nlu"
	"home_dispatch/internal/repository"
	"home_dispatch/internal/repository/db"
	"home_dispatch/internal/server"
	"home_dispatch/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, scheduler and catalog watcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	store := newStore(cfg, log)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Infow("catalog_loaded", "path", store.Path(), "devices", store.Current().Len())

	feed := hub.New(cfg.Log.Backlog)

	executor, closeAgent, err := newAgent(cfg.Agent, feed.PublishOutput, log.Named("agent"))
	if err != nil {
		return err
	}
	defer closeAgent()

	classifier, err := nlu.New(ctx, nlu.Config{
		Provider: cfg.NLU.Provider,
		APIKey:   cfg.NLU.APIKey,
		BaseURL:  cfg.NLU.BaseURL,
		Model:    cfg.NLU.Model,
		Timeout:  cfg.NLU.Timeout,
	})
	if err != nil {
		return fmt.Errorf("nlu: %w", err)
	}
	if classifier == nil {
		log.Warnw("semantic_matching_disabled", "provider", cfg.NLU.Provider)
	}
	semantic := matcher.NewSemanticMatcher(classifier, cfg.NLU.Timeout, log.Named("nlu"))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	services := service.NewService(repository.NewRepository(sqlDB), service.Deps{
		Store:        store,
		Resolver:     matcher.NewResolver(semantic),
		Agent:        executor,
		Hub:          feed,
		AgentTimeout: cfg.Agent.Timeout,
		Location:     loc,
		Auth: service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
		Log: log,
	})
	apiHandler := handlers.NewHandler(services, log.Named("http")).AllowOrigins(cfg.HTTP.CORSOrigins...)

	srv := server.New(cfg.HTTP.Port, apiHandler.InitRoutes())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		services.Scheduler.Run(gctx, cfg.Scheduler.Tick)
		return nil
	})
	if cfg.Catalog.Watch {
		g.Go(func() error {
			return catalog.NewWatcher(store, cfg.Catalog.Debounce, log.Named("catalog")).Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server...")

		// allow in-flight requests to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", cfg.DB.Path)
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to init sqlite: %w", err)
	}
	return sqlDB, nil
}

// newAgent builds the configured executor and a func releasing its resources.
func newAgent(cfg config.AgentConfig, onOutput agent.OutputFunc, log *logger.Logger) (agent.Executor, func(), error) {
	switch cfg.Kind {
	case "mqtt":
		a, err := agent.DialMQTT(agent.MQTTConfig{
			Host:        cfg.MQTT.Host,
			Port:        cfg.MQTT.Port,
			TLS:         cfg.MQTT.TLS,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
		}, onOutput, log)
		if err != nil {
			return nil, nil, fmt.Errorf("mqtt agent: %w", err)
		}
		return a, a.Close, nil
	default:
		a := agent.NewExecAgent(agent.ExecConfig{
			Program:     cfg.Exec.Program,
			Args:        cfg.Exec.Args,
			Dir:         cfg.Exec.Dir,
			Env:         cfg.Exec.Env,
			OutputLimit: cfg.Exec.OutputLimit,
		}, onOutput, log)
		return a, func() {}, nil
	}
}
