package cli

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"socratic-tutor/internal/app"
	"socratic-tutor/internal/config"
	"socratic-tutor/internal/engine"
	"socratic-tutor/internal/infra/files"
	"socratic-tutor/internal/infra/llm"
	"socratic-tutor/internal/infra/memory"
	pgloader "socratic-tutor/internal/infra/postgres"
	redisstore "socratic-tutor/internal/infra/redis"
	"socratic-tutor/internal/logger"
	transport "socratic-tutor/internal/transport/http"
)

const (
	defaultContentDir = "modules"
	defaultPort       = "8080"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tutoring server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := listenPort(portFlag, cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Sessions.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.ContentLoader = files.NewLoader(contentDir(cfg))
	if pool != nil {
		loader = pgloader.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = redisstore.NewContentRepository(redisClient, loader, contentTTL, log)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore(sessionTTL)
	}

	var source rand.Source
	if cfg.Engine.Seed != 0 {
		source = rand.NewSource(cfg.Engine.Seed)
	}
	controller := engine.NewController(engine.NewSelector(source))

	opts := []app.Option{app.WithLogger(log)}
	if gen := newGenerator(cfg, log); gen != nil {
		opts = append(opts, app.WithGenerator(gen))
	}
	service := app.NewTutorService(store, content, controller, opts...)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
	}

	go func() {
		log.Info("starting tutor service", "port", finalPort, "postgres", pool != nil, "redis", redisClient != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newGenerator returns nil when no provider is configured or the client
// cannot be built; tutoring then runs without polishing.
func newGenerator(cfg config.Config, log *logger.Logger) app.TextGenerator {
	if cfg.LLM.Provider == "" {
		return nil
	}
	gen, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Token:       cfg.LLM.Token,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     config.TTLDuration(cfg.LLM.Timeout, 30*time.Second),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, log.With("component", "llm"))
	if err != nil {
		log.Warn("text generator disabled", "provider", cfg.LLM.Provider, "error", err)
		return nil
	}
	return gen
}

// listenPort prefers the --port flag (or PORT), then server.port, then 8080.
func listenPort(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	return defaultPort
}

func contentDir(cfg config.Config) string {
	if cfg.Content.Dir != "" {
		return cfg.Content.Dir
	}
	return defaultContentDir
}
