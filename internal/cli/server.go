package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-engine/internal/app"
	"contest-engine/internal/config"
	"contest-engine/internal/domain"
	"contest-engine/internal/infra/judge0"
	"contest-engine/internal/infra/kafka"
	"contest-engine/internal/infra/memory"
	"contest-engine/internal/infra/postgres"
	rediscache "contest-engine/internal/infra/redis"
	"contest-engine/internal/logging"
	transport "contest-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var (
		loader memory.ExamLoader
		store  app.Store
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewExamLoader(pool)

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		store = postgres.NewStore(db)
	} else {
		exams := map[string]domain.Exam{}
		if cfg.Exam.File != "" {
			list, err := config.LoadExams(cfg.Exam.File)
			if err != nil {
				return err
			}
			exams = config.ExamsByID(list)
		}
		loader = memory.NewStaticExamLoader(exams)
		store = memory.NewStore()
		log.Warn("postgres not configured, participant state is kept in memory", zap.Int("exams", len(exams)))
	}

	examTTL := config.TTLDuration(cfg.Exam.TTL, 10*time.Minute)
	var examRepo app.ExamRepository
	if redisClient != nil {
		examRepo = rediscache.NewExamRepository(redisClient, loader, examTTL)
	} else {
		examRepo = memory.NewExamRepository(loader, examTTL)
	}

	presenceTTL := config.TTLDuration(cfg.Contest.PresenceTTL, time.Minute)
	var presence app.PresenceTracker
	if redisClient != nil {
		presence = rediscache.NewPresenceTracker(redisClient, presenceTTL)
	} else {
		presence = memory.NewPresenceTracker(presenceTTL)
	}

	executor := judge0.NewExecutor(cfg.Sandbox.URL, cfg.Sandbox.Token, config.TTLDuration(cfg.Sandbox.Timeout, 20*time.Second))
	resolver := app.NewResolver(executor, cfg.Sandbox.Concurrency, log)

	rules := app.DefaultRules()
	if cfg.Contest.MaxEntryAttempts > 0 {
		rules.MaxEntryAttempts = cfg.Contest.MaxEntryAttempts
	}
	if cfg.Contest.ViolationPenalty > 0 {
		rules.ViolationPenalty = cfg.Contest.ViolationPenalty
	}
	if cfg.Contest.MaxRetries > 0 {
		rules.MaxRetries = cfg.Contest.MaxRetries
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithRules(rules),
		app.WithResolver(resolver),
		app.WithPresence(presence),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		writer := kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		opts = append(opts, app.WithPublisher(kafka.NewPublisher(writer)))
	}

	service := app.NewContestService(store, examRepo, opts...)
	handler := transport.NewHandler(service, resolver, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 60*time.Second),
	}

	go func() {
		log.Info("starting contest engine", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
