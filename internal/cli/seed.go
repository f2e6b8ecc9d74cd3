package cli

import (
	"context"
	"fmt"

	"contest-engine/internal/config"
	"contest-engine/internal/infra/postgres"
	rediscache "contest-engine/internal/infra/redis"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads exam content from YAML into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load exam definitions from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "exam YAML file (defaults to exam.file from config)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if file == "" {
		file = cfg.Exam.File
	}
	if file == "" {
		return fmt.Errorf("no exam file given")
	}
	exams, err := config.LoadExams(file)
	if err != nil {
		return err
	}

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Stale cached content would keep serving the old levels until the TTL expires.
	var cache *rediscache.ExamRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache = rediscache.NewExamRepository(client, nil, 0)
	}

	for _, exam := range exams {
		if err := postgres.SaveExam(ctx, db, exam); err != nil {
			return err
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, exam); err != nil {
				log.Warn("cache invalidation failed", zap.String("exam_id", exam.ID), zap.Error(err))
			}
		}
		log.Info("exam seeded",
			zap.String("exam_id", exam.ID),
			zap.Int("levels", len(exam.Levels)),
			zap.Int("questions", exam.QuestionCount()),
		)
	}
	return nil
}
