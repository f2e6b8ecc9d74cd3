package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_contest.sql
var createContestSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createContestSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TABLE IF EXISTS violations;
DROP TABLE IF EXISTS level_attempts;
DROP TABLE IF EXISTS submissions;
DROP TABLE IF EXISTS participants;
DROP TABLE IF EXISTS exam_access_codes;
DROP TABLE IF EXISTS exams;`)
			return err
		},
	)
}
