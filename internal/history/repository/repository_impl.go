package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	historydomain "github.com/clipsmithlabs/clipsmith/internal/history/domain"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type repo struct{}

func Provide() historydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, l *historydomain.Launch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO launches (
			id, entry_point, step, env_created, exit_code, error,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.EntryPoint,
		l.Step,
		l.EnvCreated,
		l.ExitCode,
		l.Error,
		l.StartedAt,
		l.FinishedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*historydomain.Launch, error) {
	var l historydomain.Launch
	err := db.WithContext(ctx).Raw(
		`SELECT id, entry_point, step, env_created, exit_code, error,
		 started_at, finished_at
		 FROM launches WHERE id = ?`,
		id,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]*historydomain.Launch, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var items []*historydomain.Launch
	err := db.WithContext(ctx).Raw(
		`SELECT id, entry_point, step, env_created, exit_code, error,
		 started_at, finished_at
		 FROM launches
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM launches WHERE started_at < ?`, cutoff)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
