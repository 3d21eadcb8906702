package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, launch *Launch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Launch, error)
	// List returns launches newest first, at most limit (0 means default).
	List(ctx context.Context, db *gorm.DB, limit int) ([]*Launch, error)
	// DeleteOlderThan removes launches started before cutoff and returns
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
