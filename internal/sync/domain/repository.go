package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	SaveRun(ctx context.Context, db *gorm.DB, run *SyncRun) error
	ListRuns(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int) ([]*SyncRun, error)
}
