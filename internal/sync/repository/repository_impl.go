package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/internal/sync/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SaveRun(ctx context.Context, db *gorm.DB, run *domain.SyncRun) error {
	return db.WithContext(ctx).Save(run).Error
}

func (r *repo) ListRuns(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*domain.SyncRun
	err := db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("started_at desc, id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
