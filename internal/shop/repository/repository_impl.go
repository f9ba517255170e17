package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/internal/shop/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, shop *domain.Shop) error {
	return db.WithContext(ctx).Create(shop).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, shop *domain.Shop) error {
	return db.WithContext(ctx).Save(shop).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Shop, error) {
	var shop domain.Shop
	err := db.WithContext(ctx).Where("id = ?", id).Take(&shop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (r *repo) FindByDomain(ctx context.Context, db *gorm.DB, shopDomain string) (*domain.Shop, error) {
	var shop domain.Shop
	err := db.WithContext(ctx).Where("domain = ?", shopDomain).Take(&shop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, onlyActive bool) ([]*domain.Shop, error) {
	var shops []*domain.Shop
	stmt := db.WithContext(ctx).Model(&domain.Shop{})
	if onlyActive {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}
