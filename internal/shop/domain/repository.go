package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, shop *Shop) error
	Update(ctx context.Context, db *gorm.DB, shop *Shop) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Shop, error)
	FindByDomain(ctx context.Context, db *gorm.DB, domain string) (*Shop, error)
	List(ctx context.Context, db *gorm.DB, onlyActive bool) ([]*Shop, error)
}
