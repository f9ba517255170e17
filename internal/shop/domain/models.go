// Package domain contains persistence models for the shop service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Shop represents a tenant: one installed Shopify store.
type Shop struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Domain      string            `gorm:"type:text;not null;uniqueIndex:ux_shops_domain" json:"domain"`
	Slug        string            `gorm:"type:text;not null" json:"slug"`
	AccessToken string            `gorm:"type:text;not null" json:"-"`
	Scopes      string            `gorm:"type:text" json:"scopes"`
	Active      bool              `gorm:"not null;default:true" json:"active"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Shop) TableName() string { return "shops" }
