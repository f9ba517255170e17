package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// SyncRun records one orchestrator invocation for operational visibility.
type SyncRun struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID     snowflake.ID `gorm:"not null;index" json:"shop_id"`
	RunID      string       `gorm:"type:text;not null;uniqueIndex:ux_sync_runs_run" json:"run_id"`
	Trigger    string       `gorm:"type:text;not null" json:"trigger"`
	Status     string       `gorm:"type:text;not null" json:"status"`
	Requested  int          `gorm:"not null;default:0" json:"requested"`
	Reconciled int          `gorm:"not null;default:0" json:"reconciled"`
	Skipped    int          `gorm:"not null;default:0" json:"skipped"`
	Failed     int          `gorm:"not null;default:0" json:"failed"`
	Error      string       `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time    `gorm:"not null" json:"started_at"`
	FinishedAt time.Time    `gorm:"not null" json:"finished_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SyncRun) TableName() string { return "sync_runs" }
