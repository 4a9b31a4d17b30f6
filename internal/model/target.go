package model

import (
	"time"
)

const (
	TargetStatusActive    = "active"
	TargetStatusCompleted = "completed"
	TargetStatusCancelled = "cancelled"
)

// Target is a single learning/habit goal owned by one go-getter.
// SubcategoryID ties the target to a track subcategory; at most one active
// target per (go-getter, subcategory) may hold an active live plan.
type Target struct {
	ID            string    `db:"id" json:"id"`
	GoGetterID    string    `db:"go_getter_id" json:"go_getter_id"`
	Title         string    `db:"title" json:"title"`
	Subject       string    `db:"subject" json:"subject"`
	Description   string    `db:"description" json:"description"`
	SubcategoryID *string   `db:"subcategory_id" json:"subcategory_id,omitempty"`
	Priority      int       `db:"priority" json:"priority"`
	Status        string    `db:"status" json:"status"`
	GroupID       *string   `db:"group_id" json:"group_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
