package model

import (
	"time"
)

const (
	GoalGroupStatusActive    = "active"
	GoalGroupStatusCompleted = "completed"
	GoalGroupStatusArchived  = "archived"
)

// Replan lock states. The replan_status column doubles as a single-writer
// guard: a conditional update idle → in_progress admits exactly one re-plan
// at a time. failed is sticky and requires an explicit operator reset.
const (
	ReplanStatusIdle       = "idle"
	ReplanStatusInProgress = "in_progress"
	ReplanStatusFailed     = "failed"
)

const (
	ChangeTargetAdded     = "target_added"
	ChangeTargetRemoved   = "target_removed"
	ChangeTargetPaused    = "target_paused"
	ChangePriorityChanged = "priority_changed"
	ChangeEndDateExtended = "end_date_extended"
)

// GoalGroup is a time-bounded collection of Targets for one go-getter.
// LastChangeAt drives the rolling change cooldown.
type GoalGroup struct {
	ID           string     `db:"id" json:"id"`
	GoGetterID   string     `db:"go_getter_id" json:"go_getter_id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Status       string     `db:"status" json:"status"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	LastChangeAt *time.Time `db:"last_change_at" json:"last_change_at,omitempty"`
	ReplanStatus string     `db:"replan_status" json:"replan_status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// GoalGroupChange is one append-only audit record of a structural edit.
// ReplannedAt and ReplanPlanID are attached once re-planning completes; no
// other field is ever mutated after creation.
type GoalGroupChange struct {
	ID           string     `db:"id" json:"id"`
	GroupID      string     `db:"group_id" json:"group_id"`
	ChangeType   string     `db:"change_type" json:"change_type"`
	TargetID     *string    `db:"target_id" json:"target_id,omitempty"`
	OldValue     *string    `db:"old_value" json:"old_value,omitempty"`
	NewValue     *string    `db:"new_value" json:"new_value,omitempty"`
	ReplannedAt  *time.Time `db:"replanned_at" json:"replanned_at,omitempty"`
	ReplanPlanID *string    `db:"replan_plan_id" json:"replan_plan_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
