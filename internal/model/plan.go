package model

import (
	"time"
)

const (
	PlanStatusDraft     = "draft"
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

// Plan is a generated dated schedule for one Target. Draft plans are wizard
// scratch state and never affect live scheduling until activated. Version and
// SupersededByID form the re-planning chain: a cancelled plan points forward
// to the plan that replaced it.
type Plan struct {
	ID               string    `db:"id" json:"id"`
	TargetID         string    `db:"target_id" json:"target_id"`
	GroupID          *string   `db:"group_id" json:"group_id,omitempty"`
	Title            string    `db:"title" json:"title"`
	Overview         string    `db:"overview" json:"overview"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	TotalWeeks       int       `db:"total_weeks" json:"total_weeks"`
	Status           string    `db:"status" json:"status"`
	Version          int       `db:"version" json:"version"`
	SupersededByID   *string   `db:"superseded_by_id" json:"superseded_by_id,omitempty"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
