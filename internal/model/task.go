package model

import (
	"time"
)

const (
	TaskStatusActive    = "active"
	TaskStatusCancelled = "cancelled"
	// Superseded means the task was displaced by a re-plan before it
	// occurred. Superseded tasks are retained for audit, never deleted.
	TaskStatusSuperseded = "superseded"
)

const (
	TaskTypeReading  = "reading"
	TaskTypeWriting  = "writing"
	TaskTypeMath     = "math"
	TaskTypePractice = "practice"
	TaskTypeReview   = "review"
	TaskTypeProject  = "project"
	TaskTypeQuiz     = "quiz"
	TaskTypeOther    = "other"
)

// Task is one schedulable unit within a milestone. DayOfWeek uses 0=Monday
// through 6=Sunday.
type Task struct {
	ID               string    `db:"id" json:"id"`
	MilestoneID      string    `db:"milestone_id" json:"milestone_id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	SequenceInDay    int       `db:"sequence_in_day" json:"sequence_in_day"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	EstimatedMinutes int       `db:"estimated_minutes" json:"estimated_minutes"`
	XPReward         int       `db:"xp_reward" json:"xp_reward"`
	TaskType         string    `db:"task_type" json:"task_type"`
	IsOptional       bool      `db:"is_optional" json:"is_optional"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ValidTaskType reports whether t is a known task type; generators may emit
// arbitrary strings, which callers map to TaskTypeOther.
func ValidTaskType(t string) bool {
	switch t {
	case TaskTypeReading, TaskTypeWriting, TaskTypeMath, TaskTypePractice,
		TaskTypeReview, TaskTypeProject, TaskTypeQuiz, TaskTypeOther:
		return true
	}
	return false
}
