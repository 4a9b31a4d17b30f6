package model

import (
	"time"
)

// WeeklyMilestone is one ISO-week slice of a Plan.
type WeeklyMilestone struct {
	ID             string    `db:"id" json:"id"`
	PlanID         string    `db:"plan_id" json:"plan_id"`
	WeekNumber     int       `db:"week_number" json:"week_number"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	TotalTasks     int       `db:"total_tasks" json:"total_tasks"`
	CompletedTasks int       `db:"completed_tasks" json:"completed_tasks"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
