// Package plangen defines the PlanGenerator port: given a target, a date
// window, and study constraints, produce a structured plan of weekly
// milestones and dated tasks. Generation never touches persisted plans;
// callers decide how the result is stored and activated.
package plangen

import (
	"context"
	"time"

	"github.com/goalpal/goalpal/internal/model"
)

type Mode string

const (
	// ModeDraft marks speculative wizard generation; live plans must not be
	// affected in any way by a draft run.
	ModeDraft Mode = "draft"
	// ModeLive marks re-planning generation against live targets.
	ModeLive Mode = "live"
)

type Request struct {
	Target            *model.Target
	GoGetter          *model.GoGetter
	StartDate         time.Time
	EndDate           time.Time
	DailyMinutes      int
	PreferredDays     []int
	ExtraInstructions string
	Mode              Mode
}

type GeneratedPlan struct {
	Title            string          `json:"title"`
	Overview         string          `json:"overview"`
	Weeks            []GeneratedWeek `json:"weeks"`
	PromptTokens     int             `json:"-"`
	CompletionTokens int             `json:"-"`
}

type GeneratedWeek struct {
	WeekNumber  int             `json:"week_number"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tasks       []GeneratedTask `json:"tasks"`
}

type GeneratedTask struct {
	DayOfWeek        int    `json:"day_of_week"`
	SequenceInDay    int    `json:"sequence_in_day"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	TaskType         string `json:"task_type"`
	XPReward         int    `json:"xp_reward"`
	IsOptional       bool   `json:"is_optional"`
}

// Generator produces a plan for one target. Implementations may fail or time
// out per call; callers treat any failure as a single per-target error and
// continue with the remaining targets.
type Generator interface {
	Generate(ctx context.Context, req Request) (*GeneratedPlan, error)
}

const (
	DefaultDailyMinutes = 60
)

// AllDays is the default preferred-days set (Monday through Sunday).
func AllDays() []int {
	return []int{0, 1, 2, 3, 4, 5, 6}
}
