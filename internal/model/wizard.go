package model

import (
	"time"
)

const (
	WizardStatusCollectingScope       = "collecting_scope"
	WizardStatusCollectingTargets     = "collecting_targets"
	WizardStatusCollectingConstraints = "collecting_constraints"
	WizardStatusGeneratingPlans       = "generating_plans"
	WizardStatusFeasibilityCheck      = "feasibility_check"
	WizardStatusAdjusting             = "adjusting"
	WizardStatusConfirmed             = "confirmed"
	WizardStatusCancelled             = "cancelled"
	WizardStatusFailed                = "failed"
)

// WizardTerminal reports whether a wizard status admits no further mutation.
func WizardTerminal(status string) bool {
	switch status {
	case WizardStatusConfirmed, WizardStatusCancelled, WizardStatusFailed:
		return true
	}
	return false
}

// TargetSpec is one target selection inside a wizard. SubcategoryID is
// always resolved from the record store, never taken from the client.
type TargetSpec struct {
	TargetID      string  `json:"target_id"`
	SubcategoryID *string `json:"subcategory_id,omitempty"`
	Priority      int     `json:"priority"`
}

// Constraint holds the study constraints for one subcategory.
type Constraint struct {
	DailyMinutes  int   `json:"daily_minutes"`
	PreferredDays []int `json:"preferred_days"`
}

// FeasibilityRisk is one classified configuration issue detected before
// confirmation. Level error is always blocking; warning and info never are.
type FeasibilityRisk struct {
	Rule          string  `json:"rule"`
	Level         string  `json:"level"`
	SubcategoryID *string `json:"subcategory_id,omitempty"`
	Detail        string  `json:"detail"`
	Explanation   string  `json:"explanation,omitempty"`
	Blocking      bool    `json:"blocking"`
}

// GenerationError records a per-target PlanGenerator failure. Generation
// errors never abort the batch but block confirm until resolved.
type GenerationError struct {
	TargetID string `json:"target_id"`
	Error    string `json:"error"`
}

// Wizard is the ephemeral staging record for one guided GoalGroup creation
// flow. JSON-typed fields are persisted as JSON columns by the repository.
type Wizard struct {
	ID                string                `json:"id"`
	GoGetterID        string                `json:"go_getter_id"`
	Status            string                `json:"status"`
	GroupTitle        string                `json:"group_title,omitempty"`
	GroupDescription  string                `json:"group_description,omitempty"`
	StartDate         *time.Time            `json:"start_date,omitempty"`
	EndDate           *time.Time            `json:"end_date,omitempty"`
	TargetSpecs       []TargetSpec          `json:"target_specs,omitempty"`
	Constraints       map[string]Constraint `json:"constraints,omitempty"`
	DraftPlanIDs      []string              `json:"draft_plan_ids,omitempty"`
	FeasibilityPassed *bool                 `json:"feasibility_passed,omitempty"`
	FeasibilityRisks  []FeasibilityRisk     `json:"feasibility_risks,omitempty"`
	GenerationErrors  []GenerationError     `json:"generation_errors,omitempty"`
	GoalGroupID       *string               `json:"goal_group_id,omitempty"`
	ExpiresAt         time.Time             `json:"expires_at"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Terminal reports whether the wizard is in a terminal state.
func (w *Wizard) Terminal() bool {
	return WizardTerminal(w.Status)
}
