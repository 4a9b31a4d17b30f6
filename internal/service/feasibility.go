package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/goalpal/goalpal/internal/llm"
	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/repository"
)

// Feasibility rule codes. Each rule is independent and evaluated on every
// check; error-level risks block confirmation, warnings and infos never do.
const (
	RuleSpanTooShort              = "span_too_short"
	RuleDuplicateSubcategory      = "duplicate_subcategory"
	RuleExistingActiveSubcategory = "existing_active_subcategory"
	RuleExistingActiveGroup       = "existing_active_group"
	RuleSingleTargetOverload      = "single_target_overload"
	RuleOverload                  = "overload"
	RuleTooFewDays                = "too_few_days"
)

const (
	RiskLevelError   = "error"
	RiskLevelWarning = "warning"
	RiskLevelInfo    = "info"
)

const minPlanSpanDays = 7

const enrichMaxTokens = 512

const enrichSystemPrompt = "You are an educational planning advisor helping a sponsor " +
	"understand feasibility issues with a study plan. " +
	"For each issue listed, write one friendly sentence (max 30 words) explaining " +
	"the problem and suggesting how to fix it. " +
	"Return ONLY a JSON array of strings, one per issue, in the same order. " +
	"No markdown, no extra text."

// FeasibilityEngine evaluates wizard state against the configuration rules
// and optionally attaches natural-language explanations to each risk.
type FeasibilityEngine struct {
	plans      repository.PlanRepository
	groups     repository.GoalGroupRepository
	enricher   llm.Completer
	dailyLimit int
}

// NewFeasibilityEngine builds the engine. enricher may be nil, in which case
// risks are returned unexplained.
func NewFeasibilityEngine(
	plans repository.PlanRepository,
	groups repository.GoalGroupRepository,
	enricher llm.Completer,
	dailyLimit int,
) *FeasibilityEngine {
	return &FeasibilityEngine{
		plans:      plans,
		groups:     groups,
		enricher:   enricher,
		dailyLimit: dailyLimit,
	}
}

func newRisk(rule, level string, subcategoryID *string, detail string) model.FeasibilityRisk {
	return model.FeasibilityRisk{
		Rule:          rule,
		Level:         level,
		SubcategoryID: subcategoryID,
		Detail:        detail,
		Blocking:      level == RiskLevelError,
	}
}

// Check runs every rule against the wizard state. An empty result means all
// clear.
func (e *FeasibilityEngine) Check(wizard *model.Wizard) ([]model.FeasibilityRisk, error) {
	risks := []model.FeasibilityRisk{}

	if wizard.StartDate != nil && wizard.EndDate != nil {
		span := int(wizard.EndDate.Sub(*wizard.StartDate).Hours() / 24)
		if span < minPlanSpanDays {
			risks = append(risks, newRisk(RuleSpanTooShort, RiskLevelError, nil,
				fmt.Sprintf("Plan span is %d days; minimum %d days required.", span, minPlanSpanDays)))
		}
	}

	seen := map[string]bool{}
	for _, spec := range wizard.TargetSpecs {
		if spec.SubcategoryID == nil {
			continue
		}
		sub := *spec.SubcategoryID
		if seen[sub] {
			risks = append(risks, newRisk(RuleDuplicateSubcategory, RiskLevelError, spec.SubcategoryID,
				fmt.Sprintf("Subcategory %s appears more than once in target specs.", sub)))
		}
		seen[sub] = true
	}

	for _, spec := range wizard.TargetSpecs {
		if spec.SubcategoryID == nil {
			continue
		}
		conflicting, err := e.plans.ActiveInSubcategory(wizard.GoGetterID, *spec.SubcategoryID, spec.TargetID)
		if err != nil {
			return nil, fmt.Errorf("failed to check subcategory availability: %w", err)
		}
		if conflicting != nil {
			risks = append(risks, newRisk(RuleExistingActiveSubcategory, RiskLevelError, spec.SubcategoryID,
				fmt.Sprintf("Subcategory %s already has active plan %s (%q). That plan belongs to a "+
					"different target and will not be automatically replaced. Cancel or complete it "+
					"first, then retry.", *spec.SubcategoryID, conflicting.ID, conflicting.Title)))
		}
	}

	existingGroup, err := e.groups.ActiveForGoGetter(wizard.GoGetterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active goal group: %w", err)
	}
	if existingGroup != nil {
		risks = append(risks, newRisk(RuleExistingActiveGroup, RiskLevelWarning, nil,
			"This go-getter already has an active goal group. Confirming the wizard will attempt to create another one."))
	}

	totalDailyMinutes := 0
	for _, spec := range wizard.TargetSpecs {
		constraint := constraintFor(wizard.Constraints, spec.SubcategoryID)
		totalDailyMinutes += constraint.DailyMinutes

		if constraint.DailyMinutes > e.dailyLimit {
			risks = append(risks, newRisk(RuleSingleTargetOverload, RiskLevelWarning, spec.SubcategoryID,
				fmt.Sprintf("Target has %d daily minutes, which exceeds the recommended %d minutes.",
					constraint.DailyMinutes, e.dailyLimit)))
		}

		if len(constraint.PreferredDays) < 3 {
			risks = append(risks, newRisk(RuleTooFewDays, RiskLevelWarning, spec.SubcategoryID,
				fmt.Sprintf("Target has only %d preferred study day(s); at least 3 recommended for consistency.",
					len(constraint.PreferredDays))))
		}
	}

	// Single-target overload is already reported above; the aggregate rule
	// only fires with multiple targets.
	if totalDailyMinutes > e.dailyLimit && len(wizard.TargetSpecs) > 1 {
		risks = append(risks, newRisk(RuleOverload, RiskLevelWarning, nil,
			fmt.Sprintf("Total daily study time across all targets is %d minutes, which exceeds the recommended %d minutes.",
				totalDailyMinutes, e.dailyLimit)))
	}

	return risks, nil
}

// Enrich fills the Explanation field on each risk via a single best-effort
// LLM call. Failures leave risks unexplained and never change severity.
func (e *FeasibilityEngine) Enrich(ctx context.Context, risks []model.FeasibilityRisk) []model.FeasibilityRisk {
	if len(risks) == 0 || e.enricher == nil {
		return risks
	}

	type promptItem struct {
		Rule   string `json:"rule"`
		Level  string `json:"level"`
		Detail string `json:"detail"`
	}
	items := make([]promptItem, len(risks))
	for i, r := range risks {
		items[i] = promptItem{Rule: r.Rule, Level: r.Level, Detail: r.Detail}
	}

	payload, err := json.Marshal(items)
	if err != nil {
		slog.Warn("feasibility enrichment skipped", "error", err)
		return risks
	}

	completion, err := e.enricher.Complete(ctx, llm.CompletionRequest{
		System:    enrichSystemPrompt,
		Prompt:    string(payload),
		MaxTokens: enrichMaxTokens,
	})
	if err != nil {
		slog.Warn("feasibility enrichment failed", "error", err)
		return risks
	}

	var explanations []string
	err = json.Unmarshal([]byte(completion.Text), &explanations)
	if err != nil || len(explanations) != len(risks) {
		slog.Warn("feasibility enrichment response unusable", "error", err, "count", len(explanations))
		return risks
	}

	for i := range risks {
		risks[i].Explanation = explanations[i]
	}
	return risks
}

// constraintFor resolves the constraints for a subcategory, applying the
// defaults (60 minutes, every day) when unset.
func constraintFor(constraints map[string]model.Constraint, subcategoryID *string) model.Constraint {
	if subcategoryID != nil && constraints != nil {
		if c, ok := constraints[*subcategoryID]; ok {
			if c.DailyMinutes <= 0 {
				c.DailyMinutes = 60
			}
			if c.PreferredDays == nil {
				c.PreferredDays = []int{0, 1, 2, 3, 4, 5, 6}
			}
			return c
		}
	}
	return model.Constraint{
		DailyMinutes:  60,
		PreferredDays: []int{0, 1, 2, 3, 4, 5, 6},
	}
}
