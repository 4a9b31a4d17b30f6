package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/plangen"
	"github.com/goalpal/goalpal/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrWizardTerminal     = errors.New("wizard is in a terminal state")
	ErrWizardActiveExists = errors.New("go-getter already has an active wizard")
	ErrWizardWrongState   = errors.New("operation not valid in current wizard state")
	ErrInvalidDates       = errors.New("end date must be after start date")
	ErrSpanTooShort       = errors.New("plan span must cover at least 7 days")
	ErrNoTargets          = errors.New("at least one target is required")
	ErrTargetNotOwned     = errors.New("target does not belong to this go-getter")
	ErrInvalidConstraint  = errors.New("invalid constraint")
	ErrBlockingRisks      = errors.New("blocking feasibility risks must be resolved before confirming")
	ErrGenerationErrors   = errors.New("plan generation errors must be resolved before confirming")
	ErrNoDraftPlans       = errors.New("no draft plans to confirm")
	ErrFeasibilityNotRun  = errors.New("feasibility check has not run")
	ErrActiveGroupExists  = errors.New("go-getter already has an active goal group")
)

// DefaultPriority is applied when a target spec omits priority.
const DefaultPriority = 3

// TargetSpecInput is a client-supplied target selection. The subcategory is
// never accepted from the client; it is resolved from the target record.
type TargetSpecInput struct {
	TargetID string `json:"target_id"`
	Priority int    `json:"priority"`
}

// AdjustRequest carries a partial wizard edit. Nil fields keep the current
// value; any accepted adjustment discards the draft plans and regenerates.
type AdjustRequest struct {
	StartDate   *time.Time                  `json:"start_date,omitempty"`
	EndDate     *time.Time                  `json:"end_date,omitempty"`
	TargetSpecs []TargetSpecInput           `json:"target_specs,omitempty"`
	Constraints map[string]model.Constraint `json:"constraints,omitempty"`
}

// WizardService drives the guided GoalGroup creation flow through its state
// machine. All mutations reject terminal wizards.
type WizardService struct {
	wizards     repository.WizardRepository
	targets     repository.TargetRepository
	plans       repository.PlanRepository
	groups      repository.GoalGroupRepository
	goGetters   repository.GoGetterRepository
	feasibility *FeasibilityEngine
	generator   plangen.Generator
	ttl         time.Duration
	genTimeout  time.Duration
	now         func() time.Time
}

func NewWizardService(
	wizards repository.WizardRepository,
	targets repository.TargetRepository,
	plans repository.PlanRepository,
	groups repository.GoalGroupRepository,
	goGetters repository.GoGetterRepository,
	feasibility *FeasibilityEngine,
	generator plangen.Generator,
	ttl time.Duration,
	genTimeout time.Duration,
) *WizardService {
	return &WizardService{
		wizards:     wizards,
		targets:     targets,
		plans:       plans,
		groups:      groups,
		goGetters:   goGetters,
		feasibility: feasibility,
		generator:   generator,
		ttl:         ttl,
		genTimeout:  genTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new wizard for the go-getter. At most one non-terminal
// wizard per go-getter is allowed at a time.
func (s *WizardService) Create(goGetterID string) (*model.Wizard, error) {
	_, err := s.goGetters.ByID(goGetterID)
	if err != nil {
		return nil, err
	}

	existing, err := s.wizards.ActiveForGoGetter(goGetterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active wizard: %w", err)
	}
	if existing != nil {
		return nil, ErrWizardActiveExists
	}

	now := s.now()
	wizard := &model.Wizard{
		ID:         uuid.New().String(),
		GoGetterID: goGetterID,
		Status:     model.WizardStatusCollectingScope,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.wizards.Create(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to create wizard: %w", err)
	}

	slog.Info("wizard created", "wizard_id", wizard.ID, "go_getter_id", goGetterID)
	return wizard, nil
}

func (s *WizardService) ByID(id string) (*model.Wizard, error) {
	return s.wizards.ByID(id)
}

// loadMutable fetches a wizard and rejects terminal or expired ones. An
// expired wizard is lazily cancelled on access.
func (s *WizardService) loadMutable(id string) (*model.Wizard, error) {
	wizard, err := s.wizards.ByID(id)
	if err != nil {
		return nil, err
	}

	if wizard.Terminal() {
		return nil, ErrWizardTerminal
	}

	if s.now().After(wizard.ExpiresAt) {
		wizard.Status = model.WizardStatusCancelled
		if err := s.wizards.Update(wizard); err != nil {
			return nil, fmt.Errorf("failed to expire wizard: %w", err)
		}
		return nil, ErrWizardTerminal
	}

	return wizard, nil
}

// SetScope records the group title, description and date window and advances
// to target collection.
func (s *WizardService) SetScope(id, title, description string, start, end time.Time) (*model.Wizard, error) {
	wizard, err := s.loadMutable(id)
	if err != nil {
		return nil, err
	}

	err = validateSpan(start, end)
	if err != nil {
		return nil, err
	}

	wizard.GroupTitle = title
	wizard.GroupDescription = description
	wizard.StartDate = &start
	wizard.EndDate = &end
	wizard.Status = model.WizardStatusCollectingTargets

	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	return wizard, nil
}

// SetTargets records the target selection. Ownership is verified and each
// subcategory is resolved from the target record, never trusted from input.
func (s *WizardService) SetTargets(id string, inputs []TargetSpecInput) (*model.Wizard, error) {
	wizard, err := s.loadMutable(id)
	if err != nil {
		return nil, err
	}

	if wizard.Status != model.WizardStatusCollectingTargets {
		return nil, ErrWizardWrongState
	}

	specs, err := s.resolveSpecs(wizard.GoGetterID, inputs)
	if err != nil {
		return nil, err
	}

	wizard.TargetSpecs = specs
	wizard.Status = model.WizardStatusCollectingConstraints

	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	return wizard, nil
}

// SetConstraints records per-subcategory study constraints and kicks off
// draft generation followed by the feasibility check.
func (s *WizardService) SetConstraints(ctx context.Context, id string, constraints map[string]model.Constraint) (*model.Wizard, error) {
	wizard, err := s.loadMutable(id)
	if err != nil {
		return nil, err
	}

	if wizard.Status != model.WizardStatusCollectingConstraints {
		return nil, ErrWizardWrongState
	}

	err = validateConstraints(constraints)
	if err != nil {
		return nil, err
	}

	wizard.Constraints = constraints

	return s.generateAndCheck(ctx, wizard)
}

// Adjust applies a partial edit from the feasibility review, discards the
// existing draft plans, and regenerates.
func (s *WizardService) Adjust(ctx context.Context, id string, req AdjustRequest) (*model.Wizard, error) {
	wizard, err := s.loadMutable(id)
	if err != nil {
		return nil, err
	}

	if wizard.Status != model.WizardStatusFeasibilityCheck && wizard.Status != model.WizardStatusAdjusting {
		return nil, ErrWizardWrongState
	}

	if req.StartDate != nil {
		wizard.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		wizard.EndDate = req.EndDate
	}
	if wizard.StartDate != nil && wizard.EndDate != nil {
		err = validateSpan(*wizard.StartDate, *wizard.EndDate)
		if err != nil {
			return nil, err
		}
	}

	if req.TargetSpecs != nil {
		specs, err := s.resolveSpecs(wizard.GoGetterID, req.TargetSpecs)
		if err != nil {
			return nil, err
		}
		wizard.TargetSpecs = specs
	}

	if req.Constraints != nil {
		err = validateConstraints(req.Constraints)
		if err != nil {
			return nil, err
		}
		wizard.Constraints = req.Constraints
	}

	wizard.Status = model.WizardStatusAdjusting
	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	err = s.discardDrafts(wizard)
	if err != nil {
		return nil, err
	}

	return s.generateAndCheck(ctx, wizard)
}

// Confirm activates the staged draft plans and materializes the GoalGroup.
// Confirmation requires a passed feasibility check, no blocking risks, and no
// outstanding generation errors.
func (s *WizardService) Confirm(id string) (*model.Wizard, error) {
	wizard, err := s.loadMutable(id)
	if err != nil {
		return nil, err
	}

	if wizard.Status != model.WizardStatusFeasibilityCheck {
		return nil, ErrWizardWrongState
	}

	if wizard.FeasibilityPassed == nil {
		return nil, ErrFeasibilityNotRun
	}
	if len(wizard.GenerationErrors) > 0 {
		return nil, ErrGenerationErrors
	}
	for _, risk := range wizard.FeasibilityRisks {
		if risk.Blocking {
			return nil, ErrBlockingRisks
		}
	}
	if len(wizard.DraftPlanIDs) == 0 {
		return nil, ErrNoDraftPlans
	}

	existing, err := s.groups.ActiveForGoGetter(wizard.GoGetterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active goal group: %w", err)
	}
	if existing != nil {
		return nil, ErrActiveGroupExists
	}

	now := s.now()
	group := &model.GoalGroup{
		ID:           uuid.New().String(),
		GoGetterID:   wizard.GoGetterID,
		Title:        wizard.GroupTitle,
		Description:  wizard.GroupDescription,
		Status:       model.GoalGroupStatusActive,
		StartDate:    wizard.StartDate,
		EndDate:      wizard.EndDate,
		ReplanStatus: model.ReplanStatusIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.groups.Create(group)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal group: %w", err)
	}

	for _, spec := range wizard.TargetSpecs {
		target, err := s.targets.ByID(spec.TargetID)
		if err != nil {
			return nil, err
		}
		target.GroupID = &group.ID
		target.Priority = spec.Priority
		err = s.targets.Update(target)
		if err != nil {
			return nil, fmt.Errorf("failed to attach target %s: %w", target.ID, err)
		}
	}

	// Stage-then-swap: drafts were written in full during generation, so the
	// activation step is a plain status flip per plan. A draft that no longer
	// resolves is logged and skipped, never fatal; its target keeps whatever
	// live plan it had.
	for _, planID := range wizard.DraftPlanIDs {
		plan, err := s.plans.ByID(planID)
		if err != nil {
			if errors.Is(err, repository.ErrPlanNotFound) {
				slog.Warn("draft plan vanished before confirm", "wizard_id", wizard.ID, "plan_id", planID)
				continue
			}
			return nil, err
		}

		// The staged draft takes over as the target's single active plan;
		// any prior live plan is retired only once its replacement is known
		// to exist.
		old, err := s.plans.ActiveForTarget(plan.TargetID)
		if err != nil {
			return nil, err
		}
		if old != nil {
			old.Status = model.PlanStatusCompleted
			err = s.plans.Update(old)
			if err != nil {
				return nil, fmt.Errorf("failed to complete prior plan %s: %w", old.ID, err)
			}
		}

		plan.Status = model.PlanStatusActive
		plan.GroupID = &group.ID
		err = s.plans.Update(plan)
		if err != nil {
			return nil, fmt.Errorf("failed to activate plan %s: %w", planID, err)
		}
	}

	wizard.Status = model.WizardStatusConfirmed
	wizard.GoalGroupID = &group.ID

	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	slog.Info("wizard confirmed", "wizard_id", wizard.ID, "group_id", group.ID, "plans", len(wizard.DraftPlanIDs))
	return wizard, nil
}

// Cancel moves the wizard to cancelled and discards its draft plans.
// Cancelling a wizard that already reached any terminal state is a no-op.
func (s *WizardService) Cancel(id string) (*model.Wizard, error) {
	wizard, err := s.wizards.ByID(id)
	if err != nil {
		return nil, err
	}

	if wizard.Terminal() {
		return wizard, nil
	}

	err = s.discardDrafts(wizard)
	if err != nil {
		return nil, err
	}

	wizard.Status = model.WizardStatusCancelled
	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	slog.Info("wizard cancelled", "wizard_id", wizard.ID)
	return wizard, nil
}

// Sweep cancels every wizard past its expiry. Intended for a periodic
// janitor or an operator call.
func (s *WizardService) Sweep() (int64, error) {
	swept, err := s.wizards.ExpireStale(s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep wizards: %w", err)
	}
	if swept > 0 {
		slog.Info("expired stale wizards", "count", swept)
	}
	return swept, nil
}

// generateAndCheck runs draft generation for every target spec, then the
// feasibility check, and lands the wizard in feasibility_check. Per-target
// generation failures are recorded and never abort the batch.
func (s *WizardService) generateAndCheck(ctx context.Context, wizard *model.Wizard) (*model.Wizard, error) {
	wizard.Status = model.WizardStatusGeneratingPlans
	wizard.DraftPlanIDs = []string{}
	wizard.GenerationErrors = nil
	wizard.FeasibilityPassed = nil
	wizard.FeasibilityRisks = nil

	err := s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	goGetter, err := s.goGetters.ByID(wizard.GoGetterID)
	if err != nil {
		if errors.Is(err, repository.ErrGoGetterNotFound) {
			wizard.Status = model.WizardStatusFailed
			wizard.GenerationErrors = []model.GenerationError{{
				TargetID: "",
				Error:    "go-getter no longer exists",
			}}
			if uerr := s.wizards.Update(wizard); uerr != nil {
				return nil, fmt.Errorf("failed to fail wizard: %w", uerr)
			}
			return wizard, nil
		}
		return nil, err
	}

	now := s.now()
	for _, spec := range wizard.TargetSpecs {
		target, err := s.targets.ByID(spec.TargetID)
		if err != nil {
			wizard.GenerationErrors = append(wizard.GenerationErrors, model.GenerationError{
				TargetID: spec.TargetID,
				Error:    "target no longer exists",
			})
			continue
		}

		constraint := constraintFor(wizard.Constraints, target.SubcategoryID)

		genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
		generated, err := s.generator.Generate(genCtx, plangen.Request{
			Target:        target,
			GoGetter:      goGetter,
			StartDate:     *wizard.StartDate,
			EndDate:       *wizard.EndDate,
			DailyMinutes:  constraint.DailyMinutes,
			PreferredDays: constraint.PreferredDays,
			Mode:          plangen.ModeDraft,
		})
		cancel()
		if err != nil {
			slog.Warn("draft generation failed", "wizard_id", wizard.ID, "target_id", target.ID, "error", err)
			wizard.GenerationErrors = append(wizard.GenerationErrors, model.GenerationError{
				TargetID: target.ID,
				Error:    err.Error(),
			})
			continue
		}

		plan, err := persistGeneratedPlan(s.plans, generated, target, nil,
			*wizard.StartDate, *wizard.EndDate, model.PlanStatusDraft, 1, now)
		if err != nil {
			return nil, err
		}
		wizard.DraftPlanIDs = append(wizard.DraftPlanIDs, plan.ID)
	}

	risks, err := s.feasibility.Check(wizard)
	if err != nil {
		return nil, err
	}
	risks = s.feasibility.Enrich(ctx, risks)

	// Passed reflects blocking risks only. Generation errors block confirm
	// separately without failing the feasibility verdict.
	passed := true
	for _, risk := range risks {
		if risk.Blocking {
			passed = false
		}
	}

	wizard.FeasibilityRisks = risks
	wizard.FeasibilityPassed = &passed
	wizard.Status = model.WizardStatusFeasibilityCheck

	err = s.wizards.Update(wizard)
	if err != nil {
		return nil, fmt.Errorf("failed to update wizard: %w", err)
	}

	slog.Info("wizard feasibility checked",
		"wizard_id", wizard.ID,
		"passed", passed,
		"risks", len(risks),
		"generation_errors", len(wizard.GenerationErrors),
	)
	return wizard, nil
}

// discardDrafts cancels every staged draft plan and clears the reference
// list. Draft plans are never deleted.
func (s *WizardService) discardDrafts(wizard *model.Wizard) error {
	for _, planID := range wizard.DraftPlanIDs {
		plan, err := s.plans.ByID(planID)
		if err != nil {
			if errors.Is(err, repository.ErrPlanNotFound) {
				continue
			}
			return err
		}
		if plan.Status != model.PlanStatusDraft {
			continue
		}
		plan.Status = model.PlanStatusCancelled
		err = s.plans.Update(plan)
		if err != nil {
			return fmt.Errorf("failed to discard draft plan %s: %w", planID, err)
		}
	}
	wizard.DraftPlanIDs = nil
	return nil
}

func (s *WizardService) resolveSpecs(goGetterID string, inputs []TargetSpecInput) ([]model.TargetSpec, error) {
	if len(inputs) == 0 {
		return nil, ErrNoTargets
	}

	specs := make([]model.TargetSpec, 0, len(inputs))
	for _, input := range inputs {
		target, err := s.targets.ByID(input.TargetID)
		if err != nil {
			return nil, err
		}
		if target.GoGetterID != goGetterID {
			return nil, ErrTargetNotOwned
		}
		priority := input.Priority
		if priority <= 0 {
			priority = DefaultPriority
		}
		specs = append(specs, model.TargetSpec{
			TargetID:      target.ID,
			SubcategoryID: target.SubcategoryID,
			Priority:      priority,
		})
	}
	return specs, nil
}

func validateSpan(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidDates
	}
	if int(end.Sub(start).Hours()/24) < minPlanSpanDays {
		return ErrSpanTooShort
	}
	return nil
}

func validateConstraints(constraints map[string]model.Constraint) error {
	for sub, c := range constraints {
		if c.DailyMinutes < 0 {
			return fmt.Errorf("%w: negative daily minutes for subcategory %s", ErrInvalidConstraint, sub)
		}
		for _, day := range c.PreferredDays {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: day %d out of range for subcategory %s", ErrInvalidConstraint, day, sub)
			}
		}
	}
	return nil
}
