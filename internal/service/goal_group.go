package service

import (
	"context"
	"encoding/json"
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
	ErrGroupNotActive          = errors.New("goal group is not active")
	ErrTargetAlreadyGrouped    = errors.New("target already belongs to a goal group")
	ErrTargetNotInGroup        = errors.New("target does not belong to this goal group")
	ErrActivePlanInSubcategory = errors.New("subcategory already has an active plan")
	ErrReplanNotFailed         = errors.New("replan status is not failed")
	ErrChangeCooldown          = errors.New("change cooldown active")
)

// CooldownError reports a structural edit rejected inside the rolling change
// window. Remaining is rounded up to whole hours in the message.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	hours := int64((e.Remaining + time.Hour - 1) / time.Hour)
	return fmt.Sprintf("change cooldown active, retry in %dh", hours)
}

func (e *CooldownError) Unwrap() error {
	return ErrChangeCooldown
}

// GroupDetail is the read-side view of a goal group.
type GroupDetail struct {
	Group   *model.GoalGroup         `json:"group"`
	Targets []*model.Target          `json:"targets"`
	Changes []*model.GoalGroupChange `json:"changes"`
}

// GoalGroupService owns structural edits on active goal groups and the
// re-planning that follows them.
type GoalGroupService struct {
	groups     repository.GoalGroupRepository
	targets    repository.TargetRepository
	plans      repository.PlanRepository
	goGetters  repository.GoGetterRepository
	generator  plangen.Generator
	cooldown   time.Duration
	genTimeout time.Duration
	now        func() time.Time
}

func NewGoalGroupService(
	groups repository.GoalGroupRepository,
	targets repository.TargetRepository,
	plans repository.PlanRepository,
	goGetters repository.GoGetterRepository,
	generator plangen.Generator,
	cooldown time.Duration,
	genTimeout time.Duration,
) *GoalGroupService {
	return &GoalGroupService{
		groups:     groups,
		targets:    targets,
		plans:      plans,
		goGetters:  goGetters,
		generator:  generator,
		cooldown:   cooldown,
		genTimeout: genTimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *GoalGroupService) Group(id string) (*GroupDetail, error) {
	group, err := s.groups.ByID(id)
	if err != nil {
		return nil, err
	}

	targets, err := s.targets.ByGroup(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load group targets: %w", err)
	}

	changes, err := s.groups.Changes(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load group changes: %w", err)
	}

	return &GroupDetail{Group: group, Targets: targets, Changes: changes}, nil
}

// AddTarget links a free target into an active group and re-plans. The
// target must belong to the group's go-getter and its subcategory must not
// already carry an active plan.
func (s *GoalGroupService) AddTarget(ctx context.Context, groupID, targetID string) (*model.GoalGroupChange, error) {
	group, err := s.groups.ByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != model.GoalGroupStatusActive {
		return nil, ErrGroupNotActive
	}

	target, err := s.targets.ByID(targetID)
	if err != nil {
		return nil, err
	}
	if target.GoGetterID != group.GoGetterID {
		return nil, ErrTargetNotOwned
	}
	if target.GroupID != nil {
		return nil, ErrTargetAlreadyGrouped
	}

	if target.SubcategoryID != nil {
		conflicting, err := s.plans.ActiveInSubcategory(group.GoGetterID, *target.SubcategoryID, target.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check subcategory availability: %w", err)
		}
		if conflicting != nil {
			return nil, ErrActivePlanInSubcategory
		}
	}

	err = s.assertChangeAllowed(group)
	if err != nil {
		return nil, err
	}

	target.GroupID = &group.ID
	err = s.targets.Update(target)
	if err != nil {
		return nil, fmt.Errorf("failed to link target: %w", err)
	}

	change, err := s.recordChange(group, model.ChangeTargetAdded, &target.ID, nil, targetValue(target))
	if err != nil {
		return nil, err
	}

	err = s.triggerReplan(ctx, group, change)
	if err != nil {
		return change, err
	}
	return change, nil
}

// RemoveTarget detaches a target from its group, cancels it along with its
// live plan, and re-plans the remaining targets.
func (s *GoalGroupService) RemoveTarget(ctx context.Context, groupID, targetID string) (*model.GoalGroupChange, error) {
	group, err := s.groups.ByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != model.GoalGroupStatusActive {
		return nil, ErrGroupNotActive
	}

	target, err := s.targets.ByID(targetID)
	if err != nil {
		return nil, err
	}
	if target.GroupID == nil || *target.GroupID != group.ID {
		return nil, ErrTargetNotInGroup
	}

	err = s.assertChangeAllowed(group)
	if err != nil {
		return nil, err
	}

	oldValue := targetValue(target)

	target.Status = model.TargetStatusCancelled
	target.GroupID = nil
	err = s.targets.Update(target)
	if err != nil {
		return nil, fmt.Errorf("failed to detach target: %w", err)
	}

	// The departing target's schedule winds down at the freeze boundary; rows
	// are superseded, never deleted.
	plan, err := s.plans.ActiveForTarget(target.ID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		boundary := nextMonday(s.now())
		_, err = s.plans.SupersedeFutureTasks(plan.ID, boundary)
		if err != nil {
			return nil, fmt.Errorf("failed to supersede tasks: %w", err)
		}
		plan.Status = model.PlanStatusCancelled
		err = s.plans.Update(plan)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel plan: %w", err)
		}
	}

	change, err := s.recordChange(group, model.ChangeTargetRemoved, &target.ID, oldValue, nil)
	if err != nil {
		return nil, err
	}

	err = s.triggerReplan(ctx, group, change)
	if err != nil {
		return change, err
	}
	return change, nil
}

// ResetReplan is the explicit operator recovery action moving a failed
// replan lock back to idle.
func (s *GoalGroupService) ResetReplan(groupID string) error {
	_, err := s.groups.ByID(groupID)
	if err != nil {
		return err
	}

	ok, err := s.groups.ResetReplanStatus(groupID)
	if err != nil {
		return fmt.Errorf("failed to reset replan status: %w", err)
	}
	if !ok {
		return ErrReplanNotFailed
	}

	slog.Info("replan status reset", "group_id", groupID)
	return nil
}

// assertChangeAllowed enforces the rolling change cooldown window.
func (s *GoalGroupService) assertChangeAllowed(group *model.GoalGroup) error {
	if group.LastChangeAt == nil {
		return nil
	}
	elapsed := s.now().Sub(*group.LastChangeAt)
	if elapsed < s.cooldown {
		return &CooldownError{Remaining: s.cooldown - elapsed}
	}
	return nil
}

func (s *GoalGroupService) recordChange(group *model.GoalGroup, changeType string, targetID, oldValue, newValue *string) (*model.GoalGroupChange, error) {
	change := &model.GoalGroupChange{
		ID:         uuid.New().String(),
		GroupID:    group.ID,
		ChangeType: changeType,
		TargetID:   targetID,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  s.now(),
	}

	err := s.groups.RecordChange(change)
	if err != nil {
		return nil, fmt.Errorf("failed to record change: %w", err)
	}

	slog.Info("goal group change recorded", "group_id", group.ID, "change_type", changeType)
	return change, nil
}

// triggerReplan regenerates live plans for the group's current targets after
// a structural change. The replan lock admits one run at a time; a busy lock
// skips silently since the holder will plan against the post-change state.
// On failure the lock is left failed and needs an explicit reset.
func (s *GoalGroupService) triggerReplan(ctx context.Context, group *model.GoalGroup, change *model.GoalGroupChange) error {
	acquired, err := s.groups.AcquireReplanLock(group.ID)
	if err != nil {
		return fmt.Errorf("failed to acquire replan lock: %w", err)
	}
	if !acquired {
		slog.Info("replan already in progress, skipping", "group_id", group.ID)
		return nil
	}

	changePlanID, err := s.replan(ctx, group, change)
	if err != nil {
		slog.Error("replan failed", "group_id", group.ID, "change_id", change.ID, "error", err)
		if rerr := s.groups.ReleaseReplanLock(group.ID, true); rerr != nil {
			slog.Error("failed to mark replan failed", "group_id", group.ID, "error", rerr)
		}
		return err
	}

	err = s.groups.AttachReplanResult(change.ID, s.now(), changePlanID)
	if err != nil {
		slog.Error("failed to attach replan result", "change_id", change.ID, "error", err)
	}

	err = s.groups.ReleaseReplanLock(group.ID, false)
	if err != nil {
		return fmt.Errorf("failed to release replan lock: %w", err)
	}

	slog.Info("replan complete", "group_id", group.ID, "change_id", change.ID)
	return nil
}

func (s *GoalGroupService) replan(ctx context.Context, group *model.GoalGroup, change *model.GoalGroupChange) (*string, error) {
	goGetter, err := s.goGetters.ByID(group.GoGetterID)
	if err != nil {
		return nil, err
	}

	targets, err := s.targets.ByGroup(group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group targets: %w", err)
	}

	boundary := nextMonday(s.now())
	continuity := fmt.Sprintf(
		"This plan revises an in-flight schedule after a goal group change (%s). "+
			"Week numbering restarts at 1 from the new start date. Keep continuity "+
			"with prior material and do not repeat work assumed already done.",
		change.ChangeType,
	)

	var changePlanID *string
	for _, target := range targets {
		if target.Status != model.TargetStatusActive {
			continue
		}

		old, err := s.plans.ActiveForTarget(target.ID)
		if err != nil {
			return nil, err
		}

		end := group.EndDate
		if end == nil && old != nil {
			end = &old.EndDate
		}
		if end == nil {
			continue
		}

		if old != nil {
			// Weeks already underway stay frozen; only future milestones are
			// superseded.
			_, err = s.plans.SupersedeFutureTasks(old.ID, boundary)
			if err != nil {
				return nil, fmt.Errorf("failed to supersede tasks: %w", err)
			}
		}

		// Window exhausted: nothing left to schedule past the boundary. A
		// boundary landing exactly on the end date still gets its final day.
		if boundary.After(*end) {
			if old != nil {
				old.Status = model.PlanStatusCancelled
				err = s.plans.Update(old)
				if err != nil {
					return nil, fmt.Errorf("failed to cancel plan: %w", err)
				}
			}
			continue
		}

		constraint := constraintFor(nil, target.SubcategoryID)

		genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
		generated, err := s.generator.Generate(genCtx, plangen.Request{
			Target:            target,
			GoGetter:          goGetter,
			StartDate:         boundary,
			EndDate:           *end,
			DailyMinutes:      constraint.DailyMinutes,
			PreferredDays:     constraint.PreferredDays,
			ExtraInstructions: continuity,
			Mode:              plangen.ModeLive,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("generation failed for target %s: %w", target.ID, err)
		}

		version := 1
		if old != nil {
			version = old.Version + 1
		}

		// The successor is staged as a draft, the old plan is cancelled with
		// its forward pointer, and only then does the new plan go active, so
		// a target never holds two active plans.
		plan, err := persistGeneratedPlan(s.plans, generated, target, &group.ID,
			boundary, *end, model.PlanStatusDraft, version, s.now())
		if err != nil {
			return nil, err
		}

		if old != nil {
			old.Status = model.PlanStatusCancelled
			old.SupersededByID = &plan.ID
			err = s.plans.Update(old)
			if err != nil {
				return nil, fmt.Errorf("failed to cancel superseded plan: %w", err)
			}
		}

		plan.Status = model.PlanStatusActive
		err = s.plans.Update(plan)
		if err != nil {
			return nil, fmt.Errorf("failed to activate plan %s: %w", plan.ID, err)
		}

		if change.TargetID != nil && target.ID == *change.TargetID {
			changePlanID = &plan.ID
		}
	}

	return changePlanID, nil
}

func targetValue(target *model.Target) *string {
	data, err := json.Marshal(map[string]any{
		"target_id": target.ID,
		"title":     target.Title,
		"priority":  target.Priority,
	})
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// nextMonday returns the Monday strictly after t, at midnight UTC. A call on
// a Monday yields the following Monday, keeping the current week frozen.
func nextMonday(t time.Time) time.Time {
	t = t.UTC()
	wd := (int(t.Weekday()) + 6) % 7
	days := 7 - wd
	next := t.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
}
