package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/plangen"
	"github.com/goalpal/goalpal/internal/repository"
)

type fakeGoGetterRepo struct {
	items map[string]*model.GoGetter
}

func newFakeGoGetterRepo() *fakeGoGetterRepo {
	return &fakeGoGetterRepo{items: map[string]*model.GoGetter{}}
}

func (r *fakeGoGetterRepo) Create(g *model.GoGetter) error {
	r.items[g.ID] = g
	return nil
}

func (r *fakeGoGetterRepo) ByID(id string) (*model.GoGetter, error) {
	g, ok := r.items[id]
	if !ok {
		return nil, repository.ErrGoGetterNotFound
	}
	return g, nil
}

type fakeTargetRepo struct {
	items map[string]*model.Target
}

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{items: map[string]*model.Target{}}
}

func (r *fakeTargetRepo) Create(t *model.Target) error {
	copied := *t
	r.items[t.ID] = &copied
	return nil
}

func (r *fakeTargetRepo) ByID(id string) (*model.Target, error) {
	t, ok := r.items[id]
	if !ok {
		return nil, repository.ErrTargetNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTargetRepo) ByGroup(groupID string) ([]*model.Target, error) {
	var out []*model.Target
	for _, t := range r.items {
		if t.GroupID != nil && *t.GroupID == groupID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) Update(t *model.Target) error {
	if _, ok := r.items[t.ID]; !ok {
		return repository.ErrTargetNotFound
	}
	copied := *t
	r.items[t.ID] = &copied
	return nil
}

type fakePlanRepo struct {
	targets    *fakeTargetRepo
	plans      map[string]*model.Plan
	milestones map[string]*model.WeeklyMilestone
	tasks      map[string]*model.Task
}

func newFakePlanRepo(targets *fakeTargetRepo) *fakePlanRepo {
	return &fakePlanRepo{
		targets:    targets,
		plans:      map[string]*model.Plan{},
		milestones: map[string]*model.WeeklyMilestone{},
		tasks:      map[string]*model.Task{},
	}
}

func (r *fakePlanRepo) Create(p *model.Plan) error {
	copied := *p
	r.plans[p.ID] = &copied
	return nil
}

func (r *fakePlanRepo) CreateMilestone(m *model.WeeklyMilestone) error {
	copied := *m
	r.milestones[m.ID] = &copied
	return nil
}

func (r *fakePlanRepo) CreateTask(t *model.Task) error {
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *fakePlanRepo) ByID(id string) (*model.Plan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePlanRepo) Update(p *model.Plan) error {
	if _, ok := r.plans[p.ID]; !ok {
		return repository.ErrPlanNotFound
	}
	copied := *p
	r.plans[p.ID] = &copied
	return nil
}

func (r *fakePlanRepo) ActiveForTarget(targetID string) (*model.Plan, error) {
	for _, p := range r.plans {
		if p.TargetID == targetID && p.Status == model.PlanStatusActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) ActiveInSubcategory(goGetterID, subcategoryID, excludeTargetID string) (*model.Plan, error) {
	for _, p := range r.plans {
		if p.Status != model.PlanStatusActive {
			continue
		}
		t, ok := r.targets.items[p.TargetID]
		if !ok || t.Status != model.TargetStatusActive || t.ID == excludeTargetID {
			continue
		}
		if t.GoGetterID == goGetterID && t.SubcategoryID != nil && *t.SubcategoryID == subcategoryID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) Milestones(planID string) ([]*model.WeeklyMilestone, error) {
	var out []*model.WeeklyMilestone
	for _, m := range r.milestones {
		if m.PlanID == planID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) Tasks(milestoneID string) ([]*model.Task, error) {
	var out []*model.Task
	for _, t := range r.tasks {
		if t.MilestoneID == milestoneID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) SupersedeFutureTasks(planID string, from time.Time) (int64, error) {
	var count int64
	for _, m := range r.milestones {
		if m.PlanID != planID || m.StartDate.Before(from) {
			continue
		}
		for _, t := range r.tasks {
			if t.MilestoneID == m.ID && t.Status == model.TaskStatusActive {
				t.Status = model.TaskStatusSuperseded
				count++
			}
		}
	}
	return count, nil
}

type fakeGroupRepo struct {
	groups  map[string]*model.GoalGroup
	changes map[string]*model.GoalGroupChange
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  map[string]*model.GoalGroup{},
		changes: map[string]*model.GoalGroupChange{},
	}
}

func (r *fakeGroupRepo) Create(g *model.GoalGroup) error {
	copied := *g
	r.groups[g.ID] = &copied
	return nil
}

func (r *fakeGroupRepo) ByID(id string) (*model.GoalGroup, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, repository.ErrGoalGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) ActiveForGoGetter(goGetterID string) (*model.GoalGroup, error) {
	for _, g := range r.groups {
		if g.GoGetterID == goGetterID && g.Status == model.GoalGroupStatusActive {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeGroupRepo) Update(g *model.GoalGroup) error {
	stored, ok := r.groups[g.ID]
	if !ok {
		return repository.ErrGoalGroupNotFound
	}
	copied := *g
	copied.ReplanStatus = stored.ReplanStatus
	r.groups[g.ID] = &copied
	return nil
}

func (r *fakeGroupRepo) AcquireReplanLock(groupID string) (bool, error) {
	g, ok := r.groups[groupID]
	if !ok {
		return false, repository.ErrGoalGroupNotFound
	}
	if g.ReplanStatus != model.ReplanStatusIdle {
		return false, nil
	}
	g.ReplanStatus = model.ReplanStatusInProgress
	return true, nil
}

func (r *fakeGroupRepo) ReleaseReplanLock(groupID string, failed bool) error {
	g, ok := r.groups[groupID]
	if !ok {
		return repository.ErrGoalGroupNotFound
	}
	if failed {
		g.ReplanStatus = model.ReplanStatusFailed
	} else {
		g.ReplanStatus = model.ReplanStatusIdle
	}
	return nil
}

func (r *fakeGroupRepo) ResetReplanStatus(groupID string) (bool, error) {
	g, ok := r.groups[groupID]
	if !ok {
		return false, repository.ErrGoalGroupNotFound
	}
	if g.ReplanStatus != model.ReplanStatusFailed {
		return false, nil
	}
	g.ReplanStatus = model.ReplanStatusIdle
	return true, nil
}

func (r *fakeGroupRepo) RecordChange(c *model.GoalGroupChange) error {
	copied := *c
	r.changes[c.ID] = &copied
	if g, ok := r.groups[c.GroupID]; ok {
		at := c.CreatedAt
		g.LastChangeAt = &at
	}
	return nil
}

func (r *fakeGroupRepo) AttachReplanResult(changeID string, at time.Time, planID *string) error {
	c, ok := r.changes[changeID]
	if !ok {
		return repository.ErrChangeNotFound
	}
	c.ReplannedAt = &at
	c.ReplanPlanID = planID
	return nil
}

func (r *fakeGroupRepo) Changes(groupID string) ([]*model.GoalGroupChange, error) {
	var out []*model.GoalGroupChange
	for _, c := range r.changes {
		if c.GroupID == groupID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeWizardRepo struct {
	items map[string]*model.Wizard
}

func newFakeWizardRepo() *fakeWizardRepo {
	return &fakeWizardRepo{items: map[string]*model.Wizard{}}
}

func (r *fakeWizardRepo) Create(w *model.Wizard) error {
	copied := *w
	r.items[w.ID] = &copied
	return nil
}

func (r *fakeWizardRepo) ByID(id string) (*model.Wizard, error) {
	w, ok := r.items[id]
	if !ok {
		return nil, repository.ErrWizardNotFound
	}
	copied := *w
	return &copied, nil
}

func (r *fakeWizardRepo) ActiveForGoGetter(goGetterID string) (*model.Wizard, error) {
	for _, w := range r.items {
		if w.GoGetterID == goGetterID && !w.Terminal() {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeWizardRepo) Update(w *model.Wizard) error {
	if _, ok := r.items[w.ID]; !ok {
		return repository.ErrWizardNotFound
	}
	copied := *w
	r.items[w.ID] = &copied
	return nil
}

func (r *fakeWizardRepo) ExpireStale(now time.Time) (int64, error) {
	var count int64
	for _, w := range r.items {
		if !w.Terminal() && w.ExpiresAt.Before(now) {
			w.Status = model.WizardStatusCancelled
			count++
		}
	}
	return count, nil
}

// fakeGenerator returns a fixed one-week plan, or a scripted error per
// target ID.
type fakeGenerator struct {
	failFor map[string]error
	calls   []plangen.Request
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{failFor: map[string]error{}}
}

func (g *fakeGenerator) Generate(ctx context.Context, req plangen.Request) (*plangen.GeneratedPlan, error) {
	g.calls = append(g.calls, req)
	if err, ok := g.failFor[req.Target.ID]; ok {
		return nil, err
	}
	return &plangen.GeneratedPlan{
		Title:    fmt.Sprintf("%s Plan", req.Target.Subject),
		Overview: "A generated study plan.",
		Weeks: []plangen.GeneratedWeek{
			{
				WeekNumber: 1,
				Title:      "Week 1",
				Tasks: []plangen.GeneratedTask{
					{DayOfWeek: 0, SequenceInDay: 1, Title: "Read chapter", EstimatedMinutes: 30, TaskType: model.TaskTypeReading, XPReward: 30},
					{DayOfWeek: 2, SequenceInDay: 1, Title: "Practice problems", EstimatedMinutes: 30, TaskType: model.TaskTypePractice, XPReward: 30},
				},
			},
		},
	}, nil
}
