package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wizardFixture struct {
	svc       *WizardService
	wizards   *fakeWizardRepo
	targets   *fakeTargetRepo
	plans     *fakePlanRepo
	groups    *fakeGroupRepo
	goGetters *fakeGoGetterRepo
	generator *fakeGenerator
	now       time.Time
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()

	f := &wizardFixture{
		wizards:   newFakeWizardRepo(),
		targets:   newFakeTargetRepo(),
		goGetters: newFakeGoGetterRepo(),
		groups:    newFakeGroupRepo(),
		generator: newFakeGenerator(),
		now:       time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), // a Wednesday
	}
	f.plans = newFakePlanRepo(f.targets)

	feasibility := NewFeasibilityEngine(f.plans, f.groups, nil, 120)
	f.svc = NewWizardService(f.wizards, f.targets, f.plans, f.groups, f.goGetters,
		feasibility, f.generator, 24*time.Hour, time.Minute)
	f.svc.now = func() time.Time { return f.now }

	require.NoError(t, f.goGetters.Create(&model.GoGetter{ID: "kid", Name: "Jordan", Grade: "5"}))
	return f
}

func (f *wizardFixture) addTarget(t *testing.T, id, subcategory string) {
	t.Helper()
	require.NoError(t, f.targets.Create(&model.Target{
		ID:            id,
		GoGetterID:    "kid",
		Title:         "Master " + subcategory,
		Subject:       subcategory,
		SubcategoryID: strPtr(subcategory),
		Status:        model.TargetStatusActive,
	}))
}

// runToFeasibility walks a fresh wizard through scope, targets, and
// constraints for the given target IDs.
func (f *wizardFixture) runToFeasibility(t *testing.T, targetIDs ...string) *model.Wizard {
	t.Helper()

	wizard, err := f.svc.Create("kid")
	require.NoError(t, err)

	start := f.now.AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 28)
	wizard, err = f.svc.SetScope(wizard.ID, "Spring Goals", "Spring term push", start, end)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusCollectingTargets, wizard.Status)

	inputs := make([]TargetSpecInput, 0, len(targetIDs))
	for _, id := range targetIDs {
		inputs = append(inputs, TargetSpecInput{TargetID: id})
	}
	wizard, err = f.svc.SetTargets(wizard.ID, inputs)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusCollectingConstraints, wizard.Status)

	wizard, err = f.svc.SetConstraints(context.Background(), wizard.ID, map[string]model.Constraint{})
	require.NoError(t, err)
	return wizard
}

func TestWizardCreateRejectsSecondActive(t *testing.T) {
	f := newWizardFixture(t)

	_, err := f.svc.Create("kid")
	require.NoError(t, err)

	_, err = f.svc.Create("kid")
	assert.ErrorIs(t, err, ErrWizardActiveExists)
}

func TestWizardSetScopeSpanTooShort(t *testing.T) {
	f := newWizardFixture(t)
	wizard, err := f.svc.Create("kid")
	require.NoError(t, err)

	start := f.now
	_, err = f.svc.SetScope(wizard.ID, "Short", "", start, start.AddDate(0, 0, 5))
	assert.ErrorIs(t, err, ErrSpanTooShort)

	_, err = f.svc.SetScope(wizard.ID, "Backwards", "", start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestWizardSetTargetsRejectsForeignTarget(t *testing.T) {
	f := newWizardFixture(t)
	require.NoError(t, f.goGetters.Create(&model.GoGetter{ID: "other", Name: "Sam"}))
	require.NoError(t, f.targets.Create(&model.Target{
		ID: "foreign", GoGetterID: "other", Status: model.TargetStatusActive,
	}))

	wizard, err := f.svc.Create("kid")
	require.NoError(t, err)
	start := f.now
	_, err = f.svc.SetScope(wizard.ID, "Goals", "", start, start.AddDate(0, 0, 14))
	require.NoError(t, err)

	_, err = f.svc.SetTargets(wizard.ID, []TargetSpecInput{{TargetID: "foreign"}})
	assert.ErrorIs(t, err, ErrTargetNotOwned)
}

func TestWizardEndToEndConfirm(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-math", "math")
	f.addTarget(t, "t-read", "reading")

	wizard := f.runToFeasibility(t, "t-math", "t-read")

	assert.Equal(t, model.WizardStatusFeasibilityCheck, wizard.Status)
	require.NotNil(t, wizard.FeasibilityPassed)
	assert.True(t, *wizard.FeasibilityPassed)
	assert.Len(t, wizard.DraftPlanIDs, 2)
	assert.Empty(t, wizard.GenerationErrors)

	// Drafts never touch live scheduling before confirm.
	for _, id := range wizard.DraftPlanIDs {
		plan, err := f.plans.ByID(id)
		require.NoError(t, err)
		assert.Equal(t, model.PlanStatusDraft, plan.Status)
	}

	wizard, err := f.svc.Confirm(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusConfirmed, wizard.Status)
	require.NotNil(t, wizard.GoalGroupID)

	group, err := f.groups.ByID(*wizard.GoalGroupID)
	require.NoError(t, err)
	assert.Equal(t, model.GoalGroupStatusActive, group.Status)
	assert.Equal(t, model.ReplanStatusIdle, group.ReplanStatus)

	for _, id := range []string{"t-math", "t-read"} {
		target, err := f.targets.ByID(id)
		require.NoError(t, err)
		require.NotNil(t, target.GroupID)
		assert.Equal(t, group.ID, *target.GroupID)
		assert.Equal(t, DefaultPriority, target.Priority)

		plan, err := f.plans.ActiveForTarget(id)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, model.PlanStatusActive, plan.Status)
	}
}

func TestWizardConfirmVanishedDraftKeepsPriorPlan(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-keep", "math")
	f.addTarget(t, "t-lost", "reading")

	// Both targets carry a live plan from before the wizard.
	for _, tc := range []struct{ planID, targetID string }{
		{"p-keep-old", "t-keep"},
		{"p-lost-old", "t-lost"},
	} {
		require.NoError(t, f.plans.Create(&model.Plan{
			ID:        tc.planID,
			TargetID:  tc.targetID,
			Title:     "Prior plan",
			StartDate: f.now.AddDate(0, 0, -14),
			EndDate:   f.now.AddDate(0, 0, 14),
			Status:    model.PlanStatusActive,
			Version:   1,
		}))
	}

	wizard := f.runToFeasibility(t, "t-keep", "t-lost")
	require.NotNil(t, wizard.FeasibilityPassed)
	require.True(t, *wizard.FeasibilityPassed)
	require.Len(t, wizard.DraftPlanIDs, 2)

	// One draft disappears out from under the wizard before confirm.
	for _, id := range wizard.DraftPlanIDs {
		plan, err := f.plans.ByID(id)
		require.NoError(t, err)
		if plan.TargetID == "t-lost" {
			delete(f.plans.plans, id)
		}
	}

	wizard, err := f.svc.Confirm(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusConfirmed, wizard.Status)

	// The surviving draft replaces its prior plan.
	keepOld, err := f.plans.ByID("p-keep-old")
	require.NoError(t, err)
	assert.Equal(t, model.PlanStatusCompleted, keepOld.Status)

	keepActive, err := f.plans.ActiveForTarget("t-keep")
	require.NoError(t, err)
	require.NotNil(t, keepActive)
	assert.NotEqual(t, "p-keep-old", keepActive.ID)

	// The target whose draft vanished keeps its prior plan live.
	lostActive, err := f.plans.ActiveForTarget("t-lost")
	require.NoError(t, err)
	require.NotNil(t, lostActive)
	assert.Equal(t, "p-lost-old", lostActive.ID)
	assert.Equal(t, model.PlanStatusActive, lostActive.Status)
}

func TestWizardConfirmBlockedOnDuplicateSubcategory(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-a", "math")
	f.addTarget(t, "t-b", "math")

	wizard := f.runToFeasibility(t, "t-a", "t-b")

	require.NotNil(t, wizard.FeasibilityPassed)
	assert.False(t, *wizard.FeasibilityPassed)
	assert.Contains(t, riskRules(wizard.FeasibilityRisks), RuleDuplicateSubcategory)

	_, err := f.svc.Confirm(wizard.ID)
	assert.ErrorIs(t, err, ErrBlockingRisks)
}

func TestWizardGenerationErrorRecordedPerTarget(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-good", "math")
	f.addTarget(t, "t-bad", "reading")
	f.generator.failFor["t-bad"] = errors.New("model unavailable")

	wizard := f.runToFeasibility(t, "t-good", "t-bad")

	require.Len(t, wizard.GenerationErrors, 1)
	assert.Equal(t, "t-bad", wizard.GenerationErrors[0].TargetID)
	assert.Len(t, wizard.DraftPlanIDs, 1)

	// The feasibility verdict reflects blocking risks only; generation
	// errors block confirm on their own without failing the verdict.
	require.NotNil(t, wizard.FeasibilityPassed)
	assert.True(t, *wizard.FeasibilityPassed)
	assert.Empty(t, wizard.FeasibilityRisks)

	_, err := f.svc.Confirm(wizard.ID)
	assert.ErrorIs(t, err, ErrGenerationErrors)
}

func TestWizardAdjustRegenerates(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-a", "math")
	f.addTarget(t, "t-b", "math")

	wizard := f.runToFeasibility(t, "t-a", "t-b")
	firstDrafts := append([]string{}, wizard.DraftPlanIDs...)

	wizard, err := f.svc.Adjust(context.Background(), wizard.ID, AdjustRequest{
		TargetSpecs: []TargetSpecInput{{TargetID: "t-a", Priority: 5}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.WizardStatusFeasibilityCheck, wizard.Status)
	require.NotNil(t, wizard.FeasibilityPassed)
	assert.True(t, *wizard.FeasibilityPassed)
	assert.Len(t, wizard.DraftPlanIDs, 1)

	// Prior drafts are cancelled, not deleted.
	for _, id := range firstDrafts {
		plan, err := f.plans.ByID(id)
		require.NoError(t, err)
		assert.Equal(t, model.PlanStatusCancelled, plan.Status)
	}

	_, err = f.svc.Confirm(wizard.ID)
	require.NoError(t, err)
}

func TestWizardCancelIdempotent(t *testing.T) {
	f := newWizardFixture(t)
	wizard, err := f.svc.Create("kid")
	require.NoError(t, err)

	wizard, err = f.svc.Cancel(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusCancelled, wizard.Status)

	wizard, err = f.svc.Cancel(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusCancelled, wizard.Status)
}

func TestWizardTerminalGuard(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-a", "math")

	wizard := f.runToFeasibility(t, "t-a")
	_, err := f.svc.Confirm(wizard.ID)
	require.NoError(t, err)

	start := f.now
	_, err = f.svc.SetScope(wizard.ID, "Again", "", start, start.AddDate(0, 0, 14))
	assert.ErrorIs(t, err, ErrWizardTerminal)

	// Cancel on any terminal wizard is a no-op, never an error, and leaves
	// the terminal status untouched.
	cancelled, err := f.svc.Cancel(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusConfirmed, cancelled.Status)

	stored, err := f.svc.ByID(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusConfirmed, stored.Status)
}

func TestWizardExpiry(t *testing.T) {
	f := newWizardFixture(t)
	wizard, err := f.svc.Create("kid")
	require.NoError(t, err)

	f.now = f.now.Add(25 * time.Hour)

	start := f.now
	_, err = f.svc.SetScope(wizard.ID, "Late", "", start, start.AddDate(0, 0, 14))
	assert.ErrorIs(t, err, ErrWizardTerminal)

	stored, err := f.svc.ByID(wizard.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WizardStatusCancelled, stored.Status)
}

func TestWizardSweep(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.svc.Create("kid")
	require.NoError(t, err)

	swept, err := f.svc.Sweep()
	require.NoError(t, err)
	assert.Zero(t, swept)

	f.now = f.now.Add(25 * time.Hour)
	swept, err = f.svc.Sweep()
	require.NoError(t, err)
	assert.EqualValues(t, 1, swept)
}

func TestWizardConfirmRejectsWhenActiveGroupExists(t *testing.T) {
	f := newWizardFixture(t)
	f.addTarget(t, "t-a", "math")
	require.NoError(t, f.groups.Create(&model.GoalGroup{
		ID: "existing", GoGetterID: "kid", Status: model.GoalGroupStatusActive,
		ReplanStatus: model.ReplanStatusIdle,
	}))

	wizard := f.runToFeasibility(t, "t-a")
	assert.Contains(t, riskRules(wizard.FeasibilityRisks), RuleExistingActiveGroup)

	_, err := f.svc.Confirm(wizard.ID)
	assert.ErrorIs(t, err, ErrActiveGroupExists)
}
