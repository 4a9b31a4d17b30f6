package service

import (
	"fmt"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/plangen"
	"github.com/goalpal/goalpal/internal/repository"
	"github.com/google/uuid"
)

// persistGeneratedPlan materializes a generated plan as Plan, WeeklyMilestone
// and Task rows. Milestone windows are derived from the plan start date and
// capped at the end date; unknown task types map to "other".
func persistGeneratedPlan(
	plans repository.PlanRepository,
	gp *plangen.GeneratedPlan,
	target *model.Target,
	groupID *string,
	start, end time.Time,
	status string,
	version int,
	now time.Time,
) (*model.Plan, error) {
	totalDays := int(end.Sub(start).Hours()/24) + 1
	totalWeeks := (totalDays + 6) / 7
	if totalWeeks < 1 {
		totalWeeks = 1
	}

	title := gp.Title
	if title == "" {
		title = fmt.Sprintf("%s Study Plan", target.Subject)
	}

	plan := &model.Plan{
		ID:               uuid.New().String(),
		TargetID:         target.ID,
		GroupID:          groupID,
		Title:            title,
		Overview:         gp.Overview,
		StartDate:        start,
		EndDate:          end,
		TotalWeeks:       totalWeeks,
		Status:           status,
		Version:          version,
		PromptTokens:     gp.PromptTokens,
		CompletionTokens: gp.CompletionTokens,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := plans.Create(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	for _, week := range gp.Weeks {
		weekOffset := (week.WeekNumber - 1) * 7
		msStart := start.AddDate(0, 0, weekOffset)
		msEnd := msStart.AddDate(0, 0, 6)
		if msEnd.After(end) {
			msEnd = end
		}

		milestone := &model.WeeklyMilestone{
			ID:             uuid.New().String(),
			PlanID:         plan.ID,
			WeekNumber:     week.WeekNumber,
			Title:          week.Title,
			Description:    week.Description,
			StartDate:      msStart,
			EndDate:        msEnd,
			TotalTasks:     len(week.Tasks),
			CompletedTasks: 0,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if milestone.Title == "" {
			milestone.Title = fmt.Sprintf("Week %d", week.WeekNumber)
		}

		err = plans.CreateMilestone(milestone)
		if err != nil {
			return nil, fmt.Errorf("failed to create milestone: %w", err)
		}

		for _, t := range week.Tasks {
			taskType := t.TaskType
			if !model.ValidTaskType(taskType) {
				taskType = model.TaskTypeOther
			}
			sequence := t.SequenceInDay
			if sequence < 1 {
				sequence = 1
			}
			minutes := t.EstimatedMinutes
			if minutes <= 0 {
				minutes = 30
			}

			task := &model.Task{
				ID:               uuid.New().String(),
				MilestoneID:      milestone.ID,
				DayOfWeek:        t.DayOfWeek,
				SequenceInDay:    sequence,
				Title:            t.Title,
				Description:      t.Description,
				EstimatedMinutes: minutes,
				XPReward:         t.XPReward,
				TaskType:         taskType,
				IsOptional:       t.IsOptional,
				Status:           model.TaskStatusActive,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if task.Title == "" {
				task.Title = "Study Task"
			}

			err = plans.CreateTask(task)
			if err != nil {
				return nil, fmt.Errorf("failed to create task: %w", err)
			}
		}
	}

	return plan, nil
}
