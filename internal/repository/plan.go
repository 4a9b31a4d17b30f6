package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
)

type PlanRepository interface {
	Create(plan *model.Plan) error
	CreateMilestone(m *model.WeeklyMilestone) error
	CreateTask(t *model.Task) error
	ByID(id string) (*model.Plan, error)
	Update(plan *model.Plan) error
	// ActiveForTarget returns the target's live active plan, or nil when
	// there is none.
	ActiveForTarget(targetID string) (*model.Plan, error)
	// ActiveInSubcategory returns an active live plan owned by a *different*
	// target of the same go-getter in the given subcategory, or nil.
	ActiveInSubcategory(goGetterID, subcategoryID, excludeTargetID string) (*model.Plan, error)
	Milestones(planID string) ([]*model.WeeklyMilestone, error)
	Tasks(milestoneID string) ([]*model.Task, error)
	// SupersedeFutureTasks marks every active task as superseded in
	// milestones starting on or after the given date. Milestones overlapping
	// the current week keep their tasks untouched.
	SupersedeFutureTasks(planID string, from time.Time) (int64, error)
}

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(plan *model.Plan) error {
	query := `INSERT INTO plans (id, target_id, group_id, title, overview, start_date, end_date, total_weeks, status, version, superseded_by_id, prompt_tokens, completion_tokens, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(query,
		plan.ID,
		plan.TargetID,
		plan.GroupID,
		plan.Title,
		plan.Overview,
		plan.StartDate,
		plan.EndDate,
		plan.TotalWeeks,
		plan.Status,
		plan.Version,
		plan.SupersededByID,
		plan.PromptTokens,
		plan.CompletionTokens,
		plan.CreatedAt,
		plan.UpdatedAt,
	)

	return err
}

func (r *planRepository) CreateMilestone(m *model.WeeklyMilestone) error {
	query := `INSERT INTO weekly_milestones (id, plan_id, week_number, title, description, start_date, end_date, total_tasks, completed_tasks, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		m.ID,
		m.PlanID,
		m.WeekNumber,
		m.Title,
		m.Description,
		m.StartDate,
		m.EndDate,
		m.TotalTasks,
		m.CompletedTasks,
		m.CreatedAt,
		m.UpdatedAt,
	)

	return err
}

func (r *planRepository) CreateTask(t *model.Task) error {
	query := `INSERT INTO tasks (id, milestone_id, day_of_week, sequence_in_day, title, description, estimated_minutes, xp_reward, task_type, is_optional, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(query,
		t.ID,
		t.MilestoneID,
		t.DayOfWeek,
		t.SequenceInDay,
		t.Title,
		t.Description,
		t.EstimatedMinutes,
		t.XPReward,
		t.TaskType,
		t.IsOptional,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
	)

	return err
}

func (r *planRepository) ByID(id string) (*model.Plan, error) {
	plan := &model.Plan{}
	query := `SELECT * FROM plans WHERE id = $1`

	err := r.db.Get(plan, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}

	return plan, err
}

func (r *planRepository) Update(plan *model.Plan) error {
	query := `UPDATE plans
	          SET group_id = $1, status = $2, version = $3, superseded_by_id = $4, updated_at = $5
	          WHERE id = $6`

	result, err := r.db.Exec(query,
		plan.GroupID,
		plan.Status,
		plan.Version,
		plan.SupersededByID,
		time.Now().UTC(),
		plan.ID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPlanNotFound
	}

	return nil
}

func (r *planRepository) ActiveForTarget(targetID string) (*model.Plan, error) {
	plan := &model.Plan{}
	query := `SELECT * FROM plans WHERE target_id = $1 AND status = $2 LIMIT 1`

	err := r.db.Get(plan, query, targetID, model.PlanStatusActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *planRepository) ActiveInSubcategory(goGetterID, subcategoryID, excludeTargetID string) (*model.Plan, error) {
	plan := &model.Plan{}
	query := `SELECT p.* FROM plans p
	          JOIN targets t ON p.target_id = t.id
	          WHERE t.go_getter_id = $1
	            AND t.subcategory_id = $2
	            AND t.status = $3
	            AND p.status = $4
	            AND t.id != $5
	          LIMIT 1`

	err := r.db.Get(plan, query,
		goGetterID,
		subcategoryID,
		model.TargetStatusActive,
		model.PlanStatusActive,
		excludeTargetID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *planRepository) Milestones(planID string) ([]*model.WeeklyMilestone, error) {
	var milestones []*model.WeeklyMilestone
	query := `SELECT * FROM weekly_milestones WHERE plan_id = $1 ORDER BY week_number ASC`

	err := r.db.Select(&milestones, query, planID)
	if err != nil {
		return nil, err
	}

	return milestones, nil
}

func (r *planRepository) Tasks(milestoneID string) ([]*model.Task, error) {
	var tasks []*model.Task
	query := `SELECT * FROM tasks WHERE milestone_id = $1 ORDER BY day_of_week ASC, sequence_in_day ASC`

	err := r.db.Select(&tasks, query, milestoneID)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *planRepository) SupersedeFutureTasks(planID string, from time.Time) (int64, error) {
	query := `UPDATE tasks
	          SET status = $1, updated_at = $2
	          WHERE status = $3
	            AND milestone_id IN (
	              SELECT id FROM weekly_milestones WHERE plan_id = $4 AND start_date >= $5
	            )`

	result, err := r.db.Exec(query,
		model.TaskStatusSuperseded,
		time.Now().UTC(),
		model.TaskStatusActive,
		planID,
		from,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
