package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoalGroupNotFound = errors.New("goal group not found")
	ErrChangeNotFound    = errors.New("goal group change not found")
)

type GoalGroupRepository interface {
	Create(group *model.GoalGroup) error
	ByID(id string) (*model.GoalGroup, error)
	// ActiveForGoGetter returns the go-getter's single active group, or nil.
	ActiveForGoGetter(goGetterID string) (*model.GoalGroup, error)
	Update(group *model.GoalGroup) error
	// AcquireReplanLock atomically transitions replan_status idle →
	// in_progress. Returns false when another re-plan holds the lock.
	AcquireReplanLock(groupID string) (bool, error)
	// ReleaseReplanLock sets replan_status to idle, or to failed when the
	// re-plan aborted. A failed lock stays failed until ResetReplanStatus.
	ReleaseReplanLock(groupID string, failed bool) error
	// ResetReplanStatus is the explicit operator recovery action failed → idle.
	ResetReplanStatus(groupID string) (bool, error)
	// RecordChange appends an audit record and stamps last_change_at on the
	// group, starting the next cooldown window.
	RecordChange(change *model.GoalGroupChange) error
	// AttachReplanResult records re-plan completion metadata on a change.
	AttachReplanResult(changeID string, at time.Time, planID *string) error
	Changes(groupID string) ([]*model.GoalGroupChange, error)
}

type goalGroupRepository struct {
	db *sqlx.DB
}

func NewGoalGroupRepository(db *sqlx.DB) GoalGroupRepository {
	return &goalGroupRepository{db: db}
}

func (r *goalGroupRepository) Create(group *model.GoalGroup) error {
	query := `INSERT INTO goal_groups (id, go_getter_id, title, description, status, start_date, end_date, last_change_at, replan_status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		group.ID,
		group.GoGetterID,
		group.Title,
		group.Description,
		group.Status,
		group.StartDate,
		group.EndDate,
		group.LastChangeAt,
		group.ReplanStatus,
		group.CreatedAt,
		group.UpdatedAt,
	)

	return err
}

func (r *goalGroupRepository) ByID(id string) (*model.GoalGroup, error) {
	group := &model.GoalGroup{}
	query := `SELECT * FROM goal_groups WHERE id = $1`

	err := r.db.Get(group, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrGoalGroupNotFound
	}

	return group, err
}

func (r *goalGroupRepository) ActiveForGoGetter(goGetterID string) (*model.GoalGroup, error) {
	group := &model.GoalGroup{}
	query := `SELECT * FROM goal_groups WHERE go_getter_id = $1 AND status = $2 LIMIT 1`

	err := r.db.Get(group, query, goGetterID, model.GoalGroupStatusActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return group, nil
}

func (r *goalGroupRepository) Update(group *model.GoalGroup) error {
	query := `UPDATE goal_groups
	          SET title = $1, description = $2, status = $3, start_date = $4, end_date = $5, last_change_at = $6, updated_at = $7
	          WHERE id = $8`

	result, err := r.db.Exec(query,
		group.Title,
		group.Description,
		group.Status,
		group.StartDate,
		group.EndDate,
		group.LastChangeAt,
		time.Now().UTC(),
		group.ID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalGroupNotFound
	}

	return nil
}

func (r *goalGroupRepository) AcquireReplanLock(groupID string) (bool, error) {
	query := `UPDATE goal_groups
	          SET replan_status = $1, updated_at = $2
	          WHERE id = $3 AND replan_status = $4`

	result, err := r.db.Exec(query,
		model.ReplanStatusInProgress,
		time.Now().UTC(),
		groupID,
		model.ReplanStatusIdle,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *goalGroupRepository) ReleaseReplanLock(groupID string, failed bool) error {
	status := model.ReplanStatusIdle
	if failed {
		status = model.ReplanStatusFailed
	}

	query := `UPDATE goal_groups SET replan_status = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.Exec(query, status, time.Now().UTC(), groupID)
	return err
}

func (r *goalGroupRepository) ResetReplanStatus(groupID string) (bool, error) {
	query := `UPDATE goal_groups
	          SET replan_status = $1, updated_at = $2
	          WHERE id = $3 AND replan_status = $4`

	result, err := r.db.Exec(query,
		model.ReplanStatusIdle,
		time.Now().UTC(),
		groupID,
		model.ReplanStatusFailed,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *goalGroupRepository) RecordChange(change *model.GoalGroupChange) error {
	query := `INSERT INTO goal_group_changes (id, group_id, change_type, target_id, old_value, new_value, replanned_at, replan_plan_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		change.ID,
		change.GroupID,
		change.ChangeType,
		change.TargetID,
		change.OldValue,
		change.NewValue,
		change.ReplannedAt,
		change.ReplanPlanID,
		change.CreatedAt,
	)
	if err != nil {
		return err
	}

	stamp := `UPDATE goal_groups SET last_change_at = $1, updated_at = $2 WHERE id = $3`

	_, err = r.db.Exec(stamp, change.CreatedAt, time.Now().UTC(), change.GroupID)
	return err
}

func (r *goalGroupRepository) AttachReplanResult(changeID string, at time.Time, planID *string) error {
	query := `UPDATE goal_group_changes SET replanned_at = $1, replan_plan_id = $2 WHERE id = $3`

	result, err := r.db.Exec(query, at, planID, changeID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrChangeNotFound
	}

	return nil
}

func (r *goalGroupRepository) Changes(groupID string) ([]*model.GoalGroupChange, error) {
	var changes []*model.GoalGroupChange
	query := `SELECT * FROM goal_group_changes WHERE group_id = $1 ORDER BY created_at ASC`

	err := r.db.Select(&changes, query, groupID)
	if err != nil {
		return nil, err
	}

	return changes, nil
}
