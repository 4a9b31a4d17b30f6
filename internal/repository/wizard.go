package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrWizardNotFound = errors.New("wizard not found")
)

type WizardRepository interface {
	Create(wizard *model.Wizard) error
	ByID(id string) (*model.Wizard, error)
	// ActiveForGoGetter returns the go-getter's non-terminal wizard, or nil.
	ActiveForGoGetter(goGetterID string) (*model.Wizard, error)
	Update(wizard *model.Wizard) error
	// ExpireStale cancels every non-terminal wizard past its expiry. Returns
	// the number of wizards swept.
	ExpireStale(now time.Time) (int64, error)
}

// wizardRow is the persisted shape: structured fields are stored as JSON
// text columns.
type wizardRow struct {
	ID                string         `db:"id"`
	GoGetterID        string         `db:"go_getter_id"`
	Status            string         `db:"status"`
	GroupTitle        string         `db:"group_title"`
	GroupDescription  string         `db:"group_description"`
	StartDate         *time.Time     `db:"start_date"`
	EndDate           *time.Time     `db:"end_date"`
	TargetSpecs       sql.NullString `db:"target_specs"`
	Constraints       sql.NullString `db:"constraints"`
	DraftPlanIDs      sql.NullString `db:"draft_plan_ids"`
	FeasibilityPassed *bool          `db:"feasibility_passed"`
	FeasibilityRisks  sql.NullString `db:"feasibility_risks"`
	GenerationErrors  sql.NullString `db:"generation_errors"`
	GoalGroupID       *string        `db:"goal_group_id"`
	ExpiresAt         time.Time      `db:"expires_at"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

type wizardRepository struct {
	db *sqlx.DB
}

func NewWizardRepository(db *sqlx.DB) WizardRepository {
	return &wizardRepository{db: db}
}

func (r *wizardRepository) Create(wizard *model.Wizard) error {
	row, err := toRow(wizard)
	if err != nil {
		return err
	}

	query := `INSERT INTO goal_group_wizards (id, go_getter_id, status, group_title, group_description, start_date, end_date, target_specs, constraints, draft_plan_ids, feasibility_passed, feasibility_risks, generation_errors, goal_group_id, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.Exec(query,
		row.ID,
		row.GoGetterID,
		row.Status,
		row.GroupTitle,
		row.GroupDescription,
		row.StartDate,
		row.EndDate,
		row.TargetSpecs,
		row.Constraints,
		row.DraftPlanIDs,
		row.FeasibilityPassed,
		row.FeasibilityRisks,
		row.GenerationErrors,
		row.GoalGroupID,
		row.ExpiresAt,
		row.CreatedAt,
		row.UpdatedAt,
	)

	return err
}

func (r *wizardRepository) ByID(id string) (*model.Wizard, error) {
	row := &wizardRow{}
	query := `SELECT * FROM goal_group_wizards WHERE id = $1`

	err := r.db.Get(row, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrWizardNotFound
	}
	if err != nil {
		return nil, err
	}

	return fromRow(row)
}

func (r *wizardRepository) ActiveForGoGetter(goGetterID string) (*model.Wizard, error) {
	row := &wizardRow{}
	query := `SELECT * FROM goal_group_wizards
	          WHERE go_getter_id = $1 AND status NOT IN ($2, $3, $4)
	          ORDER BY created_at DESC LIMIT 1`

	err := r.db.Get(row, query,
		goGetterID,
		model.WizardStatusConfirmed,
		model.WizardStatusCancelled,
		model.WizardStatusFailed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return fromRow(row)
}

func (r *wizardRepository) Update(wizard *model.Wizard) error {
	row, err := toRow(wizard)
	if err != nil {
		return err
	}

	query := `UPDATE goal_group_wizards
	          SET status = $1, group_title = $2, group_description = $3, start_date = $4, end_date = $5, target_specs = $6, constraints = $7, draft_plan_ids = $8, feasibility_passed = $9, feasibility_risks = $10, generation_errors = $11, goal_group_id = $12, updated_at = $13
	          WHERE id = $14`

	result, err := r.db.Exec(query,
		row.Status,
		row.GroupTitle,
		row.GroupDescription,
		row.StartDate,
		row.EndDate,
		row.TargetSpecs,
		row.Constraints,
		row.DraftPlanIDs,
		row.FeasibilityPassed,
		row.FeasibilityRisks,
		row.GenerationErrors,
		row.GoalGroupID,
		time.Now().UTC(),
		row.ID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrWizardNotFound
	}

	return nil
}

func (r *wizardRepository) ExpireStale(now time.Time) (int64, error) {
	query := `UPDATE goal_group_wizards
	          SET status = $1, updated_at = $2
	          WHERE expires_at < $3 AND status NOT IN ($4, $5, $6)`

	result, err := r.db.Exec(query,
		model.WizardStatusCancelled,
		now,
		now,
		model.WizardStatusConfirmed,
		model.WizardStatusCancelled,
		model.WizardStatusFailed,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func toRow(w *model.Wizard) (*wizardRow, error) {
	row := &wizardRow{
		ID:                w.ID,
		GoGetterID:        w.GoGetterID,
		Status:            w.Status,
		GroupTitle:        w.GroupTitle,
		GroupDescription:  w.GroupDescription,
		StartDate:         w.StartDate,
		EndDate:           w.EndDate,
		FeasibilityPassed: w.FeasibilityPassed,
		GoalGroupID:       w.GoalGroupID,
		ExpiresAt:         w.ExpiresAt,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}

	var err error
	if row.TargetSpecs, err = marshalColumn(w.TargetSpecs, len(w.TargetSpecs) > 0); err != nil {
		return nil, fmt.Errorf("failed to encode target specs: %w", err)
	}
	if row.Constraints, err = marshalColumn(w.Constraints, len(w.Constraints) > 0); err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}
	if row.DraftPlanIDs, err = marshalColumn(w.DraftPlanIDs, w.DraftPlanIDs != nil); err != nil {
		return nil, fmt.Errorf("failed to encode draft plan ids: %w", err)
	}
	if row.FeasibilityRisks, err = marshalColumn(w.FeasibilityRisks, w.FeasibilityRisks != nil); err != nil {
		return nil, fmt.Errorf("failed to encode feasibility risks: %w", err)
	}
	if row.GenerationErrors, err = marshalColumn(w.GenerationErrors, len(w.GenerationErrors) > 0); err != nil {
		return nil, fmt.Errorf("failed to encode generation errors: %w", err)
	}

	return row, nil
}

func fromRow(row *wizardRow) (*model.Wizard, error) {
	w := &model.Wizard{
		ID:                row.ID,
		GoGetterID:        row.GoGetterID,
		Status:            row.Status,
		GroupTitle:        row.GroupTitle,
		GroupDescription:  row.GroupDescription,
		StartDate:         row.StartDate,
		EndDate:           row.EndDate,
		FeasibilityPassed: row.FeasibilityPassed,
		GoalGroupID:       row.GoalGroupID,
		ExpiresAt:         row.ExpiresAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}

	if err := unmarshalColumn(row.TargetSpecs, &w.TargetSpecs); err != nil {
		return nil, fmt.Errorf("failed to decode target specs: %w", err)
	}
	if err := unmarshalColumn(row.Constraints, &w.Constraints); err != nil {
		return nil, fmt.Errorf("failed to decode constraints: %w", err)
	}
	if err := unmarshalColumn(row.DraftPlanIDs, &w.DraftPlanIDs); err != nil {
		return nil, fmt.Errorf("failed to decode draft plan ids: %w", err)
	}
	if err := unmarshalColumn(row.FeasibilityRisks, &w.FeasibilityRisks); err != nil {
		return nil, fmt.Errorf("failed to decode feasibility risks: %w", err)
	}
	if err := unmarshalColumn(row.GenerationErrors, &w.GenerationErrors); err != nil {
		return nil, fmt.Errorf("failed to decode generation errors: %w", err)
	}

	return w, nil
}

func marshalColumn(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalColumn(col sql.NullString, dest any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}
