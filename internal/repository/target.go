package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTargetNotFound = errors.New("target not found")
)

type TargetRepository interface {
	Create(target *model.Target) error
	ByID(id string) (*model.Target, error)
	ByGroup(groupID string) ([]*model.Target, error)
	Update(target *model.Target) error
}

type targetRepository struct {
	db *sqlx.DB
}

func NewTargetRepository(db *sqlx.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) Create(target *model.Target) error {
	query := `INSERT INTO targets (id, go_getter_id, title, subject, description, subcategory_id, priority, status, group_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		target.ID,
		target.GoGetterID,
		target.Title,
		target.Subject,
		target.Description,
		target.SubcategoryID,
		target.Priority,
		target.Status,
		target.GroupID,
		target.CreatedAt,
		target.UpdatedAt,
	)

	return err
}

func (r *targetRepository) ByID(id string) (*model.Target, error) {
	target := &model.Target{}
	query := `SELECT * FROM targets WHERE id = $1`

	err := r.db.Get(target, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrTargetNotFound
	}

	return target, err
}

func (r *targetRepository) ByGroup(groupID string) ([]*model.Target, error) {
	var targets []*model.Target
	query := `SELECT * FROM targets WHERE group_id = $1 ORDER BY priority DESC, created_at ASC`

	err := r.db.Select(&targets, query, groupID)
	if err != nil {
		return nil, err
	}

	return targets, nil
}

func (r *targetRepository) Update(target *model.Target) error {
	query := `UPDATE targets
	          SET title = $1, subject = $2, description = $3, subcategory_id = $4, priority = $5, status = $6, group_id = $7, updated_at = $8
	          WHERE id = $9`

	result, err := r.db.Exec(query,
		target.Title,
		target.Subject,
		target.Description,
		target.SubcategoryID,
		target.Priority,
		target.Status,
		target.GroupID,
		time.Now().UTC(),
		target.ID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrTargetNotFound
	}

	return nil
}
