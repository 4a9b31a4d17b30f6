package repository

import (
	"database/sql"
	"errors"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoGetterNotFound = errors.New("go-getter not found")
)

type GoGetterRepository interface {
	Create(gg *model.GoGetter) error
	ByID(id string) (*model.GoGetter, error)
}

type goGetterRepository struct {
	db *sqlx.DB
}

func NewGoGetterRepository(db *sqlx.DB) GoGetterRepository {
	return &goGetterRepository{db: db}
}

func (r *goGetterRepository) Create(gg *model.GoGetter) error {
	query := `INSERT INTO go_getters (id, name, grade, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query, gg.ID, gg.Name, gg.Grade, gg.CreatedAt, gg.UpdatedAt)
	return err
}

func (r *goGetterRepository) ByID(id string) (*model.GoGetter, error) {
	gg := &model.GoGetter{}
	query := `SELECT * FROM go_getters WHERE id = $1`

	err := r.db.Get(gg, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrGoGetterNotFound
	}

	return gg, err
}
