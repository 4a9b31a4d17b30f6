package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrNameRequired  = errors.New("name is required")
	ErrTitleRequired = errors.New("title is required")
)

// RosterService manages the go-getters and their free-standing targets that
// the planning flows operate on.
type RosterService struct {
	goGetters repository.GoGetterRepository
	targets   repository.TargetRepository
	now       func() time.Time
}

func NewRosterService(goGetters repository.GoGetterRepository, targets repository.TargetRepository) *RosterService {
	return &RosterService{
		goGetters: goGetters,
		targets:   targets,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *RosterService) CreateGoGetter(name, grade string) (*model.GoGetter, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	now := s.now()
	gg := &model.GoGetter{
		ID:        uuid.New().String(),
		Name:      name,
		Grade:     grade,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.goGetters.Create(gg)
	if err != nil {
		return nil, fmt.Errorf("failed to create go-getter: %w", err)
	}
	return gg, nil
}

func (s *RosterService) CreateTarget(goGetterID, title, subject, description string, subcategoryID *string) (*model.Target, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}
	_, err := s.goGetters.ByID(goGetterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	target := &model.Target{
		ID:            uuid.New().String(),
		GoGetterID:    goGetterID,
		Title:         title,
		Subject:       subject,
		Description:   description,
		SubcategoryID: subcategoryID,
		Priority:      DefaultPriority,
		Status:        model.TargetStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.targets.Create(target)
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}
	return target, nil
}
