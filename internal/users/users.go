// Package users reads and edits user profiles.
package users

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"finagent-go/internal/apperr"
	"finagent-go/internal/models"
)

// ProfilePatch lists the editable profile fields. Nil means unchanged; an
// empty email clears it.
type ProfilePatch struct {
	Email  *string `json:"email"`
	Age    *int    `json:"age"`
	Money  *int64  `json:"money"`
	Salary *int64  `json:"salary"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &u, nil
}

func (s *Service) Update(ctx context.Context, id uint, p ProfilePatch) (*models.User, error) {
	cols := map[string]any{}
	if p.Email != nil {
		if email := strings.TrimSpace(*p.Email); email != "" {
			cols["email"] = email
		} else {
			cols["email"] = nil
		}
	}
	if p.Age != nil {
		if *p.Age < 0 || *p.Age > 150 {
			return nil, fmt.Errorf("%w: age out of range", apperr.ErrInvalidInput)
		}
		cols["age"] = *p.Age
	}
	if p.Money != nil {
		cols["money"] = *p.Money
	}
	if p.Salary != nil {
		if *p.Salary < 0 {
			return nil, fmt.Errorf("%w: salary must not be negative", apperr.ErrInvalidInput)
		}
		cols["salary"] = *p.Salary
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return u, nil
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(cols).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	return s.Get(ctx, id)
}
