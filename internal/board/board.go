// Package board stores community articles. Anyone may read; only the author
// may edit or delete.
package board

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finagent-go/internal/apperr"
	"finagent-go/internal/models"
)

const maxTitleLen = 100

type Draft struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

func (d Draft) validate() error {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", apperr.ErrInvalidInput, maxTitleLen)
	}
	return nil
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns articles newest first with their authors.
func (s *Store) List(ctx context.Context) ([]models.Article, error) {
	articles := []models.Article{}
	err := s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC").Find(&articles).Error
	return articles, err
}

func (s *Store) Get(ctx context.Context, id uint) (*models.Article, error) {
	var a models.Article
	if err := s.db.WithContext(ctx).Preload("User").Take(&a, id).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, userID uint, d Draft) (*models.Article, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	a := models.Article{UserID: userID, Title: strings.TrimSpace(d.Title), Content: d.Content}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return s.Get(ctx, a.ID)
}

func (s *Store) Update(ctx context.Context, userID, id uint, d Draft) (*models.Article, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(a).Updates(map[string]any{
		"title":   strings.TrimSpace(d.Title),
		"content": d.Content,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update article %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, userID, id uint) error {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Article{}, a.ID).Error
}

func (s *Store) owned(ctx context.Context, userID, id uint) (*models.Article, error) {
	var a models.Article
	if err := s.db.WithContext(ctx).Take(&a, id).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	if a.UserID != userID {
		return nil, apperr.ErrForbidden
	}
	return &a, nil
}
