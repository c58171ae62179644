// Package auth registers users, checks passwords and issues the bearer
// tokens the API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"finagent-go/internal/apperr"
	"finagent-go/internal/models"
)

type Service struct {
	db     *gorm.DB
	tokens *Tokens
}

func NewService(db *gorm.DB, tokens *Tokens) *Service {
	return &Service{db: db, tokens: tokens}
}

type Registration struct {
	Username string
	Password string
	Email    string
	Age      *int
	Money    *int64
	Salary   *int64
}

// Register creates a user and returns it with a fresh token. A taken
// username or email yields apperr.ErrConflict.
func (s *Service) Register(ctx context.Context, r Registration) (*models.User, string, error) {
	username := strings.TrimSpace(r.Username)
	if username == "" || len(r.Password) < 8 {
		return nil, "", fmt.Errorf("%w: username and a password of at least 8 characters are required", apperr.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Age:          r.Age,
		Money:        r.Money,
		Salary:       r.Salary,
	}
	if email := strings.TrimSpace(r.Email); email != "" {
		user.Email = &email
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, "", apperr.FromGorm(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Login checks the password and returns a token. Unknown users and bad
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.ErrUnauthorized
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	return &user, nil
}
