package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        *string   `gorm:"uniqueIndex" json:"email,omitempty"` // Nullable unique email
	PasswordHash string    `json:"-"`                                  // Bcrypt hash, hidden from JSON
	Age          *int      `json:"age"`
	Money        *int64    `json:"money"`  // current assets
	Salary       *int64    `json:"salary"` // yearly
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
