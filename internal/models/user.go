package models

import (
	"time"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Name         string    `json:"name" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	Tasks  []Task  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Tokens []Token `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Token is a refresh token issued at login.
type Token struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	RefreshToken string    `json:"refresh_token" gorm:"uniqueIndex;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
