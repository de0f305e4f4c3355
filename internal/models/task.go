package models

import (
	"time"
)

type Task struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	DueDate   Date      `json:"date" gorm:"column:date;not null"`
	Tags      Tags      `json:"tags" gorm:"not null;default:''"`
	Status    Status    `json:"status" gorm:"type:varchar(16);not null;default:'BACKLOG'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports exact, case-sensitive membership.
func (t *Task) HasTag(tag string) bool {
	return t.Tags.Contains(tag)
}

// Clone returns a copy that shares no slice storage with t.
func (t Task) Clone() Task {
	tags := make(Tags, len(t.Tags))
	copy(tags, t.Tags)
	t.Tags = tags
	return t
}
