package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	DefaultCategory = "General"
	DefaultPriority = "Medium"
)

type Task struct {
	ID           uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description"`
	Category     string     `json:"category" gorm:"not null;default:'General'"`
	Priority     string     `json:"priority" gorm:"not null;default:'Medium'"`
	DueDate      *time.Time `json:"dueDate" gorm:"index"`
	ReminderTime *time.Time `json:"reminderTime" gorm:"index"`
	Completed    bool       `json:"completed" gorm:"not null;default:false"`
	Reminded     bool       `json:"reminded" gorm:"not null;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
