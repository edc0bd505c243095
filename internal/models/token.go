package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Token is a stored refresh token. Access tokens are stateless JWTs and are
// never persisted.
type Token struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	RefreshToken uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	CreatedAt    time.Time
}
