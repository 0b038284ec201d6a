package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the identity and timestamp columns shared by owned tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
