package models

import (
	"time"

	"gorm.io/gorm"
)

// ContractTemplate is a registered free-text template containing placeholder
// tokens. Content is immutable for resolution purposes: re-registering the
// same ID changes future resolutions only, never already-materialized
// contracts.
type ContractTemplate struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Category     string     `gorm:"index" json:"category"` // drives which extra fields the UI collects
	Content      string     `gorm:"type:text;not null" json:"content"`
	RequiredKeys StringList `gorm:"type:text" json:"required_keys"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
