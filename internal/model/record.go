package model

import (
	"time"

	"gorm.io/datatypes"
)

// RecordDocument is a stored service record. The job itself lives in the
// Document column exactly as the client wrote it; it is normalized on
// read, never migrated in place.
type RecordDocument struct {
	ID        string         `gorm:"primaryKey;size:36"`
	TenantID  string         `gorm:"index;size:64;not null"`
	Document  datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
