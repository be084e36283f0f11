package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionArchive is the durable copy of a recorded session. The log columns
// are jsonb blobs; the archive is written best-effort and read back only to
// warm the in-memory collection at boot.
type SessionArchive struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title           string         `gorm:"type:varchar(255);not null"`
	Description     *string        `gorm:"type:text"`
	StartedAt       time.Time      `gorm:"not null"`
	EndedAt         time.Time      `gorm:"not null"`
	Tags            datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	Highlights      datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	RawObservations datatypes.JSON `gorm:"type:jsonb"`
	CompressedLog   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (SessionArchive) TableName() string {
	return "session_archives"
}
