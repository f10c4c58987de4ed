package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is the relational row behind the database-backed document store.
// Body holds the full JSON document including _id and _type.
type Document struct {
	ID        string         `json:"_id" gorm:"primaryKey;size:191"`
	Type      string         `json:"_type" gorm:"index;size:64;not null"`
	Revision  string         `json:"_rev" gorm:"size:36"`
	Body      datatypes.JSON `json:"body" gorm:"not null"`
	CreatedAt time.Time      `json:"_createdAt"`
	UpdatedAt time.Time      `json:"_updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// BeforeSave stamps a fresh revision on every write.
func (d *Document) BeforeSave(tx *gorm.DB) error {
	d.Revision = uuid.New().String()
	return nil
}
