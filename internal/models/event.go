package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentEventType string

const (
	DocumentChanged DocumentEventType = "document.changed"
	DocumentDeleted DocumentEventType = "document.deleted"
)

// DocumentEvent announces a committed change in the document store.
type DocumentEvent struct {
	ID           string            `json:"id"`
	Type         DocumentEventType `json:"type"`
	DocumentID   string            `json:"document_id"`
	DocumentType string            `json:"document_type"`
	Timestamp    time.Time         `json:"timestamp"`
}

func NewDocumentEvent(eventType DocumentEventType, documentID, documentType string) DocumentEvent {
	return DocumentEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		DocumentID:   documentID,
		DocumentType: documentType,
		Timestamp:    time.Now().UTC(),
	}
}
