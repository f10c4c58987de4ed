package processors

import (
	"context"
	"fmt"

	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/search"
)

// SearchSyncer is the part of search.Service the processor drives.
type SearchSyncer interface {
	SyncByID(ctx context.Context, id string) (search.Outcome, error)
	Delete(ctx context.Context, id string) error
}

type EventProcessor struct {
	search SearchSyncer
	logger *logger.Logger
}

func NewEventProcessor(search SearchSyncer, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{search: search, logger: logger}
}

// Process applies one document event to the search index. Events for
// document types that are not searchable are ignored.
func (ep *EventProcessor) Process(ctx context.Context, event models.DocumentEvent) error {
	if !search.IsIndexedType(event.DocumentType) {
		ep.logger.Debug("Ignoring %s for %s document %s", event.Type, event.DocumentType, event.DocumentID)
		return nil
	}

	switch event.Type {
	case models.DocumentChanged:
		outcome, err := ep.search.SyncByID(ctx, event.DocumentID)
		if err != nil {
			return err
		}
		ep.logger.Info("Search %s %s", outcome, event.DocumentID)
		return nil
	case models.DocumentDeleted:
		if err := ep.search.Delete(ctx, event.DocumentID); err != nil {
			return err
		}
		ep.logger.Info("Search deleted %s", event.DocumentID)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}
