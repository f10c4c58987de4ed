package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storesync/internal/models"
)

// GormStore keeps documents as JSON rows in a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, id string) (Document, error) {
	var row models.Document
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return decodeDocument(row.Body)
}

func (s *GormStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *GormStore) ListByType(ctx context.Context, docType string) ([]Document, error) {
	var rows []models.Document
	if err := s.db.WithContext(ctx).Where("type = ?", docType).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", docType, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", row.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *GormStore) ListIDs(ctx context.Context, docType, field string, value interface{}) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("type = ?", docType).
		Where(datatypes.JSONQuery("body").Equals(value, field)).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", docType, err)
	}
	return ids, nil
}

// Commit runs all mutations inside one database transaction.
func (s *GormStore) Commit(ctx context.Context, tx *Transaction) error {
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		rows := make(map[string]*models.Document)

		ws := newWorkingSet(func(id string) (Document, bool, error) {
			var row models.Document
			if err := dbtx.First(&row, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, false, nil
				}
				return nil, false, err
			}
			doc, err := decodeDocument(row.Body)
			if err != nil {
				return nil, false, err
			}
			rows[id] = &row
			return doc, true, nil
		})

		for _, m := range tx.Mutations {
			if err := ws.apply(m); err != nil {
				return err
			}
		}

		for _, doc := range ws.dirty() {
			body, err := json.Marshal(doc)
			if err != nil {
				return &StoreError{StatusCode: http.StatusBadRequest, Message: "invalid document", Err: err}
			}
			if row, ok := rows[doc.ID()]; ok {
				row.Body = datatypes.JSON(body)
				if err := dbtx.Save(row).Error; err != nil {
					return err
				}
				continue
			}
			row := &models.Document{ID: doc.ID(), Type: doc.Type(), Body: datatypes.JSON(body)}
			if err := dbtx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &StoreError{StatusCode: statusForDBError(err), Message: "transaction failed", Err: err}
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func statusForDBError(err error) int {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		// integrity constraint violation, e.g. a concurrent create
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
