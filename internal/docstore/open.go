package docstore

import (
	"context"
	"fmt"

	"storesync/internal/config"
	"storesync/internal/database"
)

// Open builds the store selected by DOCUMENT_STORE.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DocumentStore {
	case config.StoreDatabase, "":
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db.DB), nil
	case config.StoreMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreSanity:
		return NewSanityStore(SanityConfig{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			Token:      cfg.SanityAPIToken,
		})
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
	}
}
