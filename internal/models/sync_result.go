package models

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSkipped SyncStatus = "skipped"
	SyncStatusDeleted SyncStatus = "deleted"
	SyncStatusError   SyncStatus = "error"
)

// SyncResult is the outcome of syncing one commerce product.
type SyncResult struct {
	ProductID       int64      `json:"productId"`
	DocumentID      string     `json:"documentId"`
	Title           string     `json:"title,omitempty"`
	Status          SyncStatus `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	Error           string     `json:"error,omitempty"`
	VariantsSynced  int        `json:"variantsSynced,omitempty"`
	VariantsDeleted int        `json:"variantsDeleted,omitempty"`
}

type BulkSummary struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (s *BulkSummary) Add(result SyncResult) {
	s.Total++
	switch result.Status {
	case SyncStatusSynced:
		s.Synced++
	case SyncStatusSkipped:
		s.Skipped++
	default:
		s.Errors++
	}
}
