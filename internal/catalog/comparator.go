// Package catalog keeps product documents in the document store in step with
// the commerce platform.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"storesync/internal/models"
)

const (
	ReasonUnchanged = "unchanged"
	ReasonNotFound  = "not found"
	ReasonMissing   = "document missing"
)

// Decision says whether a product needs a document store write.
type Decision struct {
	Sync   bool
	Reason string
	Diff   string
}

// Compare returns a readable diff between the cached snapshot and the
// candidate, empty when they are equal. A nil previous snapshot always differs.
func Compare(prev *models.ProductSnapshot, next models.ProductSnapshot) string {
	if prev == nil {
		return "no cached snapshot"
	}
	return cmp.Diff(*prev, next, cmpopts.EquateEmpty())
}

// Decide skips a product only when nothing changed and its document is still
// present. A missing document is rebuilt even with an identical snapshot.
func Decide(prev *models.ProductSnapshot, next models.ProductSnapshot, documentExists bool) Decision {
	diff := Compare(prev, next)
	switch {
	case diff == "" && documentExists:
		return Decision{Sync: false, Reason: ReasonUnchanged}
	case diff == "":
		return Decision{Sync: true, Reason: ReasonMissing}
	case prev == nil:
		return Decision{Sync: true, Reason: diff}
	default:
		return Decision{Sync: true, Reason: "changed", Diff: diff}
	}
}

// DecodeSnapshot parses a cached snapshot. Blank input decodes to nil.
func DecodeSnapshot(raw string) (*models.ProductSnapshot, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var snap models.ProductSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.ID == "" {
		return nil, fmt.Errorf("failed to decode snapshot: missing id")
	}
	return &snap, nil
}

func EncodeSnapshot(snap models.ProductSnapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(data), nil
}
