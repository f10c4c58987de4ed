package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

func TestDecide(t *testing.T) {
	snap := shopify.NewTransformer().TransformProduct(twoVariantProduct()).Snapshot()
	same := snap

	changed := shopify.NewTransformer().TransformProduct(twoVariantProduct()).Snapshot()
	changed.Price = 1

	tests := []struct {
		name     string
		prev     *models.ProductSnapshot
		next     models.ProductSnapshot
		exists   bool
		wantSync bool
		reason   string
	}{
		{"unchanged", &same, snap, true, false, ReasonUnchanged},
		{"document missing", &same, snap, false, true, ReasonMissing},
		{"no cache", nil, snap, true, true, "no cached snapshot"},
		{"changed", &same, changed, true, true, "changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.prev, tt.next, tt.exists)
			assert.Equal(t, tt.wantSync, d.Sync)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCompareTreatsNilAndEmptyAlike(t *testing.T) {
	a := models.ProductSnapshot{ID: "product-1"}
	b := models.ProductSnapshot{ID: "product-1", Variants: []models.VariantSnapshot{}}
	b.Options = []models.ProductOption{}
	assert.Empty(t, Compare(&a, b))
}

func TestSnapshotEncoding(t *testing.T) {
	snap := shopify.NewTransformer().TransformProduct(twoVariantProduct()).Snapshot()

	raw, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Empty(t, Compare(decoded, snap))

	decoded, err = DecodeSnapshot("  ")
	assert.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DecodeSnapshot(`{"price": 3}`)
	assert.Error(t, err)
	_, err = DecodeSnapshot(`[`)
	assert.Error(t, err)
}
