package catalog

import (
	"sort"

	"storesync/internal/docstore"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

// Reconciliation is the transaction for one product plus the variant ids it
// soft-deletes.
type Reconciliation struct {
	Tx              *docstore.Transaction
	DeletedVariants []string
}

// Reconcile builds one transaction that brings the product and its variants
// in line with the commerce data:
//
//   - createIfNotExists for every document, so nothing is re-created;
//   - options are unset before the new fields are set, so stale option
//     entries never survive;
//   - title is only set when missing, keeping editorial changes;
//   - variants known to the store but absent from the payload are marked
//     wasDeleted instead of being removed.
func Reconcile(product *shopify.CatalogProduct, existingVariantIDs []string) Reconciliation {
	tx := docstore.NewTransaction()
	id := product.DocumentID

	tx.CreateIfNotExists(docstore.Document{
		"_id":   id,
		"_type": models.DocumentTypeProduct,
	})
	tx.Unset(id, models.FieldOptions)
	tx.Set(id, product.Fields.Fields(product.VariantIDs()))
	tx.SetIfMissing(id, map[string]interface{}{models.FieldTitle: product.Fields.Title})

	current := make(map[string]bool, len(product.Variants))
	for _, v := range product.Variants {
		current[v.DocumentID] = true

		tx.CreateIfNotExists(docstore.Document{
			"_id":   v.DocumentID,
			"_type": models.DocumentTypeProductVariant,
		})
		tx.Unset(v.DocumentID, models.FieldOptions)
		tx.Set(v.DocumentID, v.Fields.Fields())
		tx.SetIfMissing(v.DocumentID, map[string]interface{}{models.FieldTitle: v.Fields.Title})
	}

	var deleted []string
	for _, existing := range existingVariantIDs {
		if current[existing] {
			continue
		}
		deleted = append(deleted, existing)
	}
	sort.Strings(deleted)
	for _, vid := range deleted {
		tx.Set(vid, map[string]interface{}{models.FieldWasDeleted: true})
	}

	return Reconciliation{Tx: tx, DeletedVariants: deleted}
}

// ReconcileDeletion marks a product and its variants deleted. productExists
// guards the product patch, which would fail on a missing document.
func ReconcileDeletion(productDocID string, productExists bool, variantIDs []string) *docstore.Transaction {
	tx := docstore.NewTransaction()
	if productExists {
		tx.Set(productDocID, map[string]interface{}{models.FieldWasDeleted: true})
	}
	for _, vid := range variantIDs {
		tx.Set(vid, map[string]interface{}{models.FieldWasDeleted: true})
	}
	return tx
}
