// Package docstore is the content document store the catalog and search sync
// write to. Writes are expressed as transactions of createIfNotExists and patch
// mutations that commit atomically.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

// Document is a JSON document. Every document carries "_id" and "_type".
type Document map[string]interface{}

func (d Document) ID() string {
	id, _ := d["_id"].(string)
	return id
}

func (d Document) Type() string {
	t, _ := d["_type"].(string)
	return t
}

// Store is implemented by every document store backend.
type Store interface {
	Get(ctx context.Context, id string) (Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByType(ctx context.Context, docType string) ([]Document, error)
	// ListIDs returns the ids of documents of docType whose top-level field equals value.
	ListIDs(ctx context.Context, docType, field string, value interface{}) ([]string, error)
	Commit(ctx context.Context, tx *Transaction) error
	Close(ctx context.Context) error
}

// StoreError is a failed write on the authoritative path. StatusCode follows
// HTTP semantics so it can be surfaced to webhook callers as-is.
type StoreError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document store error (%d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("document store error (%d): %s", e.StatusCode, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Patch holds field operations on one existing document. Within a single
// patch they apply in the order set, setIfMissing, unset.
type Patch struct {
	ID           string                 `json:"id"`
	Set          map[string]interface{} `json:"set,omitempty"`
	SetIfMissing map[string]interface{} `json:"setIfMissing,omitempty"`
	Unset        []string               `json:"unset,omitempty"`
}

// Mutation is exactly one of CreateIfNotExists or Patch.
type Mutation struct {
	CreateIfNotExists Document `json:"createIfNotExists,omitempty"`
	Patch             *Patch   `json:"patch,omitempty"`
}

type Transaction struct {
	ID        string
	Mutations []Mutation
}

func NewTransaction() *Transaction {
	return &Transaction{ID: uuid.New().String()}
}

func (t *Transaction) CreateIfNotExists(doc Document) *Transaction {
	t.Mutations = append(t.Mutations, Mutation{CreateIfNotExists: doc})
	return t
}

func (t *Transaction) Set(id string, fields map[string]interface{}) *Transaction {
	t.Mutations = append(t.Mutations, Mutation{Patch: &Patch{ID: id, Set: fields}})
	return t
}

func (t *Transaction) SetIfMissing(id string, fields map[string]interface{}) *Transaction {
	t.Mutations = append(t.Mutations, Mutation{Patch: &Patch{ID: id, SetIfMissing: fields}})
	return t
}

func (t *Transaction) Unset(id string, fields ...string) *Transaction {
	t.Mutations = append(t.Mutations, Mutation{Patch: &Patch{ID: id, Unset: fields}})
	return t
}

func (t *Transaction) Len() int {
	return len(t.Mutations)
}

func (m Mutation) validate() error {
	switch {
	case m.CreateIfNotExists != nil && m.Patch != nil:
		return fmt.Errorf("mutation has both createIfNotExists and patch")
	case m.CreateIfNotExists != nil:
		if m.CreateIfNotExists.ID() == "" || m.CreateIfNotExists.Type() == "" {
			return fmt.Errorf("createIfNotExists requires _id and _type")
		}
	case m.Patch != nil:
		if m.Patch.ID == "" {
			return fmt.Errorf("patch requires an id")
		}
	default:
		return fmt.Errorf("empty mutation")
	}
	return nil
}
