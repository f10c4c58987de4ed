package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps documents in process. Used for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]Document
	commits int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc)
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.docs[id]
	return ok, nil
}

func (s *MemoryStore) ListByType(ctx context.Context, docType string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, id := range s.sortedIDs() {
		doc := s.docs[id]
		if doc.Type() != docType {
			continue
		}
		clone, err := cloneDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

func (s *MemoryStore) ListIDs(ctx context.Context, docType, field string, value interface{}) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.sortedIDs() {
		doc := s.docs[id]
		if doc.Type() != docType {
			continue
		}
		if v, ok := doc[field]; ok && sameValue(v, value) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Commit applies every mutation to a private working set and publishes the
// result only when all of them succeed.
func (s *MemoryStore) Commit(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ws := newWorkingSet(func(id string) (Document, bool, error) {
		doc, ok := s.docs[id]
		if !ok {
			return nil, false, nil
		}
		clone, err := cloneDocument(doc)
		return clone, true, err
	})
	for _, m := range tx.Mutations {
		if err := ws.apply(m); err != nil {
			return err
		}
	}
	for _, doc := range ws.dirty() {
		s.docs[doc.ID()] = doc
	}
	s.commits++
	return nil
}

// Delete removes a document outside of any transaction, the way an editor
// deleting a record by hand would.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// Commits reports how many transactions have been committed.
func (s *MemoryStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
