package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// workingSet applies a transaction's mutations in memory before a backend
// persists the touched documents.
type workingSet struct {
	docs    map[string]Document
	existed map[string]bool
	order   []string
	load    func(id string) (Document, bool, error)
}

func newWorkingSet(load func(id string) (Document, bool, error)) *workingSet {
	return &workingSet{
		docs:    make(map[string]Document),
		existed: make(map[string]bool),
		load:    load,
	}
}

func (w *workingSet) get(id string) (Document, error) {
	if doc, ok := w.docs[id]; ok {
		return doc, nil
	}
	doc, exists, err := w.load(id)
	if err != nil {
		return nil, err
	}
	w.existed[id] = exists
	if exists {
		w.track(id, doc)
	}
	return doc, nil
}

func (w *workingSet) track(id string, doc Document) {
	if _, ok := w.docs[id]; !ok {
		w.order = append(w.order, id)
	}
	w.docs[id] = doc
}

func (w *workingSet) apply(m Mutation) error {
	if err := m.validate(); err != nil {
		return &StoreError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	if m.CreateIfNotExists != nil {
		id := m.CreateIfNotExists.ID()
		existing, err := w.get(id)
		if err != nil {
			return err
		}
		if existing == nil {
			doc, err := cloneDocument(m.CreateIfNotExists)
			if err != nil {
				return &StoreError{StatusCode: http.StatusBadRequest, Message: "invalid document", Err: err}
			}
			w.track(id, doc)
		}
		return nil
	}

	doc, err := w.get(m.Patch.ID)
	if err != nil {
		return err
	}
	if doc == nil {
		return &StoreError{
			StatusCode: http.StatusConflict,
			Message:    fmt.Sprintf("cannot patch missing document %q", m.Patch.ID),
		}
	}
	return applyPatch(doc, m.Patch)
}

func (w *workingSet) dirty() []Document {
	out := make([]Document, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.docs[id])
	}
	return out
}

func applyPatch(doc Document, p *Patch) error {
	set, err := cloneFields(p.Set)
	if err != nil {
		return &StoreError{StatusCode: http.StatusBadRequest, Message: "invalid set value", Err: err}
	}
	for k, v := range set {
		if k == "_id" || k == "_type" {
			continue
		}
		doc[k] = v
	}

	setIfMissing, err := cloneFields(p.SetIfMissing)
	if err != nil {
		return &StoreError{StatusCode: http.StatusBadRequest, Message: "invalid setIfMissing value", Err: err}
	}
	for k, v := range setIfMissing {
		if cur, ok := doc[k]; !ok || cur == nil {
			doc[k] = v
		}
	}

	for _, k := range p.Unset {
		if k == "_id" || k == "_type" {
			continue
		}
		delete(doc, k)
	}
	return nil
}

// decodeDocument keeps numbers as json.Number so int64 ids survive round trips.
func decodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func cloneDocument(doc Document) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data)
}

func cloneFields(fields map[string]interface{}) (map[string]interface{}, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	doc, err := cloneDocument(Document(fields))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// sameValue compares scalar JSON values across numeric representations.
func sameValue(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
