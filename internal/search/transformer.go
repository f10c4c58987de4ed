package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"storesync/internal/logger"
	"storesync/internal/models"
)

const (
	ContentLimit = 5000
	ExcerptLimit = 1000
	// RecordSizeWarning is kept under the index's 10KB record ceiling.
	RecordSizeWarning = 9000
)

type Transformer struct {
	logger *logger.Logger
}

func NewTransformer(logger *logger.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform builds the index record for doc. Text fields are capped before
// the record is sized; a record that is still large is logged, not rejected.
func (t *Transformer) Transform(doc *CMSDocument) models.SearchIndexRecord {
	record := models.SearchIndexRecord{
		ObjectID:    doc.ID,
		Type:        doc.Type,
		Title:       doc.displayTitle(),
		Slug:        string(doc.Slug),
		Excerpt:     truncate(doc.Excerpt, ExcerptLimit),
		Summary:     truncate(doc.Summary, ExcerptLimit),
		Content:     truncate(PlainText(doc.Body), ContentLimit),
		Tags:        doc.Tags,
		ImageURL:    doc.MainImage.resolvedURL(),
		Price:       doc.Price,
		InStock:     doc.InStock,
		PublishedAt: doc.PublishedAt,
		UpdatedAt:   doc.UpdatedAt,
	}

	if size := RecordSize(record); size > RecordSizeWarning {
		t.logger.Warn("Search record %s is %d bytes, above the %d byte guideline", record.ObjectID, size, RecordSizeWarning)
	}
	return record
}

// RecordSize is the serialized size of record in bytes. Markup characters
// are counted as themselves, the way the index stores them.
func RecordSize(record models.SearchIndexRecord) int {
	data, err := encodeRecord(record)
	if err != nil {
		return 0
	}
	return len(data)
}

// encodeRecord marshals record without escaping <, > and &.
func encodeRecord(record models.SearchIndexRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// truncate cuts s to at most limit characters, never splitting a rune.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
