// Package search keeps the hosted search index in step with CMS documents.
package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"storesync/internal/docstore"
)

const draftPrefix = "drafts."

// CMSDocument is the subset of a CMS document that feeds the search index.
type CMSDocument struct {
	ID           string          `json:"_id"`
	Type         string          `json:"_type"`
	Title        string          `json:"title"`
	ShopifyTitle string          `json:"shopifyTitle"`
	Slug         Slug            `json:"slug"`
	Excerpt      string          `json:"excerpt"`
	Summary      string          `json:"summary"`
	Body         json.RawMessage `json:"body"`
	Tags         []string        `json:"tags"`
	MainImage    *Image          `json:"mainImage"`
	Price        int64           `json:"price"`
	InStock      bool            `json:"inStock"`
	IsDraft      bool            `json:"isDraft"`
	WasDeleted   bool            `json:"wasDeleted"`
	PublishedAt  string          `json:"publishedAt"`
	UpdatedAt    string          `json:"_updatedAt"`
}

// Slug accepts both a plain string and the {"current": "..."} object form.
type Slug string

func (s *Slug) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Slug(v)
		return nil
	}
	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid slug: %w", err)
	}
	*s = Slug(obj.Current)
	return nil
}

// Image keeps the resolved URL only. Inline placeholders such as LQIP data
// never reach the index.
type Image struct {
	URL   string `json:"url"`
	Asset *struct {
		URL string `json:"url"`
	} `json:"asset"`
}

func (i *Image) resolvedURL() string {
	if i == nil {
		return ""
	}
	if i.URL != "" {
		return i.URL
	}
	if i.Asset != nil {
		return i.Asset.URL
	}
	return ""
}

// IsDraftDocument reports unpublished documents, flagged or living under drafts.*.
func (d *CMSDocument) IsDraftDocument() bool {
	return d.IsDraft || strings.HasPrefix(d.ID, draftPrefix)
}

func (d *CMSDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document is missing _id")
	}
	if d.Type == "" {
		return fmt.Errorf("document %s is missing _type", d.ID)
	}
	return nil
}

func (d *CMSDocument) displayTitle() string {
	if strings.TrimSpace(d.Title) != "" {
		return d.Title
	}
	return d.ShopifyTitle
}

// ParseDocument decodes a webhook body into a CMSDocument.
func ParseDocument(body []byte) (*CMSDocument, error) {
	var doc CMSDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FromStore converts a stored document.
func FromStore(doc docstore.Document) (*CMSDocument, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", doc.ID(), err)
	}
	return ParseDocument(data)
}

// PlainText flattens a body that is either a string or an array of portable
// text blocks. Non-text blocks are dropped, code blocks keep their code.
func PlainText(body json.RawMessage) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return ""
	}
	if body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}

	var blocks []struct {
		Type     string `json:"_type"`
		Code     string `json:"code"`
		Children []struct {
			Text string `json:"text"`
		} `json:"children"`
	}
	if err := json.Unmarshal(body, &blocks); err != nil {
		return ""
	}

	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		var sb strings.Builder
		switch block.Type {
		case "block":
			for _, child := range block.Children {
				sb.WriteString(child.Text)
			}
		case "code":
			sb.WriteString(block.Code)
		default:
			continue
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
