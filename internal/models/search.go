package models

// SearchIndexRecord is the size-bounded projection pushed to the search index.
// ObjectID is the CMS document id.
type SearchIndexRecord struct {
	ObjectID    string   `json:"objectID"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Content     string   `json:"content,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Price       int64    `json:"price,omitempty"`
	InStock     bool     `json:"inStock,omitempty"`
	PublishedAt string   `json:"publishedAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}
