package core

// SearchResult represents a retrieved note with a relevance score and arbitrary metadata.
type SearchResult struct {
	ID       string
	Author   string
	Content  string
	Score    float64
	Metadata map[string]any
}
