package core

// NoteStore keeps short findings that agents of one run share with each other.
// Implementations must be thread-safe: specialists of a parallel round write
// concurrently.
type NoteStore interface {
	Store(runID, author, content string, metadata map[string]any) (string, error)
	Search(runID, query string, limit int) ([]SearchResult, error)
}
