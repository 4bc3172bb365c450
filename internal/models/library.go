package models

// OwnedBook is a library-held book of a local series, as seen by the tracker.
type OwnedBook struct {
	BookID      int64  `json:"book_id"`
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	LibraryPath string `json:"library_path,omitempty"`
}
