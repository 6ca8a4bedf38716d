package types

// Document is the stored metadata of a resume or cover letter file. The chat
// core never parses the file itself; it hands URL and filetype to the text
// extractor.
type Document struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"user_id" db:"user_id"`
	DocType   ResourceType `json:"doc_type" db:"doc_type"`
	Title     string       `json:"title" db:"title"`
	URL       string       `json:"url" db:"url"`
	Filetype  string       `json:"filetype" db:"filetype"`
	CreatedAt int64        `json:"created_at" db:"created_at"`
}
