package model

import "time"

// Document is a persisted, searchable record created from an uploaded file.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	Author      string    `json:"author"`
	UploadedBy  string    `json:"uploaded_by"`
	Content     string    `json:"content"`
	StoragePath string    `json:"storage_path,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// SearchResult is a lightweight projection of a Document matching a keyword query.
type SearchResult struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Snippet    string    `json:"snippet"`
	UploadedAt time.Time `json:"uploaded_at"`
	Author     string    `json:"author"`
}
