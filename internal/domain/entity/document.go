package entity

import "time"

// Document is the workflow engine's narrow view of a managed document:
// identity plus the status field the engine mutates. Content, versions
// and files live elsewhere.
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
