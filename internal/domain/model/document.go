package model

import "time"

// Document is the current shortage-response document for a session. Each
// session holds at most one document; saves overwrite.
type Document struct {
	SessionID string
	DrugName  string
	Content   string
	UpdatedAt time.Time
}
