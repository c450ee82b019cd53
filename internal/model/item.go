package model

import "time"

// DefaultScope is the scope used when the caller does not name one
const DefaultScope = "public"

// Item is one tracked task carrying a category label
type Item struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SessionID string     `gorm:"size:64;index;not null;default:public" json:"session_id"` // Consolidation scope
	Text      string     `gorm:"not null" json:"text"`
	Label     string     `gorm:"size:50;index" json:"label"`
	Priority  int        `gorm:"not null;default:3" json:"priority"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Status    string     `gorm:"size:16;not null;default:open" json:"status"` // "open" or "done"
	CreatedAt time.Time  `json:"created_at"`
}

// Item statuses
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// LabelCount is a distinct label with the number of items carrying it
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelText pairs an item's label with its text, the centroid input unit
type LabelText struct {
	Label string
	Text  string
}

// Rename maps one label onto its canonical label
type Rename struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Score float64 `json:"score"` // Centroid similarity of From and To; below the merge threshold when From joined through another label
}
