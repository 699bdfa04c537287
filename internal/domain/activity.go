package domain

import "time"

// Activity types.
const (
	ActivityNote    = "note"
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
)

// Activity is a free-text interaction log entry attached to a contact
// or lead. Append-only; ids are ULIDs so listing by id is listing by
// time.
type Activity struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Type       string    `json:"type"`
	Notes      string    `json:"notes"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}
