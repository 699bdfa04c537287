package domain

import "time"

// Lead priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Lead is a sales opportunity moving through the pipeline.
// Stage must reference a configured pipeline stage id; Value is a
// non-negative currency amount.
type Lead struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email,omitempty"`
	Phone        string                `json:"phone"`
	Company      string                `json:"company"`
	Value        float64               `json:"value"`
	Stage        string                `json:"stage"`
	Priority     string                `json:"priority"`
	AssignedTo   string                `json:"assigned_to,omitempty"`
	Score        *int                  `json:"score,omitempty"`
	CustomFields map[string]FieldValue `json:"custom_fields,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ItemID implements listctl.Item.
func (l Lead) ItemID() string { return l.ID }

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
