package domain

import "time"

// Group is a named contact segment. MemberCount is derived from the
// join table and read-only here.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	IsActive    bool      `json:"is_active"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (g Group) ItemID() string { return g.ID }

// GroupMember is one contact-to-group join record.
type GroupMember struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	ContactID string    `json:"contact_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Tag is a reusable label. UsageCount is derived and read-only here.
type Tag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	IsActive   bool      `json:"is_active"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (t Tag) ItemID() string { return t.ID }
