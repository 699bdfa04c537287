// Package domain holds the CRM entities and shared value types.
// Entities are plain records; all mutation logic lives in the services.
package domain

import "time"

// Contact statuses.
const (
	ContactActive   = "active"
	ContactInactive = "inactive"
)

// Contact segments.
const (
	SegmentRetail    = "minorista"
	SegmentWholesale = "mayorista"
	SegmentWorkshop  = "taller"
	SegmentOther     = "otro"
)

// Contact is a CRM contact record.
type Contact struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	Tags         []string              `json:"tags"`
	Segment      string                `json:"segment"`
	Status       string                `json:"status"`
	CustomFields map[string]FieldValue `json:"custom_fields,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ItemID implements listctl.Item.
func (c Contact) ItemID() string { return c.ID }

// HasTag reports whether the contact carries the given tag.
// Tags have no ordering requirement.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
