package domain

// Capabilities is the permission set gating every mutating operation.
// It is derived from the authenticated user's role and checked before
// entity-specific validation.
type Capabilities struct {
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	IsAdmin   bool `json:"is_admin"`
}

// AdminCapabilities grants everything. Used for trusted internal callers.
func AdminCapabilities() Capabilities {
	return Capabilities{CanCreate: true, CanEdit: true, CanDelete: true, IsAdmin: true}
}

// CapabilitiesForRole maps a role to its capability set. Unknown roles
// get no capabilities at all.
func CapabilitiesForRole(role string) Capabilities {
	switch role {
	case RoleAdmin:
		return AdminCapabilities()
	case RoleManager:
		return Capabilities{CanCreate: true, CanEdit: true, CanDelete: true}
	case RoleUser:
		return Capabilities{CanCreate: true, CanEdit: true}
	}
	return Capabilities{}
}
