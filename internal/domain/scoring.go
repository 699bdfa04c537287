package domain

import "time"

// Scoring rule condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
)

// ScoringRule is an operator-authored condition/points rule.
// Rules are stored and toggled here; evaluation against entities is a
// separate concern and is not part of this service.
type ScoringRule struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	EntityType        string    `json:"entity_type"`
	ConditionField    string    `json:"condition_field"`
	ConditionOperator string    `json:"condition_operator"`
	ConditionValue    string    `json:"condition_value,omitempty"`
	Points            int       `json:"points"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (r ScoringRule) ItemID() string { return r.ID }

// NeedsConditionValue reports whether the rule's operator requires a
// condition value. Emptiness checks are the only operators without one.
func (r ScoringRule) NeedsConditionValue() bool {
	return r.ConditionOperator != OpIsEmpty && r.ConditionOperator != OpIsNotEmpty
}

// ValidOperator reports whether op is a known condition operator.
func ValidOperator(op string) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// ScoreEntry is one row of the score history for a lead. Read-only to
// this service: rows are written by whatever evaluates the rules.
type ScoreEntry struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	Points    int       `json:"points"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
