package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Custom field types.
const (
	FieldText        = "text"
	FieldNumber      = "number"
	FieldDate        = "date"
	FieldBoolean     = "boolean"
	FieldSelect      = "select"
	FieldMultiSelect = "multiselect"
)

// Entity types a custom field can attach to.
const (
	EntityContact = "contact"
	EntityLead    = "lead"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// CustomField is an admin-configured field definition. Name is a slug
// unique per entity type; Options is required non-empty for select and
// multiselect types.
type CustomField struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Label        string    `json:"label"`
	FieldType    string    `json:"field_type"`
	EntityType   string    `json:"entity_type"`
	Options      []string  `json:"options,omitempty"`
	IsRequired   bool      `json:"is_required"`
	IsVisible    bool      `json:"is_visible"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (f CustomField) ItemID() string { return f.ID }

// NeedsOptions reports whether the field type requires an options list.
func (f CustomField) NeedsOptions() bool {
	return f.FieldType == FieldSelect || f.FieldType == FieldMultiSelect
}

// ValidFieldType reports whether t is a known field type.
func ValidFieldType(t string) bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldBoolean, FieldSelect, FieldMultiSelect:
		return true
	}
	return false
}

// SlugifyFieldName normalizes a free-form field name into the required
// ^[a-z0-9_]+$ form: lowercased, every other rune replaced by '_'.
// "Campo Cliente!" becomes "campo_cliente_".
func SlugifyFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ValidSlug reports whether name already satisfies the slug pattern.
func ValidSlug(name string) bool {
	return slugPattern.MatchString(name)
}

// FieldValue is a typed custom-field value: exactly one variant is set,
// selected by Type. It replaces the untyped extension bag with a tagged
// union validated against the CustomField registry at write time.
type FieldValue struct {
	Type    string
	Text    string
	Number  float64
	Date    time.Time
	Bool    bool
	Choice  string
	Choices []string
}

// wire format: {"type":"number","value":12.5}
type fieldValueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value in tagged form.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	var inner any
	switch v.Type {
	case FieldText:
		inner = v.Text
	case FieldNumber:
		inner = v.Number
	case FieldDate:
		inner = v.Date.Format("2006-01-02")
	case FieldBoolean:
		inner = v.Bool
	case FieldSelect:
		inner = v.Choice
	case FieldMultiSelect:
		inner = v.Choices
	default:
		return nil, fmt.Errorf("unknown field value type %q", v.Type)
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldValueJSON{Type: v.Type, Value: raw})
}

// UnmarshalJSON decodes the tagged form.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var wire fieldValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := FieldValue{Type: wire.Type}
	switch wire.Type {
	case FieldText:
		if err := json.Unmarshal(wire.Value, &out.Text); err != nil {
			return err
		}
	case FieldNumber:
		if err := json.Unmarshal(wire.Value, &out.Number); err != nil {
			return err
		}
	case FieldDate:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			t, err = time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid date value %q", s)
			}
		}
		out.Date = t
	case FieldBoolean:
		if err := json.Unmarshal(wire.Value, &out.Bool); err != nil {
			return err
		}
	case FieldSelect:
		if err := json.Unmarshal(wire.Value, &out.Choice); err != nil {
			return err
		}
	case FieldMultiSelect:
		if err := json.Unmarshal(wire.Value, &out.Choices); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown field value type %q", wire.Type)
	}
	*v = out
	return nil
}

// TextValue and friends build FieldValue variants.
func TextValue(s string) FieldValue      { return FieldValue{Type: FieldText, Text: s} }
func NumberValue(n float64) FieldValue   { return FieldValue{Type: FieldNumber, Number: n} }
func DateValue(t time.Time) FieldValue   { return FieldValue{Type: FieldDate, Date: t} }
func BoolValue(b bool) FieldValue        { return FieldValue{Type: FieldBoolean, Bool: b} }
func ChoiceValue(c string) FieldValue    { return FieldValue{Type: FieldSelect, Choice: c} }
func ChoicesValue(c []string) FieldValue { return FieldValue{Type: FieldMultiSelect, Choices: c} }

// ValidateAgainst checks a custom-field value map against the declared
// definitions for one entity type. It rejects unknown names, type
// mismatches, missing required fields and choices outside the declared
// options. Definitions for other entity types must be filtered out by
// the caller.
func ValidateAgainst(defs []CustomField, values map[string]FieldValue) error {
	byName := make(map[string]CustomField, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	for name, val := range values {
		def, ok := byName[name]
		if !ok {
			return &ErrValidation{Field: name, Message: "campo no definido"}
		}
		if def.FieldType != val.Type {
			return &ErrValidation{Field: name, Message: fmt.Sprintf("se esperaba tipo %s, llegó %s", def.FieldType, val.Type)}
		}
		switch def.FieldType {
		case FieldSelect:
			if !contains(def.Options, val.Choice) {
				return &ErrValidation{Field: name, Message: fmt.Sprintf("opción inválida %q", val.Choice)}
			}
		case FieldMultiSelect:
			for _, c := range val.Choices {
				if !contains(def.Options, c) {
					return &ErrValidation{Field: name, Message: fmt.Sprintf("opción inválida %q", c)}
				}
			}
		}
	}

	for _, def := range byName {
		if def.IsRequired {
			if _, ok := values[def.Name]; !ok {
				return &ErrValidation{Field: def.Name, Message: "campo obligatorio"}
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
