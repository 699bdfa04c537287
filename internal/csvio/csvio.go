// Package csvio implements RFC-4180 CSV export and import for CRM
// collections. Import accepts several header synonyms (Spanish and
// English) and maps rows into entity-shaped records; the per-row insert
// and tallying loop lives in the service layer.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
)

// Export writes a header row followed by the rows. encoding/csv quotes
// embedded commas, quotes and newlines, so exports survive re-import.
func Export(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ContactColumns is the fixed export header for contacts.
var ContactColumns = []string{"id", "name", "email", "phone", "segment", "status", "tags"}

// ContactRows flattens contacts for Export.
func ContactRows(contacts []domain.Contact) [][]string {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			c.ID, c.Name, c.Email, c.Phone, c.Segment, c.Status,
			strings.Join(c.Tags, ";"),
		})
	}
	return rows
}

// LeadColumns is the fixed export header for leads.
var LeadColumns = []string{"id", "name", "email", "phone", "company", "value", "stage", "priority", "assigned_to"}

// LeadRows flattens leads for Export.
func LeadRows(leads []domain.Lead) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			l.ID, l.Name, l.Email, l.Phone, l.Company,
			strconv.FormatFloat(l.Value, 'f', 2, 64),
			l.Stage, l.Priority, l.AssignedTo,
		})
	}
	return rows
}

// headerSynonyms maps accepted column names to canonical field keys.
var headerSynonyms = map[string]string{
	"name": "name", "nombre": "name",
	"email": "email", "correo": "email",
	"phone": "phone", "telefono": "phone", "teléfono": "phone",
	"company": "company", "empresa": "company",
	"value": "value", "valor": "value",
	"stage": "stage", "etapa": "stage",
	"priority": "priority", "prioridad": "priority",
	"segment": "segment", "segmento": "segment",
	"status": "status", "estado": "status",
	"tags": "tags", "etiquetas": "tags",
}

// RowError reports one failed import row (1-based, excluding header).
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// Summary tallies one import run.
type Summary struct {
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	Rejected int        `json:"rejected"`
	Errors   []RowError `json:"errors,omitempty"`
}

// readRecords reads all rows and returns one map per row keyed by the
// canonical field name. Unknown columns are ignored.
func readRecords(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = headerSynonyms[strings.ToLower(strings.TrimSpace(h))]
	}

	var out []map[string]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec := make(map[string]string)
		for i, v := range row {
			if i < len(keys) && keys[i] != "" {
				rec[keys[i]] = strings.TrimSpace(v)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParsedContact pairs a mapped contact with its 1-based CSV data row,
// so insert failures downstream report the original file line even
// when earlier rows were rejected at parse time.
type ParsedContact struct {
	Row     int
	Contact domain.Contact
}

// ParsedLead pairs a mapped lead with its 1-based CSV data row.
type ParsedLead struct {
	Row  int
	Lead domain.Lead
}

// ParseContacts maps CSV rows to contacts. Rows without a name are
// returned with an error entry instead of a contact so the caller can
// tally them.
func ParseContacts(r io.Reader) ([]ParsedContact, []RowError, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, nil, err
	}

	var contacts []ParsedContact
	var rowErrs []RowError
	for i, rec := range records {
		if rec["name"] == "" {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Err: "nombre requerido"})
			continue
		}
		c := domain.Contact{
			Name:    rec["name"],
			Email:   rec["email"],
			Phone:   rec["phone"],
			Segment: rec["segment"],
			Status:  rec["status"],
		}
		if c.Status == "" {
			c.Status = domain.ContactActive
		}
		if tags := rec["tags"]; tags != "" {
			for _, t := range strings.Split(tags, ";") {
				if t = strings.TrimSpace(t); t != "" {
					c.Tags = append(c.Tags, t)
				}
			}
		}
		contacts = append(contacts, ParsedContact{Row: i + 1, Contact: c})
	}
	return contacts, rowErrs, nil
}

// ParseLeads maps CSV rows to leads.
func ParseLeads(r io.Reader) ([]ParsedLead, []RowError, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, nil, err
	}

	var leads []ParsedLead
	var rowErrs []RowError
	for i, rec := range records {
		if rec["name"] == "" {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Err: "nombre requerido"})
			continue
		}
		l := domain.Lead{
			Name:    rec["name"],
			Email:   rec["email"],
			Phone:   rec["phone"],
			Company: rec["company"],
			Stage:   rec["stage"],
		}
		if v := rec["value"]; v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				rowErrs = append(rowErrs, RowError{Row: i + 1, Err: fmt.Sprintf("valor inválido %q", v)})
				continue
			}
			l.Value = f
		}
		if l.Stage == "" {
			l.Stage = domain.StageNew
		}
		if p := rec["priority"]; p != "" {
			if !domain.ValidPriority(p) {
				rowErrs = append(rowErrs, RowError{Row: i + 1, Err: fmt.Sprintf("prioridad inválida %q", p)})
				continue
			}
			l.Priority = p
		} else {
			l.Priority = domain.PriorityMedium
		}
		leads = append(leads, ParsedLead{Row: i + 1, Lead: l})
	}
	return leads, rowErrs, nil
}
