package csvio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/csvio"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
)

func TestExportQuotesEmbeddedCommas(t *testing.T) {
	var buf bytes.Buffer
	contacts := []domain.Contact{
		{ID: "c-1", Name: `Repuestos "El Turbo", C.A.`, Email: "ventas@turbo.ve", Status: "active"},
	}
	if err := csvio.Export(&buf, csvio.ContactColumns, csvio.ContactRows(contacts)); err != nil {
		t.Fatalf("export: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id,name,email,phone,segment,status,tags\n") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, `"Repuestos ""El Turbo"", C.A."`) {
		t.Errorf("expected quoted name field, got %q", out)
	}
}

func TestExportedContactsSurviveReimport(t *testing.T) {
	var buf bytes.Buffer
	contacts := []domain.Contact{
		{ID: "c-1", Name: "Ana, Pérez", Email: "ana@taller.ve", Status: "active", Tags: []string{"vip", "mayor"}},
	}
	if err := csvio.Export(&buf, csvio.ContactColumns, csvio.ContactRows(contacts)); err != nil {
		t.Fatalf("export: %v", err)
	}

	back, rowErrs, err := csvio.ParseContacts(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(back) != 1 || back[0].Contact.Name != "Ana, Pérez" {
		t.Errorf("round trip lost name: %+v", back)
	}
	if len(back[0].Contact.Tags) != 2 || back[0].Contact.Tags[1] != "mayor" {
		t.Errorf("round trip lost tags: %v", back[0].Contact.Tags)
	}
}

func TestParseContactsAcceptsSpanishHeaders(t *testing.T) {
	in := strings.NewReader("Nombre,Correo,Teléfono,Segmento\nAna,ana@taller.ve,0414-5551234,taller\n")
	contacts, rowErrs, err := csvio.ParseContacts(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(contacts))
	}
	c := contacts[0].Contact
	if c.Name != "Ana" || c.Email != "ana@taller.ve" || c.Phone != "0414-5551234" || c.Segment != "taller" {
		t.Errorf("unexpected mapping: %+v", c)
	}
	if c.Status != domain.ContactActive {
		t.Errorf("expected default status active, got %q", c.Status)
	}
}

func TestParseContactsTalliesRowsWithoutName(t *testing.T) {
	in := strings.NewReader("name,email\nAna,ana@x.ve\n,falta@x.ve\nBruno,bruno@x.ve\n")
	contacts, rowErrs, err := csvio.ParseContacts(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 2 {
		t.Errorf("expected row 2 rejected, got %v", rowErrs)
	}
	if contacts[0].Row != 1 || contacts[1].Row != 3 {
		t.Errorf("expected surviving rows to keep file positions 1 and 3, got %d and %d", contacts[0].Row, contacts[1].Row)
	}
}

func TestParseLeadsRejectsBadValueAndPriority(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"nombre,valor,prioridad,etapa",
		"Bueno,1500.50,high,nuevo",
		"MalValor,abc,high,nuevo",
		"ValorNegativo,-10,low,nuevo",
		"MalaPrioridad,100,urgente,nuevo",
		"",
	}, "\n"))

	leads, rowErrs, err := csvio.ParseLeads(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	if leads[0].Lead.Value != 1500.50 || leads[0].Lead.Priority != "high" {
		t.Errorf("unexpected lead: %+v", leads[0])
	}
	if len(rowErrs) != 3 {
		t.Errorf("expected 3 rejected rows, got %v", rowErrs)
	}
}

func TestParseLeadsDefaultsStageAndPriority(t *testing.T) {
	in := strings.NewReader("name\nSolo Nombre\n")
	leads, _, err := csvio.ParseLeads(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	if leads[0].Lead.Stage != domain.StageNew || leads[0].Lead.Priority != domain.PriorityMedium {
		t.Errorf("expected defaults nuevo/medium, got %s/%s", leads[0].Lead.Stage, leads[0].Lead.Priority)
	}
}

func TestParseContactsIgnoresUnknownColumns(t *testing.T) {
	in := strings.NewReader("name,favorite_color\nAna,rojo\n")
	contacts, rowErrs, err := csvio.ParseContacts(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rowErrs) != 0 || len(contacts) != 1 {
		t.Fatalf("expected clean single-row parse, got %d contacts, errs %v", len(contacts), rowErrs)
	}
}
