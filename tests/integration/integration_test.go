package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/handler"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/cache"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/configstore"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/resilience"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/supabase"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakePostgREST is an in-memory stand-in for the Supabase REST API.
// It understands the subset of PostgREST the client uses: table GETs
// with eq/in filters, POST with return=representation, PATCH and
// DELETE by filter.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{tables: make(map[string][]map[string]any)}
}

func (f *fakePostgREST) seed(table string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakePostgREST) matches(row map[string]any, query map[string][]string) bool {
	for key, vals := range query {
		switch key {
		case "order", "limit", "select":
			continue
		}
		val := vals[0]
		got := fmt.Sprint(row[key])
		switch {
		case strings.HasPrefix(val, "eq."):
			if got != strings.TrimPrefix(val, "eq.") {
				return false
			}
		case strings.HasPrefix(val, "in.(") && strings.HasSuffix(val, ")"):
			found := false
			for _, want := range strings.Split(val[4:len(val)-1], ",") {
				if got == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	query := r.URL.Query()

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		out := []map[string]any{}
		for _, row := range f.tables[table] {
			if f.matches(row, query) {
				out = append(out, row)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		raw, _ := json.Marshal(out)
		w.Write(raw)

	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.tables[table] = append(f.tables[table], row)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{row})

	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, row := range f.tables[table] {
			if f.matches(row, query) {
				for k, v := range patch {
					row[k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if !f.matches(row, query) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type testEnv struct {
	router http.Handler
	db     *fakePostgREST
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newFakePostgREST()
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte("clave-admin1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	db.seed("user_profiles", map[string]any{
		"id": "usr-admin", "email": "admin@crm.ve", "full_name": "Admin",
		"role": "admin", "is_active": true,
	})
	db.seed("user_credentials", map[string]any{
		"user_id": "usr-admin", "password_hash": string(hash),
	})

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	resilienceCfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	cb := resilience.NewCircuitBreaker("supabase-test")
	bulkhead := resilience.NewBulkhead(4)

	store := supabase.NewClient(server.Client(), server.URL, "anon", "service-role", cb, resilienceCfg, logger)

	cfgStore, err := configstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open config store: %v", err)
	}
	t.Cleanup(func() { cfgStore.Close() })

	pipelineSvc, err := service.NewPipelineService(store, cfgStore, metrics, logger)
	if err != nil {
		t.Fatalf("pipeline service: %v", err)
	}
	authSvc := service.NewAuthService(
		store, store,
		cache.New[*domain.UserProfile](time.Minute),
		metrics, "integration-secret", time.Minute, time.Hour, logger,
	)

	router := handler.NewRouter(handler.Deps{
		Contacts:   service.NewContactsService(store, store, bulkhead, metrics, 1000, logger),
		Leads:      service.NewLeadsService(store, store, store, pipelineSvc, bulkhead, metrics, 1000, logger),
		Pipeline:   pipelineSvc,
		Fields:     service.NewFieldsService(store, logger),
		Scoring:    service.NewScoringService(store, logger),
		Groups:     service.NewGroupsService(store, store, logger),
		Users:      service.NewUsersService(store, store, authSvc, logger),
		Activities: service.NewActivityService(store, logger),
		Auth:       authSvc,
		Metrics:    metrics,
		Logger:     logger,
		CORSOrigin: "*",
	})
	return &testEnv{router: router, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "admin@crm.ve", Password: "clave-admin1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func TestIntegration_ContactLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/contacts", token, domain.Contact{
		Name: "Taller El Rápido", Email: "taller@rapido.ve", Segment: "taller",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contact: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created contact: %v", err)
	}
	if created.ID == "" || created.Status != "active" {
		t.Errorf("unexpected created contact: %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/v1/contacts?segment=taller", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var contacts []domain.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &contacts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Taller El Rápido" {
		t.Fatalf("unexpected list: %+v", contacts)
	}

	rec = env.do(t, http.MethodPost, "/v1/contacts/"+created.ID+"/status", token, map[string]string{"status": "inactive"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/v1/contacts?status=inactive", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &contacts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(contacts) != 1 {
		t.Errorf("expected contact visible under inactive filter, got %+v", contacts)
	}

	rec = env.do(t, http.MethodDelete, "/v1/contacts/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIntegration_LeadThroughPipeline(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/leads", token, domain.Lead{
		Name: "Lote de bujías", Company: "Autopartes VZLA", Value: 1500.50,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lead domain.Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if lead.Stage != domain.StageNew || lead.Priority != domain.PriorityMedium {
		t.Errorf("expected defaults nuevo/medium, got %s/%s", lead.Stage, lead.Priority)
	}

	rec = env.do(t, http.MethodPost, "/v1/pipeline/move", token, map[string]string{
		"lead_id": lead.ID, "stage": domain.StageQualified,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("move: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var board domain.Board
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if board.TotalLeads != 1 {
		t.Errorf("expected 1 lead on board, got %d", board.TotalLeads)
	}
	for _, b := range board.Buckets {
		switch b.Stage.ID {
		case domain.StageQualified:
			if len(b.Leads) != 1 || b.TotalValue != 1500.50 {
				t.Errorf("expected lead with value in calificado, got %+v", b)
			}
		default:
			if len(b.Leads) != 0 {
				t.Errorf("unexpected leads in %s: %+v", b.Stage.ID, b.Leads)
			}
		}
	}

	// Unknown stage is refused without touching the lead.
	rec = env.do(t, http.MethodPost, "/v1/pipeline/move", token, map[string]string{
		"lead_id": lead.ID, "stage": "no_existe",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown stage, got %d", rec.Code)
	}
}

func TestIntegration_CSVRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	csv := strings.Join([]string{
		"nombre,correo,segmento",
		"Ana,ana@x.ve,taller",
		",sin-nombre@x.ve,taller",
		"Bruno,bruno@x.ve,minorista",
		"",
	}, "\n")

	req := httptest.NewRequest(http.MethodPost, "/v1/contacts/import", strings.NewReader(csv))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		Total    int `json:"total"`
		Imported int `json:"imported"`
		Rejected int `json:"rejected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Total != 3 || summary.Imported != 2 || summary.Rejected != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	rec = env.do(t, http.MethodGet, "/v1/contacts/export.csv", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header plus 2 rows, got %d lines", len(lines))
	}
}

func TestIntegration_CustomFieldsGateContactWrites(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/fields", token, domain.CustomField{
		Label: "RIF", FieldType: domain.FieldText, EntityType: domain.EntityContact, IsRequired: true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create field: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Missing required field.
	rec = env.do(t, http.MethodPost, "/v1/contacts", token, domain.Contact{
		Name:         "Sin RIF",
		CustomFields: map[string]domain.FieldValue{"otro": domain.TextValue("x")},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for undeclared custom field, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/v1/contacts", token, domain.Contact{
		Name:         "Con RIF",
		CustomFields: map[string]domain.FieldValue{"rif": domain.TextValue("J-12345678-9")},
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with valid custom field, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIntegration_InvitationFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/users/invitations", token, map[string]string{
		"email": "nueva@crm.ve", "role": "manager",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var inv domain.Invitation
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode invitation: %v", err)
	}
	if inv.Token == "" {
		t.Fatal("expected plaintext token in invite response")
	}

	rec = env.do(t, http.MethodPost, "/v1/users/invitations/accept", "", domain.AcceptInvitationRequest{
		Token: inv.Token, FullName: "Nueva Operadora", Password: "clave-nueva1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("accept: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "nueva@crm.ve", Password: "clave-nueva1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as invited user: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.User.Role != "manager" || resp.Capabilities.IsAdmin {
		t.Errorf("unexpected invited session: role=%s caps=%+v", resp.User.Role, resp.Capabilities)
	}
}
