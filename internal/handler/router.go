package handler

import (
	"net/http"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Contacts   *service.ContactsService
	Leads      *service.LeadsService
	Pipeline   *service.PipelineService
	Fields     *service.FieldsService
	Scoring    *service.ScoringService
	Groups     *service.GroupsService
	Users      *service.UsersService
	Activities *service.ActivityService
	Auth       *service.AuthService

	Metrics    *observability.Metrics
	Logger     *zap.Logger
	CORSOrigin string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Everything under /v1 except the auth and invitation-accept endpoints
// requires a Bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Fields, d.Logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public: login, token rotation, invitation redemption.
		r.Post("/auth/login", authLoginHandler(d.Auth, d.Logger))
		r.Post("/auth/refresh", authRefreshHandler(d.Auth, d.Logger))
		r.Post("/users/invitations/accept", acceptInvitationHandler(d.Users, d.Logger))

		// Everything else requires a session.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

			r.Post("/auth/logout", authLogoutHandler(d.Auth, d.Logger))
			r.Get("/auth/me", authMeHandler(d.Auth, d.Logger))
			r.Put("/auth/password", authChangePasswordHandler(d.Auth, d.Logger))

			// Contacts
			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", listContactsHandler(d.Contacts, d.Logger))
				r.Post("/", createContactHandler(d.Contacts, d.Logger))
				r.Get("/export.csv", exportContactsHandler(d.Contacts, d.Logger))
				r.Post("/import", importContactsHandler(d.Contacts, d.Logger))
				r.Post("/bulk/delete", bulkDeleteContactsHandler(d.Contacts, d.Logger))
				r.Post("/bulk/update", bulkUpdateContactsHandler(d.Contacts, d.Logger))
				r.Patch("/{contactId}", updateContactHandler(d.Contacts, d.Logger))
				r.Post("/{contactId}/status", setContactStatusHandler(d.Contacts, d.Logger))
				r.Delete("/{contactId}", deleteContactHandler(d.Contacts, d.Logger))
			})

			// Leads
			r.Route("/leads", func(r chi.Router) {
				r.Get("/", listLeadsHandler(d.Leads, d.Logger))
				r.Post("/", createLeadHandler(d.Leads, d.Logger))
				r.Get("/export.csv", exportLeadsHandler(d.Leads, d.Logger))
				r.Post("/import", importLeadsHandler(d.Leads, d.Logger))
				r.Post("/bulk/delete", bulkDeleteLeadsHandler(d.Leads, d.Logger))
				r.Post("/bulk/update", bulkUpdateLeadsHandler(d.Leads, d.Logger))
				r.Patch("/{leadId}", updateLeadHandler(d.Leads, d.Logger))
				r.Post("/{leadId}/priority", setLeadPriorityHandler(d.Leads, d.Logger))
				r.Get("/{leadId}/score-history", leadScoreHistoryHandler(d.Leads, d.Logger))
				r.Delete("/{leadId}", deleteLeadHandler(d.Leads, d.Logger))
			})

			// Pipeline
			r.Route("/pipeline", func(r chi.Router) {
				r.Get("/board", pipelineBoardHandler(d.Pipeline, d.Logger))
				r.Post("/move", pipelineMoveHandler(d.Pipeline, d.Logger))
				r.Get("/stages", listStagesHandler(d.Pipeline))
				r.Post("/stages", addStageHandler(d.Pipeline, d.Logger))
				r.Post("/stages/reorder", reorderStagesHandler(d.Pipeline, d.Logger))
				r.Post("/stages/reset", resetStagesHandler(d.Pipeline, d.Logger))
				r.Patch("/stages/{stageId}", updateStageHandler(d.Pipeline, d.Logger))
				r.Delete("/stages/{stageId}", removeStageHandler(d.Pipeline, d.Logger))
			})

			// Custom fields
			r.Route("/fields", func(r chi.Router) {
				r.Get("/", listFieldsHandler(d.Fields, d.Logger))
				r.Post("/", createFieldHandler(d.Fields, d.Logger))
				r.Patch("/{fieldId}", updateFieldHandler(d.Fields, d.Logger))
				r.Delete("/{fieldId}", deleteFieldHandler(d.Fields, d.Logger))
			})

			// Scoring rules
			r.Route("/scoring/rules", func(r chi.Router) {
				r.Get("/", listRulesHandler(d.Scoring, d.Logger))
				r.Post("/", createRuleHandler(d.Scoring, d.Logger))
				r.Patch("/{ruleId}", updateRuleHandler(d.Scoring, d.Logger))
				r.Post("/{ruleId}/active", setRuleActiveHandler(d.Scoring, d.Logger))
				r.Delete("/{ruleId}", deleteRuleHandler(d.Scoring, d.Logger))
			})

			// Groups & tags
			r.Route("/groups", func(r chi.Router) {
				r.Get("/", listGroupsHandler(d.Groups, d.Logger))
				r.Post("/", createGroupHandler(d.Groups, d.Logger))
				r.Patch("/{groupId}", updateGroupHandler(d.Groups, d.Logger))
				r.Post("/{groupId}/active", setGroupActiveHandler(d.Groups, d.Logger))
				r.Delete("/{groupId}", deleteGroupHandler(d.Groups, d.Logger))
				r.Get("/{groupId}/members", listGroupMembersHandler(d.Groups, d.Logger))
				r.Post("/{groupId}/members", addGroupMemberHandler(d.Groups, d.Logger))
				r.Delete("/{groupId}/members/{contactId}", removeGroupMemberHandler(d.Groups, d.Logger))
			})
			r.Route("/tags", func(r chi.Router) {
				r.Get("/", listTagsHandler(d.Groups, d.Logger))
				r.Post("/", createTagHandler(d.Groups, d.Logger))
				r.Patch("/{tagId}", updateTagHandler(d.Groups, d.Logger))
				r.Delete("/{tagId}", deleteTagHandler(d.Groups, d.Logger))
			})

			// Activity log
			r.Route("/activities/{entityType}/{entityId}", func(r chi.Router) {
				r.Get("/", listActivitiesHandler(d.Activities, d.Logger))
				r.Post("/", appendActivityHandler(d.Activities, d.Logger))
			})

			// Administration
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/users", listUsersHandler(d.Users, d.Logger))
				r.Patch("/users/{userId}", updateUserHandler(d.Users, d.Logger))
				r.Delete("/users/{userId}", deleteUserHandler(d.Users, d.Logger))
				r.Get("/users/invitations", listInvitationsHandler(d.Users, d.Logger))
				r.Post("/users/invitations", inviteUserHandler(d.Users, d.Logger))
				r.Delete("/users/invitations/{invitationId}", revokeInvitationHandler(d.Users, d.Logger))
				r.Get("/metrics/summary", usageMetricsHandler(d.Metrics))
			})
		})
	})

	return r
}

// healthzHandler reports aggregate health, probing the remote database
// with a cheap read.
func healthzHandler(fields *service.FieldsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "crm-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		_, err := fields.List(ctx, nil)
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			status = "degraded"
			logger.Warn("healthz: database probe failed", zap.Error(err))
		}
		services = append(services, domain.ServiceHealth{
			Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overall := "healthy"
		code := http.StatusOK
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}
		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func usageMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetUsageSnapshot())
	}
}
