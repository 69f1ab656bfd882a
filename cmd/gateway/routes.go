package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/wamtrack/internal/api/http"
	authmw "github.com/mind-engage/wamtrack/internal/auth/middleware"
	"github.com/mind-engage/wamtrack/internal/metrics"
	"github.com/mind-engage/wamtrack/internal/rbac"
	syncx "github.com/mind-engage/wamtrack/internal/sync"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

type deps struct {
	svc     *tracker.Service
	auth    *authmw.AuthService
	events  syncx.Log
	metrics *metrics.Metrics // nil disables /metrics
	origins []string
	ready   func(ctx context.Context) error
}

func newRouter(d deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.metrics != nil {
		r.Use(d.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/register", authmw.RegisterHandler(d.auth, d.svc))
	r.Post("/login", authmw.LoginHandler(d.auth, d.svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.ready != nil {
			if err := d.ready(r.Context()); err != nil {
				rbac.WriteError(w, http.StatusServiceUnavailable, "not ready: "+err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	}

	// Protected API (JWT → stored role → RBAC → ownership)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.auth), authmw.AttachRoleFromStore(d.svc, false))

		subjectOwner := rbac.RequireOwnerOr(rbac.PermAnyOwner, api.SubjectOwner(d.svc))
		assessmentOwner := rbac.RequireOwnerOr(rbac.PermAnyOwner, api.AssessmentOwner(d.svc))

		// subjects; GET /subjects/{id} lists the subjects of user {id}
		pr.With(rbac.Require(rbac.PermSubjectView), rbac.RequireSelf("id")).
			Get("/subjects/{id}", api.ListSubjectsHandler(d.svc))
		pr.With(rbac.Require(rbac.PermSubjectView), subjectOwner).
			Get("/subject/{id}", api.GetSubjectHandler(d.svc))
		pr.With(rbac.Require(rbac.PermSubjectEdit)).
			Post("/subjects", api.CreateSubjectHandler(d.svc))
		pr.With(rbac.Require(rbac.PermSubjectEdit), subjectOwner).
			Put("/subjects/{id}", api.UpdateSubjectHandler(d.svc))
		pr.With(rbac.Require(rbac.PermSubjectEdit), subjectOwner).
			Delete("/subjects/{id}", api.DeleteSubjectHandler(d.svc))

		// assessments; GET /assessments/{id} lists the assessments of subject {id}
		pr.With(rbac.Require(rbac.PermAssessmentView), subjectOwner).
			Get("/assessments/{id}", api.ListAssessmentsHandler(d.svc))
		pr.With(rbac.Require(rbac.PermAssessmentEdit)).
			Post("/assessments", api.CreateAssessmentHandler(d.svc))
		pr.With(rbac.Require(rbac.PermAssessmentEdit), assessmentOwner).
			Put("/assessments/{id}", api.UpdateAssessmentHandler(d.svc))
		pr.With(rbac.Require(rbac.PermAssessmentEdit), assessmentOwner).
			Delete("/assessments/{id}", api.DeleteAssessmentHandler(d.svc))

		// reports
		pr.With(rbac.Require(rbac.PermReportView), subjectOwner).
			Get("/subjects/{id}/report", api.SubjectReportHandler(d.svc))
		pr.With(rbac.Require(rbac.PermReportView), rbac.RequireSelf("id")).
			Get("/users/{id}/report", api.UserReportHandler(d.svc))
		// anyone who may read reports may also read the bands behind them
		gradeView := rbac.RequireAny(rbac.PermSchemeView, rbac.PermReportView)
		pr.With(gradeView).Get("/grading-scheme", api.GradingSchemeHandler(d.svc.Scheme()))
		pr.With(gradeView).Get("/grade", api.GradeHandler(d.svc.Scheme()))

		pr.With(rbac.Require(rbac.PermChangePassword)).
			Post("/users/change-password", api.ChangePasswordHandler(d.auth, d.svc))

		mountAdminRoutes(pr, d)
	})

	return r
}
