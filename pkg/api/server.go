// Package api exposes the access engine and report service over HTTP.
package api

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/hierarchy"
	"github.com/safetypulse/safetypulse/pkg/identity"
	"github.com/safetypulse/safetypulse/pkg/observability"
	"github.com/safetypulse/safetypulse/pkg/reports"
)

// AdminStore is the administrative persistence surface behind the
// /admin endpoints.
type AdminStore interface {
	UpsertUserRole(ctx context.Context, record *accesscontrol.UserRoleRecord) error
	DeactivateUserRole(ctx context.Context, email string) error
	UpsertRolePermission(ctx context.Context, record *accesscontrol.RolePermissionRecord) error
}

// Server wires the HTTP routes to the resolvers and services.
type Server struct {
	router     *mux.Router
	sessions   identity.SessionProvider
	access     *accesscontrol.UserAccessResolver
	catalog    *hierarchy.Loader
	reports    *reports.Service
	adminStore AdminStore
	menu       []accesscontrol.MenuItem
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMenu sets the menu items served by the capability endpoint.
func WithMenu(items []accesscontrol.MenuItem) ServerOption {
	return func(s *Server) { s.menu = items }
}

// WithMetrics attaches the metrics registry and HTTP instrumentation.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithAdminStore enables the /admin endpoints.
func WithAdminStore(store AdminStore) ServerOption {
	return func(s *Server) { s.adminStore = store }
}

// NewServer creates the API server and registers all routes.
func NewServer(
	sessions identity.SessionProvider,
	access *accesscontrol.UserAccessResolver,
	catalog *hierarchy.Loader,
	reportSvc *reports.Service,
	opts ...ServerOption,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		sessions: sessions,
		access:   access,
		catalog:  catalog,
		reports:  reportSvc,
		menu:     DefaultMenu(),
		logger:   observability.NewLogger(observability.InfoLevel, os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requestIDMiddleware)
	if s.metrics != nil {
		api.Use(s.metrics.HTTPMiddleware)
	}
	api.Use(s.sessionMiddleware)

	// Access resolution
	api.HandleFunc("/access/me", s.getAccess).Methods("GET")
	api.HandleFunc("/access/me/plants", s.getPlants).Methods("GET")
	api.HandleFunc("/access/me/menu", s.getMenu).Methods("GET")

	// Reports
	api.HandleFunc("/reports", s.createReport).Methods("POST")
	api.HandleFunc("/reports", s.listReports).Methods("GET")
	api.HandleFunc("/reports/{id}", s.getReport).Methods("GET")
	api.HandleFunc("/reports/{id}/close", s.closeReport).Methods("POST")
	api.HandleFunc("/reports/{id}/attachments", s.uploadAttachment).Methods("POST")
	api.HandleFunc("/reports/{id}/attachments/{key:.+}", s.downloadAttachment).Methods("GET")

	// Recognitions
	api.HandleFunc("/recognitions", s.submitRecognition).Methods("POST")
	api.HandleFunc("/recognitions", s.listRecognitions).Methods("GET")

	// Administration
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/users", s.upsertUserRole).Methods("PUT")
	admin.HandleFunc("/users/{email}", s.deactivateUserRole).Methods("DELETE")
	admin.HandleFunc("/roles/{roleTitle}", s.upsertRolePermission).Methods("PUT")
	admin.HandleFunc("/catalog/reload", s.reloadCatalog).Methods("POST")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
