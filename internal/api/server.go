// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/packing-audit/internal/adapter"
	"github.com/packing-audit/internal/circuitbreaker"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
)

// Service interfaces for dependency injection and testing

// AuthServiceInterface defines the interface for authentication operations
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*service.RefreshResult, error)
	Logout(ctx context.Context, email string) error
	Authenticate(ctx context.Context, accessToken string) (*service.Principal, error)
}

// PackingServiceInterface defines the interface for packing item operations
type PackingServiceInterface interface {
	ScanStart(ctx context.Context, in service.ScanInput) (*models.PackingItem, error)
	ScanEnd(ctx context.Context, in service.ScanInput) (*models.PackingItem, error)
	Scan(ctx context.Context, in service.ScanInput) (*models.PackingItem, bool, error)
	Reprocess(ctx context.Context, id string) (*models.PackingItem, error)
	GetByID(ctx context.Context, id string) (*models.PackingItem, error)
	List(ctx context.Context, filter storage.PackingFilter, page service.PageRequest) (*service.Page[*models.PackingItem], error)
	RecordOutcome(ctx context.Context, id string, result service.ItemOutcome) (*models.PackingItem, error)
}

// BatchServiceInterface defines the interface for batch job operations
type BatchServiceInterface interface {
	Trigger(ctx context.Context) (*models.BatchJob, error)
	ProcessItem(ctx context.Context, id string) (*adapter.TriggerResult, error)
	GetByID(ctx context.Context, id string) (*models.BatchJobDetail, error)
	List(ctx context.Context, filter storage.BatchJobFilter, page service.PageRequest) (*service.Page[*models.BatchJob], error)
	ReportItemStart(ctx context.Context, itemID string) (*models.BatchJobItem, error)
	ReportItemResult(ctx context.Context, itemID string, outcome service.ItemOutcome) (*models.BatchJob, error)
}

// UserServiceInterface defines the interface for user management
type UserServiceInterface interface {
	List(ctx context.Context, page service.PageRequest) (*service.Page[*models.User], error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id string, in service.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// RoleServiceInterface defines the interface for role lookups
type RoleServiceInterface interface {
	List(ctx context.Context) ([]*models.Role, error)
	GetByID(ctx context.Context, id string) (*models.Role, error)
}

// CameraServiceInterface defines the interface for camera management
type CameraServiceInterface interface {
	List(ctx context.Context, page service.PageRequest) (*service.Page[*models.Camera], error)
	GetByID(ctx context.Context, id string) (*models.Camera, error)
	Create(ctx context.Context, in service.CameraInput) (*models.Camera, error)
	Update(ctx context.Context, id string, in service.UpdateCameraInput) (*models.Camera, error)
	Delete(ctx context.Context, id string) error
	Credentials(ctx context.Context, id string) (*models.CameraCredentials, error)
}

// WorkstationServiceInterface defines the interface for workstation management
type WorkstationServiceInterface interface {
	List(ctx context.Context, page service.PageRequest) (*service.Page[*models.Workstation], error)
	GetByID(ctx context.Context, id string) (*models.Workstation, error)
	Create(ctx context.Context, in service.WorkstationInput) (*models.Workstation, error)
	Update(ctx context.Context, id string, in service.UpdateWorkstationInput) (*models.Workstation, error)
	Delete(ctx context.Context, id string) error
}

// ClipServiceInterface defines the interface for clip lookups
type ClipServiceInterface interface {
	List(ctx context.Context, page service.PageRequest) (*service.Page[*models.MiniClip], error)
	GetByID(ctx context.Context, id string) (*models.MiniClip, error)
	SignedURL(ctx context.Context, id string) (*service.SignedURL, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the worker circuit breaker state
type BreakerReporter interface {
	BreakerStats() *circuitbreaker.Stats
}

// Services bundles the dependencies of the server. Breaker may be nil.
type Services struct {
	Auth         AuthServiceInterface
	Packing      PackingServiceInterface
	Batch        BatchServiceInterface
	Users        UserServiceInterface
	Roles        RoleServiceInterface
	Cameras      CameraServiceInterface
	Workstations WorkstationServiceInterface
	Clips        ClipServiceInterface
	Database     HealthChecker
	Breaker      BreakerReporter
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	handler      http.Handler
	httpServer   *http.Server
	auth         AuthServiceInterface
	packing      PackingServiceInterface
	batch        BatchServiceInterface
	users        UserServiceInterface
	roles        RoleServiceInterface
	cameras      CameraServiceInterface
	workstations WorkstationServiceInterface
	clips        ClipServiceInterface
	database     HealthChecker
	breaker      BreakerReporter
	logger       *logging.Logger
	config       *ServerConfig
	proxies      *proxyResolver
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Production      bool
	CORSOrigins     []string
	TrustedProxies  []string
	AuthRPS         int
	AuthBurst       int
	WorkerToken     string
	// RefreshCookieTTL bounds the refresh token cookie lifetime
	RefreshCookieTTL time.Duration
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:       mux.NewRouter(),
		auth:         services.Auth,
		packing:      services.Packing,
		batch:        services.Batch,
		users:        services.Users,
		roles:        services.Roles,
		cameras:      services.Cameras,
		workstations: services.Workstations,
		clips:        services.Clips,
		database:     services.Database,
		breaker:      services.Breaker,
		logger:       logger,
		config:       config,
	}
	s.proxies = newProxyResolver(config.TrustedProxies, logger)

	s.setupRouter()

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger, s.proxies))
	s.router.Use(s.RecoveryMiddleware)
	s.router.Use(CompressionMiddleware)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondSuccess(w, http.StatusNotFound, "Route not found", nil)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondSuccess(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	s.setupRoutes()

	// CORS wraps the router so preflight requests never reach route matching
	s.handler = CORSMiddleware(s.config.CORSOrigins)(s.router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Auth endpoints, rate limited per client IP
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Use(s.RateLimitMiddleware(NewRateLimiter(s.config.AuthRPS, s.config.AuthBurst)))
	authRoutes.HandleFunc("/login", s.handleLogin).Methods("POST")
	authRoutes.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	authRoutes.Handle("/logout", s.RequireAuth(http.HandlerFunc(s.handleLogout))).Methods("POST")

	// Worker callbacks
	internal := api.PathPrefix("/internal").Subrouter()
	internal.Use(s.RequireWorker)
	internal.HandleFunc("/batch-job-items/{id}/start", s.handleWorkerItemStart).Methods("POST")
	internal.HandleFunc("/batch-job-items/{id}/result", s.handleWorkerItemResult).Methods("POST")
	internal.HandleFunc("/packing-items/{id}/result", s.handleWorkerPackingResult).Methods("POST")
	internal.HandleFunc("/cameras/{id}/credentials", s.handleWorkerCameraCredentials).Methods("GET")

	// Everything below requires a session
	authed := api.NewRoute().Subrouter()
	authed.Use(s.RequireAuth)

	authed.HandleFunc("/users/me", s.handleGetCurrentUser).Methods("GET")
	authed.HandleFunc("/roles", s.handleListRoles).Methods("GET")
	authed.HandleFunc("/roles/{id}", s.handleGetRole).Methods("GET")
	authed.HandleFunc("/clips", s.handleListClips).Methods("GET")
	authed.HandleFunc("/clips/{id}", s.handleGetClip).Methods("GET")
	authed.HandleFunc("/clips/{id}/url", s.handleClipURL).Methods("GET")
	authed.HandleFunc("/packing-items", s.handleListPackingItems).Methods("GET")

	// Operator endpoints
	operator := authed.NewRoute().Subrouter()
	operator.Use(s.RequireOperator)
	operator.HandleFunc("/packing-items/scan", s.handleScan).Methods("POST")
	operator.HandleFunc("/packing-items/scan/start", s.handleScanStart).Methods("POST")
	operator.HandleFunc("/packing-items/scan/end", s.handleScanEnd).Methods("POST")

	authed.HandleFunc("/packing-items/{id}", s.handleGetPackingItem).Methods("GET")

	// Superadmin endpoints
	admin := authed.NewRoute().Subrouter()
	admin.Use(s.RequireSuperadmin)
	admin.HandleFunc("/packing-items/{id}/reprocess", s.handleReprocess).Methods("POST")
	admin.HandleFunc("/packing-items/{id}/process", s.handleProcessItem).Methods("POST")

	admin.HandleFunc("/batch-jobs", s.handleListBatchJobs).Methods("GET")
	admin.HandleFunc("/batch-jobs/trigger", s.handleTriggerBatch).Methods("POST")
	admin.HandleFunc("/batch-jobs/{id}", s.handleGetBatchJob).Methods("GET")

	admin.HandleFunc("/users", s.handleListUsers).Methods("GET")
	admin.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	admin.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	admin.HandleFunc("/users/{id}", s.handleUpdateUser).Methods("PUT", "PATCH")
	admin.HandleFunc("/users/{id}", s.handleDeleteUser).Methods("DELETE")

	admin.HandleFunc("/cameras", s.handleListCameras).Methods("GET")
	admin.HandleFunc("/cameras", s.handleCreateCamera).Methods("POST")
	admin.HandleFunc("/cameras/{id}", s.handleGetCamera).Methods("GET")
	admin.HandleFunc("/cameras/{id}", s.handleUpdateCamera).Methods("PUT", "PATCH")
	admin.HandleFunc("/cameras/{id}", s.handleDeleteCamera).Methods("DELETE")

	admin.HandleFunc("/workstations", s.handleListWorkstations).Methods("GET")
	admin.HandleFunc("/workstations", s.handleCreateWorkstation).Methods("POST")
	admin.HandleFunc("/workstations/{id}", s.handleGetWorkstation).Methods("GET")
	admin.HandleFunc("/workstations/{id}", s.handleUpdateWorkstation).Methods("PUT", "PATCH")
	admin.HandleFunc("/workstations/{id}", s.handleDeleteWorkstation).Methods("DELETE")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "healthy",
		"service": "packing-audit",
	}
	code := http.StatusOK
	message := service.MsgHealthy

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.database.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).WithError(err).Warn("Database health check failed")
			status["status"] = "unhealthy"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
			message = "Service is unhealthy"
		}
	}
	if s.breaker != nil {
		status["worker"] = s.breaker.BreakerStats()
	}

	respondSuccess(w, code, message, status)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
