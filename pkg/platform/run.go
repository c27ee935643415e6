package platform

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/replica"
)

// backgroundSyncInterval is the replicated-store sync cadence while the
// server runs.
const backgroundSyncInterval = 30 * time.Second

// Router builds the full API router. Exposed separately from Run so tests
// can drive the handlers through httptest without binding a port.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(a.requestLogging)

	api := router.PathPrefix("/api").Subrouter()

	// Health check
	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Auth routes
	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", a.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", a.handleGetCurrentUser).Methods("GET")
	api.HandleFunc("/auth/refresh", a.handleRefreshToken).Methods("POST")
	api.HandleFunc("/auth/keys", a.handleCreateAPIKey).Methods("POST")
	api.HandleFunc("/auth/keys", a.handleListAPIKeys).Methods("GET")
	api.HandleFunc("/auth/keys/{id}", a.handleDeleteAPIKey).Methods("DELETE")

	// User routes
	api.HandleFunc("/users", a.handleListUsers).Methods("GET")
	api.HandleFunc("/users/{id}", a.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{id}", a.handleUpdateUser).Methods("PUT")
	api.HandleFunc("/users/{id}", a.handleDeleteUser).Methods("DELETE")
	api.HandleFunc("/users/{userId}/organizations", a.handleListOrganizations).Methods("GET")
	api.HandleFunc("/users/{userId}/tasks", a.handleListTasksByAssignee).Methods("GET")

	// Organization routes
	api.HandleFunc("/organizations", a.handleCreateOrganization).Methods("POST")
	api.HandleFunc("/organizations/slug/{slug}", a.handleGetOrganizationBySlug).Methods("GET")
	api.HandleFunc("/organizations/{id}", a.handleGetOrganization).Methods("GET")
	api.HandleFunc("/organizations/{id}", a.handleUpdateOrganization).Methods("PUT")
	api.HandleFunc("/organizations/{id}", a.handleDeleteOrganization).Methods("DELETE")
	api.HandleFunc("/organizations/{id}/export", a.handleExportOrganization).Methods("GET")
	api.HandleFunc("/organizations/{orgId}/projects", a.handleListProjects).Methods("GET")
	api.HandleFunc("/organizations/{orgId}/files", a.handleUploadFile).Methods("POST")
	api.HandleFunc("/organizations/{orgId}/files", a.handleListFiles).Methods("GET")

	// Project routes
	api.HandleFunc("/projects", a.handleCreateProject).Methods("POST")
	api.HandleFunc("/projects/{id}", a.handleGetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", a.handleUpdateProject).Methods("PUT")
	api.HandleFunc("/projects/{id}", a.handleDeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/tasks", a.handleListTasks).Methods("GET")

	// Task routes
	api.HandleFunc("/tasks", a.handleCreateTask).Methods("POST")
	api.HandleFunc("/tasks/{id}", a.handleGetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", a.handleUpdateTask).Methods("PUT")
	api.HandleFunc("/tasks/{id}", a.handleDeleteTask).Methods("DELETE")

	// File routes
	api.HandleFunc("/files/{id}", a.handleGetFile).Methods("GET")
	api.HandleFunc("/files/{id}/content", a.handleDownloadFile).Methods("GET")
	api.HandleFunc("/files/{id}", a.handleDeleteFile).Methods("DELETE")

	// Audit and analytics routes
	api.HandleFunc("/audit", a.handleListAudit).Methods("GET")
	api.HandleFunc("/metrics", a.handleRecordMetric).Methods("POST")
	api.HandleFunc("/metrics", a.handleListMetrics).Methods("GET")

	// Administration routes
	api.HandleFunc("/admin/mode", a.handleGetMode).Methods("GET")
	api.HandleFunc("/admin/mode", a.handleSetMode).Methods("POST")
	api.HandleFunc("/admin/sync/stats", a.handleSyncStats).Methods("GET")

	// Websocket event stream
	api.HandleFunc("/ws", a.handleWebSocket).Methods("GET")

	// Health check route outside the /api prefix for load balancers
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}

// Run starts the HTTP server and, in replicated mode, the background sync
// loop. Blocks until the context is canceled or a fatal server error occurs;
// on cancellation in-flight requests get up to 5 seconds to complete.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	router := a.Router()

	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.logger.Info().
		Str("addr", addr).
		Str("mode", string(a.config.MigrationMode)).
		Msg("starting platform server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	if a.replicated != nil && a.config.MigrationMode != replica.ModeSingle {
		g.Go(func() error {
			err := a.replicated.StartContinuousSync(ctx, backgroundSyncInterval)
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := g.Wait(); err != nil && err != context.Canceled {
			return err
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

// requestLogging logs every request with method, path, status, and latency.
func (a *App) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer so the websocket upgrade
// works behind the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
