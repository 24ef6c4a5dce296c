package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lineside/mes/internal/domain/editor"
	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/domain/user"
	"github.com/lineside/mes/internal/media"
	"github.com/lineside/mes/internal/metrics"
)

// Server wires HTTP handlers over the domain services.
type Server struct {
	logger   *slog.Logger
	validate *validator.Validate

	auth         *Auth
	users        *user.Service
	products     *product.Service
	instructions *instruction.Service
	logs         *prodlog.Service

	gateway  editor.Gateway
	media    *media.Store
	metrics  *metrics.Metrics
	sessions *sessionHub
}

// NewServer creates the HTTP router with middleware and all routes.
func NewServer(
	logger *slog.Logger,
	auth *Auth,
	users *user.Service,
	products *product.Service,
	instructions *instruction.Service,
	logs *prodlog.Service,
	gateway editor.Gateway,
	mediaStore *media.Store,
	m *metrics.Metrics,
) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		logger:       logger,
		validate:     validator.New(),
		auth:         auth,
		users:        users,
		products:     products,
		instructions: instructions,
		logs:         logs,
		gateway:      gateway,
		media:        mediaStore,
		metrics:      m,
		sessions:     newSessionHub(),
	}

	r := chi.NewRouter()
	if m != nil {
		r.Use(m.Middleware)
	}

	r.Get("/health", srv.handleHealth)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Post("/api/auth/login", srv.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/api/auth/logout", srv.handleLogout)

		r.Get("/api/preferences", srv.handleListPreferences)
		r.Put("/api/preferences/{key}", srv.handleSetPreference)

		r.Get("/api/products", srv.handleListProducts)
		r.Get("/api/products/{id}", srv.handleGetProduct)
		r.Get("/api/parts", srv.handleListParts)
		r.Get("/api/parts/{id}", srv.handleGetPart)

		r.Get("/api/instructions", srv.handleListInstructions)
		r.Get("/api/instructions/{id}", srv.handleGetInstruction)
		r.Get("/api/instructions/{id}/chain", srv.handleListChain)

		r.Get("/api/logs", srv.handleListLogs)
		r.Get("/api/logs/{id}", srv.handleGetLog)
		r.Post("/api/logs", srv.handleCreateLog)
		r.Put("/api/logs/{id}", srv.handleUpdateLog)
		r.Delete("/api/logs/{id}", srv.handleDeleteLog)

		r.Get("/api/session/log", srv.handleLogSessionStatus)
		r.Put("/api/session/log", srv.handleOpenLogSession)
		r.Delete("/api/session/log", srv.handleCloseLogSession)
		r.Post("/api/session/log/changes", srv.handleSessionChanges)
		r.Put("/api/session/autosave", srv.handleSetAutosave)

		r.Post("/api/media", srv.handleUploadMedia)
		r.Get("/api/media/{path}", srv.handleGetMedia)

		// Authoring and administration
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/api/users", srv.handleCreateUser)
			r.Get("/api/users", srv.handleListUsers)

			r.Post("/api/products", srv.handleCreateProduct)
			r.Put("/api/products/{id}", srv.handleUpdateProduct)
			r.Delete("/api/products/{id}", srv.handleDeleteProduct)
			r.Post("/api/parts", srv.handleCreatePart)
			r.Put("/api/parts/{id}", srv.handleUpdatePart)
			r.Delete("/api/parts/{id}", srv.handleDeletePart)

			r.Post("/api/instructions", srv.handleCreateInstruction)
			r.Put("/api/instructions/{id}", srv.handleUpdateInstruction)
			r.Post("/api/instructions/{id}/versions", srv.handleNewVersion)
			r.Post("/api/instructions/{id}/toggle-active", srv.handleToggleActive)
			r.Delete("/api/instructions/{id}", srv.handleDeleteInstruction)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// decode unmarshals and validates a request body
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return s.validate.Struct(dst)
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError maps domain errors to HTTP status codes
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, product.ErrPartNotFound),
		errors.Is(err, instruction.ErrInstructionNotFound),
		errors.Is(err, prodlog.ErrLogNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, media.ErrInvalidPath),
		errors.Is(err, ErrNoActiveSession),
		errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, product.ErrInvalidInput),
		errors.Is(err, instruction.ErrInvalidInput),
		errors.Is(err, prodlog.ErrInvalidInput),
		errors.Is(err, prodlog.ErrUnknownStep),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, editor.ErrInvalidInput),
		errors.Is(err, editor.ErrNoDocument),
		errors.Is(err, editor.ErrMissingOriginalID):
		status = http.StatusBadRequest
	case errors.Is(err, instruction.ErrInstructionInUse),
		errors.Is(err, user.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		status = http.StatusInternalServerError
	}

	s.respond(w, status, map[string]string{"error": err.Error()})
}

// badRequest reports a malformed or invalid request body
func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}
