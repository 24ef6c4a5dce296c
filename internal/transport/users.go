package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lineside/mes/internal/domain/user"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	token, err := s.auth.Issue(u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Revoke(token)
	}
	s.respond(w, http.StatusNoContent, nil)
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=operator admin"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	u, err := s.users.Create(r.Context(), req.Username, req.Password, user.Role(req.Role))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, users)
}

type setPreferenceRequest struct {
	Value string `json:"value" validate:"required"`
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req setPreferenceRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.users.SetPreference(r.Context(), identity.UserID, key, req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	prefs, err := s.users.Preferences(r.Context(), identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, prefs)
}
