package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/lineside/mes/internal/domain/autosave"
	"github.com/lineside/mes/internal/domain/prodlog"
)

// ErrNoActiveSession means the user has no production log open for
// editing.
var ErrNoActiveSession = errors.New("no active log session")

// sessionHub keeps one autosave coordinator per authenticated user. A
// session is single-client; concurrent edits on the same token are not
// coordinated.
type sessionHub struct {
	mu       sync.Mutex
	sessions map[string]*autosave.Coordinator
}

func newSessionHub() *sessionHub {
	return &sessionHub{sessions: make(map[string]*autosave.Coordinator)}
}

func (h *sessionHub) lookup(userID string) *autosave.Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[userID]
}

func (h *sessionHub) open(userID string, fresh func() *autosave.Coordinator) *autosave.Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()
	coord, ok := h.sessions[userID]
	if !ok {
		coord = fresh()
		h.sessions[userID] = coord
	}
	return coord
}

func (h *sessionHub) close(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, userID)
}

type openSessionRequest struct {
	ProductionLogID string `json:"production_log_id" validate:"required"`
}

// handleOpenLogSession loads a production log into the user's editing
// session and arms the debounced autosave.
func (s *Server) handleOpenLogSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req openSessionRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	log, err := s.logs.Get(r.Context(), req.ProductionLogID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	coord := s.sessions.open(identity.UserID, func() *autosave.Coordinator {
		return autosave.New(s.logger)
	})
	coord.RegisterSave(s.autosaveFunc(identity.Username, coord))
	coord.SetActiveLog(log)
	coord.SetOperatorName(log.Operator)
	s.announceSessionNames(r.Context(), coord, log)

	s.respond(w, http.StatusOK, log)
}

// autosaveFunc persists the session's log when the debounce fires. The
// coordinator does not retry; a failed save is logged and the next edit
// schedules a fresh one. The persisted aggregate is fed back into the
// coordinator so store-assigned step and attempt ids carry into the
// next save instead of the rows being pruned and recreated.
func (s *Server) autosaveFunc(username string, coord *autosave.Coordinator) autosave.SaveFunc {
	return func(log *prodlog.ProductionLog) {
		if s.metrics != nil {
			s.metrics.AutosaveFired()
		}
		steps := log.Steps
		if steps == nil {
			steps = []prodlog.LogStep{}
		}
		updated, err := s.logs.Update(context.Background(), prodlog.UpdateRequest{
			ID:            log.ID,
			BatchSize:     &log.BatchSize,
			ProductSerial: &log.ProductSerial,
			Steps:         steps,
		})
		if err != nil {
			s.logger.Error("autosave failed", "log_id", log.ID, "user", username, "error", err)
			return
		}
		coord.AdoptSaved(updated)
	}
}

// announceSessionNames publishes the display names tied to the opened
// log on the coordinator's narrow topics. Lookups are best effort.
func (s *Server) announceSessionNames(ctx context.Context, coord *autosave.Coordinator, log *prodlog.ProductionLog) {
	if p, err := s.products.Get(ctx, log.ProductID); err == nil {
		coord.SetProductName(p.Name)
	}
	if wi, err := s.instructions.Get(ctx, log.WorkInstructionID); err == nil {
		coord.SetWorkInstructionName(wi.Title)
	}
}

type sessionChangesRequest struct {
	BatchSize     *int             `json:"batch_size,omitempty" validate:"omitempty,gt=0"`
	ProductSerial *string          `json:"product_serial,omitempty"`
	Steps         []logStepRequest `json:"steps,omitempty" validate:"omitempty,dive"`
}

// handleSessionChanges applies an edit to the in-memory log and
// restarts the debounce timer. The write reaches storage only after
// the quiet period.
func (s *Server) handleSessionChanges(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	coord := s.sessions.lookup(identity.UserID)
	if coord == nil {
		s.respondError(w, r, ErrNoActiveSession)
		return
	}

	var req sessionChangesRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	ok := coord.Edit(func(log *prodlog.ProductionLog) {
		if req.BatchSize != nil {
			log.BatchSize = *req.BatchSize
		}
		if req.ProductSerial != nil {
			log.ProductSerial = *req.ProductSerial
		}
		if req.Steps != nil {
			log.Steps = stepsFromRequest(req.Steps)
		}
	})
	if !ok {
		s.respondError(w, r, ErrNoActiveSession)
		return
	}

	s.respond(w, http.StatusAccepted, map[string]bool{"saved": coord.IsSaved()})
}

// handleLogSessionStatus reports the open log and its saved flag.
func (s *Server) handleLogSessionStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	coord := s.sessions.lookup(identity.UserID)
	if coord == nil || coord.ActiveLog() == nil {
		s.respondError(w, r, ErrNoActiveSession)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"production_log_id": coord.ActiveLog().ID,
		"saved":             coord.IsSaved(),
	})
}

type autosaveRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// handleSetAutosave toggles debounced saving for the session. A timer
// that is already running still fires.
func (s *Server) handleSetAutosave(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	coord := s.sessions.lookup(identity.UserID)
	if coord == nil {
		s.respondError(w, r, ErrNoActiveSession)
		return
	}

	var req autosaveRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	if *req.Enabled {
		coord.EnableAutoSave()
	} else {
		coord.DisableAutoSave()
	}
	s.respond(w, http.StatusNoContent, nil)
}

// handleCloseLogSession drops the session without waiting for a
// pending save.
func (s *Server) handleCloseLogSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	s.sessions.close(identity.UserID)
	s.respond(w, http.StatusNoContent, nil)
}
