package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lineside/mes/internal/domain/prodlog"
)

type attemptRequest struct {
	ID          int64  `json:"id,omitempty"`
	Outcome     string `json:"outcome" validate:"required,oneof=success failure undecided"`
	FailureNote string `json:"failure_note,omitempty"`
}

type logStepRequest struct {
	ID       string           `json:"id,omitempty"`
	StepID   string           `json:"work_instruction_step_id" validate:"required"`
	Attempts []attemptRequest `json:"attempts" validate:"dive"`
}

type createLogRequest struct {
	WorkInstructionID string           `json:"work_instruction_id" validate:"required"`
	ProductID         string           `json:"product_id" validate:"required"`
	Operator          string           `json:"operator"`
	BatchSize         int              `json:"batch_size" validate:"required,gt=0"`
	ProductSerial     string           `json:"product_serial"`
	Steps             []logStepRequest `json:"steps" validate:"dive"`
}

type updateLogRequest struct {
	BatchSize     *int             `json:"batch_size,omitempty"`
	ProductSerial *string          `json:"product_serial,omitempty"`
	Steps         []logStepRequest `json:"steps" validate:"required,dive"`
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	operator := req.Operator
	if operator == "" {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			operator = identity.Username
		}
	}

	log, err := s.logs.Create(r.Context(), prodlog.CreateRequest{
		WorkInstructionID: req.WorkInstructionID,
		ProductID:         req.ProductID,
		Operator:          operator,
		BatchSize:         req.BatchSize,
		ProductSerial:     req.ProductSerial,
		Steps:             stepsFromRequest(req.Steps),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, log)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	log, err := s.logs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, log)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := prodlog.ListOptions{
		WorkInstructionID: q.Get("work_instruction_id"),
		ProductID:         q.Get("product_id"),
		Operator:          q.Get("operator"),
	}
	if limit := q.Get("limit"); limit != "" {
		opts.Limit, _ = strconv.Atoi(limit)
	}
	if offset := q.Get("offset"); offset != "" {
		opts.Offset, _ = strconv.Atoi(offset)
	}

	summaries, err := s.logs.List(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, summaries)
}

func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	var req updateLogRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	log, err := s.logs.Update(r.Context(), prodlog.UpdateRequest{
		ID:            chi.URLParam(r, "id"),
		BatchSize:     req.BatchSize,
		ProductSerial: req.ProductSerial,
		Steps:         stepsFromRequest(req.Steps),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, log)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.logs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func stepsFromRequest(reqs []logStepRequest) []prodlog.LogStep {
	steps := make([]prodlog.LogStep, 0, len(reqs))
	for _, sr := range reqs {
		attempts := make([]prodlog.Attempt, 0, len(sr.Attempts))
		for _, ar := range sr.Attempts {
			attempts = append(attempts, prodlog.Attempt{
				ID:          ar.ID,
				Outcome:     prodlog.Outcome(ar.Outcome),
				FailureNote: ar.FailureNote,
			})
		}
		steps = append(steps, prodlog.LogStep{
			ID:       sr.ID,
			StepID:   sr.StepID,
			Attempts: attempts,
		})
	}
	return steps
}
