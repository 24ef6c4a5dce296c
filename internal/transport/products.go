package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lineside/mes/internal/domain/product"
)

type productRequest struct {
	Name     string `json:"name" validate:"required"`
	IsActive bool   `json:"is_active"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	p, err := s.products.Create(r.Context(), product.CreateRequest{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, p)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, products)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	p, err := s.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p.Name = req.Name
	p.IsActive = req.IsActive
	if err := s.products.Update(r.Context(), p); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

type partRequest struct {
	PartNumber string `json:"part_number" validate:"required"`
	PartName   string `json:"part_name" validate:"required"`
}

func (s *Server) handleCreatePart(w http.ResponseWriter, r *http.Request) {
	var req partRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	part, err := s.products.CreatePart(r.Context(), product.PartCreateRequest{
		PartNumber: req.PartNumber,
		PartName:   req.PartName,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, part)
}

func (s *Server) handleGetPart(w http.ResponseWriter, r *http.Request) {
	part, err := s.products.GetPart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, part)
}

func (s *Server) handleListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := s.products.ListParts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, parts)
}

func (s *Server) handleUpdatePart(w http.ResponseWriter, r *http.Request) {
	var req partRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	part, err := s.products.GetPart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	part.PartNumber = req.PartNumber
	part.PartName = req.PartName
	if err := s.products.UpdatePart(r.Context(), part); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, part)
}

func (s *Server) handleDeletePart(w http.ResponseWriter, r *http.Request) {
	if err := s.products.DeletePart(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
