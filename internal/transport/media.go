package transport

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 64 << 20

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.badRequest(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	defer file.Close()

	path, err := s.media.Save(file, filepath.Ext(header.Filename))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{"path": path})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	reader, err := s.media.Open(chi.URLParam(r, "path"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("failed to stream media", "error", err)
	}
}
