package transport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lineside/mes/internal/domain/editor"
	"github.com/lineside/mes/internal/domain/instruction"
)

type nodeRequest struct {
	ID             string   `json:"id,omitempty"`
	Kind           string   `json:"kind" validate:"required,oneof=step part"`
	Name           string   `json:"name,omitempty"`
	Body           string   `json:"body,omitempty"`
	DetailedBody   string   `json:"detailed_body,omitempty"`
	PrimaryMedia   []string `json:"primary_media,omitempty"`
	SecondaryMedia []string `json:"secondary_media,omitempty"`
	PartID         string   `json:"part_id,omitempty"`
}

type instructionRequest struct {
	Title                 string        `json:"title" validate:"required"`
	ProductIDs            []string      `json:"product_ids"`
	CollectsProductSerial bool          `json:"collects_product_serial"`
	Nodes                 []nodeRequest `json:"nodes" validate:"dive"`
}

func (s *Server) handleListInstructions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.instructions.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, summaries)
}

func (s *Server) handleGetInstruction(w http.ResponseWriter, r *http.Request) {
	wi, err := s.instructions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, wi)
}

func (s *Server) handleListChain(w http.ResponseWriter, r *http.Request) {
	wi, err := s.instructions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	chain, err := s.instructions.ListChain(r.Context(), wi.OriginalID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, chain)
}

func (s *Server) handleCreateInstruction(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	ed := s.newEditor()
	ed.StartNew(req.Title, req.ProductIDs)
	ed.Document().CollectsProductSerial = req.CollectsProductSerial

	for i, nd := range req.Nodes {
		node, err := nodeFromRequest(nd, i)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := ed.AddNode(node); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	if err := s.saveEditor(r.Context(), ed); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, ed.Document())
}

func (s *Server) handleUpdateInstruction(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := s.decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	ed := s.newEditor()
	if err := ed.LoadForEdit(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}

	doc := ed.Document()
	doc.Title = req.Title
	doc.ProductIDs = req.ProductIDs
	doc.CollectsProductSerial = req.CollectsProductSerial

	if err := syncNodes(ed, req.Nodes); err != nil {
		s.respondError(w, r, err)
		return
	}
	ed.MarkDirty()

	if err := s.saveEditor(r.Context(), ed); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, ed.Document())
}

type newVersionRequest struct {
	Title *string `json:"title,omitempty"`
}

func (s *Server) handleNewVersion(w http.ResponseWriter, r *http.Request) {
	var req newVersionRequest
	if r.ContentLength > 0 {
		if err := s.decode(r, &req); err != nil {
			s.badRequest(w, err)
			return
		}
	}

	ed := s.newEditor()
	if err := ed.LoadForNewVersionFromVersion(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Title != nil {
		ed.Document().Title = *req.Title
		ed.MarkDirty()
	}

	if err := s.saveEditor(r.Context(), ed); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, ed.Document())
}

func (s *Server) handleToggleActive(w http.ResponseWriter, r *http.Request) {
	ed := s.newEditor()
	if err := ed.LoadForEdit(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := ed.ToggleActive(); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.saveEditor(r.Context(), ed); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, ed.Document())
}

func (s *Server) handleDeleteInstruction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wi, err := s.instructions.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.instructions.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	if s.media != nil {
		s.media.Remove(r.Context(), instruction.MediaPaths(wi.Nodes))
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) newEditor() *editor.Editor {
	return editor.New(s.gateway, s.media, s.logger)
}

// saveEditor saves and counts the save under the state it ran in
func (s *Server) saveEditor(ctx context.Context, ed *editor.Editor) error {
	state := string(ed.State())
	if err := ed.Save(ctx); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.InstructionSaved(state)
	}
	return nil
}

// syncNodes reshapes the loaded document's node list to match the
// request: nodes the request no longer names are deleted through the
// editor so their removal is queued, kept nodes are updated in place,
// and nodes without an id are created fresh.
func syncNodes(ed *editor.Editor, reqs []nodeRequest) error {
	doc := ed.Document()

	existing := make(map[string]instruction.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		existing[n.NodeID()] = n
	}

	requested := make(map[string]bool, len(reqs))
	for _, nd := range reqs {
		if nd.ID != "" {
			requested[nd.ID] = true
		}
	}
	for id := range existing {
		if !requested[id] {
			if err := ed.DeleteNode(id); err != nil {
				return err
			}
		}
	}

	nodes := make([]instruction.Node, 0, len(reqs))
	for i, nd := range reqs {
		if kept, ok := existing[nd.ID]; ok && nd.ID != "" {
			node, err := applyNodeRequest(kept, nd, i)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
			continue
		}

		node, err := nodeFromRequest(nd, i)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	doc.Nodes = nodes

	return nil
}

func nodeFromRequest(nd nodeRequest, position int) (instruction.Node, error) {
	id := nd.ID
	if id == "" {
		id = uuid.NewString()
	}

	switch instruction.NodeKind(nd.Kind) {
	case instruction.KindStep:
		return &instruction.StepNode{
			ID:             id,
			Position:       position,
			Name:           nd.Name,
			Body:           nd.Body,
			DetailedBody:   nd.DetailedBody,
			PrimaryMedia:   nd.PrimaryMedia,
			SecondaryMedia: nd.SecondaryMedia,
		}, nil
	case instruction.KindPart:
		if nd.PartID == "" {
			return nil, editor.ErrInvalidInput
		}
		return &instruction.PartNode{ID: id, Position: position, PartID: nd.PartID}, nil
	default:
		return nil, editor.ErrInvalidInput
	}
}

func applyNodeRequest(node instruction.Node, nd nodeRequest, position int) (instruction.Node, error) {
	switch n := node.(type) {
	case *instruction.StepNode:
		if instruction.NodeKind(nd.Kind) != instruction.KindStep {
			return nil, editor.ErrInvalidInput
		}
		n.Position = position
		n.Name = nd.Name
		n.Body = nd.Body
		n.DetailedBody = nd.DetailedBody
		n.PrimaryMedia = nd.PrimaryMedia
		n.SecondaryMedia = nd.SecondaryMedia
		return n, nil
	case *instruction.PartNode:
		if instruction.NodeKind(nd.Kind) != instruction.KindPart || nd.PartID == "" {
			return nil, editor.ErrInvalidInput
		}
		n.Position = position
		n.PartID = nd.PartID
		return n, nil
	default:
		return nil, editor.ErrInvalidInput
	}
}
