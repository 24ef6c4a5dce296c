// Package editor implements the work-instruction authoring session: an
// in-memory document moved through create / edit / new-version states,
// with dirty tracking and deferred node deletion.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/notify"
	"github.com/lineside/mes/internal/repository"
)

// State names the editing session's position in its lifecycle.
type State string

const (
	// StateNone means no document is loaded.
	StateNone State = "none"
	// StateCreateNew means a new unpersisted document is being authored;
	// the next save creates it.
	StateCreateNew State = "create_new"
	// StateEditExisting means a persisted document is loaded; the next
	// save updates it in place.
	StateEditExisting State = "edit_existing"
	// StateCreateNewVersion means the document was cloned from a version
	// chain member; the next save creates it as the chain's new latest.
	StateCreateNewVersion State = "create_new_version"
)

// Editor is one user session's work-instruction authoring state. It is
// session-scoped: each connected session owns its own instance, so no
// locking is done here.
type Editor struct {
	gateway Gateway
	media   instruction.MediaDuplicator
	logger  *slog.Logger
	changed *notify.Topic[struct{}]

	doc     *instruction.WorkInstruction
	state   State
	dirty   bool
	pending []instruction.Node
}

// New creates an editor in StateNone.
func New(gateway Gateway, media instruction.MediaDuplicator, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		gateway: gateway,
		media:   media,
		logger:  logger,
		changed: notify.NewTopic[struct{}](),
		state:   StateNone,
	}
}

// Document returns the in-memory document, or nil when none is loaded.
func (e *Editor) Document() *instruction.WorkInstruction { return e.doc }

// State returns the current editor state.
func (e *Editor) State() State { return e.state }

// IsDirty reports whether the document has unsaved changes.
func (e *Editor) IsDirty() bool { return e.dirty }

// Changed is the topic notified after every mutating operation. The
// notification carries no payload; subscribers re-read the document.
func (e *Editor) Changed() *notify.Topic[struct{}] { return e.changed }

// PendingDeletionIDs returns the IDs of nodes queued for deletion.
func (e *Editor) PendingDeletionIDs() []string {
	ids := make([]string, 0, len(e.pending))
	for _, n := range e.pending {
		ids = append(ids, n.NodeID())
	}
	return ids
}

// StartNew begins a blank document at version 1.0.
func (e *Editor) StartNew(title string, productIDs []string) {
	id := uuid.NewString()
	e.doc = &instruction.WorkInstruction{
		ID:         id,
		Title:      title,
		Version:    "1.0",
		CreatedAt:  time.Now(),
		ProductIDs: productIDs,
	}
	e.state = StateCreateNew
	e.dirty = true
	e.pending = nil
	e.notifyChanged()
}

// StartNewFromCurrent begins a new document seeded with deep clones of
// the current document's nodes. Media files referenced by step nodes
// are re-persisted under new paths.
func (e *Editor) StartNewFromCurrent(title string, productIDs []string) error {
	if e.doc == nil {
		return ErrNoDocument
	}

	nodes, err := instruction.CloneNodes(e.doc.Nodes, e.media)
	if err != nil {
		return fmt.Errorf("cloning nodes: %w", err)
	}

	id := uuid.NewString()
	e.doc = &instruction.WorkInstruction{
		ID:                    id,
		Title:                 title,
		Version:               "1.0",
		CollectsProductSerial: e.doc.CollectsProductSerial,
		CreatedAt:             time.Now(),
		ProductIDs:            productIDs,
		Nodes:                 nodes,
	}
	e.state = StateCreateNew
	e.dirty = true
	e.pending = nil
	e.notifyChanged()
	return nil
}

// LoadForEdit fetches a persisted document for in-place editing.
func (e *Editor) LoadForEdit(ctx context.Context, id string) error {
	wi, err := e.gateway.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return instruction.ErrInstructionNotFound
		}
		return fmt.Errorf("loading work instruction: %w", err)
	}

	e.doc = wi
	e.state = StateEditExisting
	e.dirty = false
	e.pending = nil
	e.notifyChanged()
	return nil
}

// LoadForNewVersion clones the latest member of a version chain as the
// starting point for a new version.
func (e *Editor) LoadForNewVersion(ctx context.Context, originalID string) error {
	src, err := e.gateway.GetLatestInChain(ctx, originalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return instruction.ErrInstructionNotFound
		}
		return fmt.Errorf("loading latest in chain: %w", err)
	}
	return e.startVersionFrom(src)
}

// LoadForNewVersionFromVersion clones a specific historical version as
// the starting point for a new version.
func (e *Editor) LoadForNewVersionFromVersion(ctx context.Context, versionID string) error {
	src, err := e.gateway.Get(ctx, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return instruction.ErrInstructionNotFound
		}
		return fmt.Errorf("loading version: %w", err)
	}
	return e.startVersionFrom(src)
}

// LoadForNewVersionFromCurrent clones the in-memory current document as
// the starting point for a new version.
func (e *Editor) LoadForNewVersionFromCurrent() error {
	if e.doc == nil {
		return ErrNoDocument
	}
	return e.startVersionFrom(e.doc)
}

func (e *Editor) startVersionFrom(src *instruction.WorkInstruction) error {
	nodes, err := instruction.CloneNodes(src.Nodes, e.media)
	if err != nil {
		return fmt.Errorf("cloning nodes: %w", err)
	}

	e.doc = &instruction.WorkInstruction{
		ID:                    uuid.NewString(),
		OriginalID:            src.OriginalID,
		Title:                 src.Title,
		Version:               NextVersion(src.Version),
		IsActive:              src.IsActive,
		CollectsProductSerial: src.CollectsProductSerial,
		CreatedAt:             time.Now(),
		ProductIDs:            append([]string(nil), src.ProductIDs...),
		Nodes:                 nodes,
	}
	e.state = StateCreateNewVersion
	e.dirty = true
	e.pending = nil
	e.notifyChanged()
	return nil
}

// Save persists the document according to the current state. On
// success the dirty flag clears, queued node deletions flush, and the
// editor moves to StateEditExisting. On failure everything stays as it
// was so the save can be retried.
func (e *Editor) Save(ctx context.Context) error {
	if e.doc == nil {
		return ErrNoDocument
	}

	switch e.state {
	case StateCreateNew:
		// A fresh document roots its own version chain.
		e.doc.OriginalID = e.doc.ID
		e.doc.IsLatest = true
		if err := e.gateway.Create(ctx, e.doc); err != nil {
			return fmt.Errorf("creating work instruction: %w", err)
		}

	case StateEditExisting:
		e.doc.IsLatest = true
		if err := e.gateway.Update(ctx, e.doc); err != nil {
			return fmt.Errorf("updating work instruction: %w", err)
		}

	case StateCreateNewVersion:
		if e.doc.OriginalID == "" {
			return ErrMissingOriginalID
		}
		if err := e.gateway.MarkChainNotLatest(ctx, e.doc.OriginalID, e.doc.ID); err != nil {
			return fmt.Errorf("marking chain not latest: %w", err)
		}
		e.doc.IsLatest = true
		if err := e.gateway.Create(ctx, e.doc); err != nil {
			return fmt.Errorf("creating new version: %w", err)
		}

	default:
		return ErrNoDocument
	}

	if e.doc.IsActive {
		if err := e.gateway.MarkChainInactive(ctx, e.doc.OriginalID, e.doc.ID); err != nil {
			return fmt.Errorf("marking chain inactive: %w", err)
		}
	}

	e.flushPendingDeletions(ctx)
	e.dirty = false
	e.state = StateEditExisting
	e.notifyChanged()
	return nil
}

// flushPendingDeletions removes queued nodes from persisted storage.
// A failure is logged and the queue is kept, so the deletion is retried
// on the next successful save.
func (e *Editor) flushPendingDeletions(ctx context.Context) {
	if len(e.pending) == 0 {
		return
	}
	ids := e.PendingDeletionIDs()
	if err := e.gateway.DeleteNodes(ctx, ids); err != nil {
		e.logger.Warn("deferred node deletion failed", "node_ids", ids, "error", err)
		return
	}
	e.pending = nil
}

// QueueNodeForDeletion defers removing a node from persisted storage
// until the next successful save. The node is not removed from the
// document's node list; callers manage the visible list separately.
func (e *Editor) QueueNodeForDeletion(node instruction.Node) {
	for _, queued := range e.pending {
		if queued == node {
			return
		}
	}
	e.pending = append(e.pending, node)
	e.notifyChanged()
}

// AddNode appends a node at the end of the document, assigning the next
// position.
func (e *Editor) AddNode(node instruction.Node) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	node.SetPosition(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, node)
	e.dirty = true
	e.notifyChanged()
	return nil
}

// DeleteNode removes a node from the visible list, queues it for
// deferred deletion, and renumbers the remaining nodes.
func (e *Editor) DeleteNode(nodeID string) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	for i, n := range e.doc.Nodes {
		if n.NodeID() == nodeID {
			e.QueueNodeForDeletion(n)
			e.doc.Nodes = append(e.doc.Nodes[:i], e.doc.Nodes[i+1:]...)
			for pos, rest := range e.doc.Nodes {
				rest.SetPosition(pos)
			}
			e.dirty = true
			e.notifyChanged()
			return nil
		}
	}
	return ErrInvalidInput
}

// ToggleActive flips the in-memory active flag. Persisted storage is
// untouched until the next save.
func (e *Editor) ToggleActive() error {
	if e.doc == nil {
		return ErrNoDocument
	}
	e.doc.IsActive = !e.doc.IsActive
	e.dirty = true
	e.notifyChanged()
	return nil
}

// MarkDirty flags unsaved changes for field edits applied directly to
// the document.
func (e *Editor) MarkDirty() {
	e.dirty = true
	e.notifyChanged()
}

// Reset discards the in-memory document without persisting.
func (e *Editor) Reset() {
	e.doc = nil
	e.state = StateNone
	e.dirty = false
	e.pending = nil
	e.notifyChanged()
}

func (e *Editor) notifyChanged() {
	e.changed.Publish(struct{}{})
}

// NextVersion bumps the last numeric segment of a dotted version label,
// so "1.0" becomes "1.1". Labels without a numeric tail get ".1"
// appended.
func NextVersion(label string) string {
	parts := strings.Split(label, ".")
	last := parts[len(parts)-1]
	n, err := strconv.Atoi(last)
	if err != nil {
		return label + ".1"
	}
	parts[len(parts)-1] = strconv.Itoa(n + 1)
	return strings.Join(parts, ".")
}
