package instruction

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeKind tags the concrete variant of a work-instruction node.
type NodeKind string

const (
	KindStep NodeKind = "step"
	KindPart NodeKind = "part"
)

// Node is one ordered element of a work instruction. The concrete
// variants are StepNode and PartNode; switches over Kind() must handle
// both and treat anything else as an error.
type Node interface {
	NodeID() string
	Kind() NodeKind
	NodePosition() int
	SetPosition(pos int)
}

// StepNode carries instructional content for one production step.
type StepNode struct {
	ID             string   `json:"id"`
	Position       int      `json:"position"`
	Name           string   `json:"name"`
	Body           string   `json:"body"`
	DetailedBody   string   `json:"detailed_body,omitempty"`
	PrimaryMedia   []string `json:"primary_media,omitempty"`
	SecondaryMedia []string `json:"secondary_media,omitempty"`
}

func (n *StepNode) NodeID() string { return n.ID }
func (n *StepNode) Kind() NodeKind { return KindStep }
func (n *StepNode) NodePosition() int { return n.Position }
func (n *StepNode) SetPosition(pos int) { n.Position = pos }

// MarshalJSON tags the node with its kind so API clients can tell the
// variants apart.
func (n *StepNode) MarshalJSON() ([]byte, error) {
	type alias StepNode
	return json.Marshal(struct {
		Kind NodeKind `json:"kind"`
		*alias
	}{Kind: KindStep, alias: (*alias)(n)})
}

// PartNode marks the point where a part is installed.
type PartNode struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	PartID   string `json:"part_id"`
}

func (n *PartNode) NodeID() string { return n.ID }
func (n *PartNode) Kind() NodeKind { return KindPart }
func (n *PartNode) NodePosition() int { return n.Position }
func (n *PartNode) SetPosition(pos int) { n.Position = pos }

func (n *PartNode) MarshalJSON() ([]byte, error) {
	type alias PartNode
	return json.Marshal(struct {
		Kind NodeKind `json:"kind"`
		*alias
	}{Kind: KindPart, alias: (*alias)(n)})
}

// MediaDuplicator re-persists a referenced media file under a new
// storage path, returning the new path. Cloning a step node is the one
// place node copying has an externally observable side effect.
type MediaDuplicator interface {
	Duplicate(path string) (string, error)
}

// CloneNode deep-copies a node, assigning a fresh identifier. Media
// references on step nodes are duplicated through dup so the clone
// never shares files with the source.
func CloneNode(n Node, dup MediaDuplicator) (Node, error) {
	switch src := n.(type) {
	case *StepNode:
		clone := &StepNode{
			ID:           uuid.NewString(),
			Position:     src.Position,
			Name:         src.Name,
			Body:         src.Body,
			DetailedBody: src.DetailedBody,
		}
		var err error
		if clone.PrimaryMedia, err = duplicateAll(src.PrimaryMedia, dup); err != nil {
			return nil, err
		}
		if clone.SecondaryMedia, err = duplicateAll(src.SecondaryMedia, dup); err != nil {
			return nil, err
		}
		return clone, nil
	case *PartNode:
		return &PartNode{
			ID:       uuid.NewString(),
			Position: src.Position,
			PartID:   src.PartID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", n.Kind())
	}
}

// CloneNodes deep-copies all nodes in order.
func CloneNodes(nodes []Node, dup MediaDuplicator) ([]Node, error) {
	clones := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		clone, err := CloneNode(n, dup)
		if err != nil {
			return nil, fmt.Errorf("cloning node %s: %w", n.NodeID(), err)
		}
		clones = append(clones, clone)
	}
	return clones, nil
}

// MediaPaths collects every media path referenced by the given nodes,
// in document order.
func MediaPaths(nodes []Node) []string {
	var paths []string
	for _, n := range nodes {
		if step, ok := n.(*StepNode); ok {
			paths = append(paths, step.PrimaryMedia...)
			paths = append(paths, step.SecondaryMedia...)
		}
	}
	return paths
}

func duplicateAll(paths []string, dup MediaDuplicator) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		newPath, err := dup.Duplicate(path)
		if err != nil {
			return nil, fmt.Errorf("duplicating media %s: %w", path, err)
		}
		out = append(out, newPath)
	}
	return out, nil
}
