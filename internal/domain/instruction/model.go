package instruction

import "time"

// WorkInstruction is a versioned template describing the ordered steps
// and part installations operators follow to build a product.
//
// Instructions sharing the same OriginalID form a version chain. The
// chain root's OriginalID equals its own ID, so chain membership is a
// single-column lookup. At most one chain member carries IsLatest and
// at most one carries IsActive.
type WorkInstruction struct {
	ID                    string    `json:"id"`
	OriginalID            string    `json:"original_id"`
	Title                 string    `json:"title"`
	Version               string    `json:"version"`
	IsLatest              bool      `json:"is_latest"`
	IsActive              bool      `json:"is_active"`
	CollectsProductSerial bool      `json:"collects_product_serial"`
	CreatedAt             time.Time `json:"created_at"`
	ProductIDs            []string  `json:"product_ids,omitempty"`
	Nodes                 []Node    `json:"nodes"`
}

// Summary is a lightweight representation for listing.
type Summary struct {
	ID         string    `json:"id"`
	OriginalID string    `json:"original_id"`
	Title      string    `json:"title"`
	Version    string    `json:"version"`
	IsLatest   bool      `json:"is_latest"`
	IsActive   bool      `json:"is_active"`
	NodeCount  int       `json:"node_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// StepNodes returns the instruction's step nodes in position order.
func (wi *WorkInstruction) StepNodes() []*StepNode {
	var steps []*StepNode
	for _, n := range wi.Nodes {
		if step, ok := n.(*StepNode); ok {
			steps = append(steps, step)
		}
	}
	return steps
}

// HasStep reports whether a step node with the given ID exists.
func (wi *WorkInstruction) HasStep(nodeID string) bool {
	for _, step := range wi.StepNodes() {
		if step.ID == nodeID {
			return true
		}
	}
	return false
}
