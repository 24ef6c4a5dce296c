package functional

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/domain/user"
	"github.com/lineside/mes/internal/testserver"
)

func TestLoginAndLogout(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	// Token works
	status := ts.Do(t, http.MethodGet, "/api/products", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	// Wrong password rejected
	status = ts.Do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Logout revokes the token
	status = ts.Do(t, http.MethodPost, "/api/auth/logout", token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = ts.Do(t, http.MethodGet, "/api/products", token, nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestOperatorCannotAuthor(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "operator", user.RoleOperator)

	status := ts.Do(t, http.MethodPost, "/api/products", token,
		map[string]any{"name": "Bracket", "is_active": true}, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestProductCRUD(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	var created product.Product
	status := ts.Do(t, http.MethodPost, "/api/products", token,
		map[string]any{"name": "Bracket assembly", "is_active": true}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)

	var got product.Product
	status = ts.Do(t, http.MethodGet, "/api/products/"+created.ID, token, nil, &got)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Bracket assembly", got.Name)

	status = ts.Do(t, http.MethodPut, "/api/products/"+created.ID, token,
		map[string]any{"name": "Bracket assembly rev B", "is_active": false}, &got)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Bracket assembly rev B", got.Name)
	require.False(t, got.IsActive)

	status = ts.Do(t, http.MethodDelete, "/api/products/"+created.ID, token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = ts.Do(t, http.MethodGet, "/api/products/"+created.ID, token, nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

// createInstruction authors a product and a two-step instruction,
// returning both.
func createInstruction(t *testing.T, ts *testserver.TestServer, token string) (product.Product, instructionDoc) {
	t.Helper()

	var p product.Product
	status := ts.Do(t, http.MethodPost, "/api/products", token,
		map[string]any{"name": "Bracket assembly", "is_active": true}, &p)
	require.Equal(t, http.StatusCreated, status)

	var wi instructionDoc
	status = ts.Do(t, http.MethodPost, "/api/instructions", token, map[string]any{
		"title":                   "Assemble bracket",
		"product_ids":             []string{p.ID},
		"collects_product_serial": true,
		"nodes": []map[string]any{
			{"kind": "step", "name": "Deburr edges", "body": "Remove sharp edges."},
			{"kind": "step", "name": "Torque bolts", "body": "Torque to 12 Nm."},
		},
	}, &wi)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, wi.ID)

	return p, wi
}

// instructionDoc mirrors the wire shape of a work instruction with
// nodes decoded loosely.
type instructionDoc struct {
	ID         string           `json:"id"`
	OriginalID string           `json:"original_id"`
	Title      string           `json:"title"`
	Version    string           `json:"version"`
	IsLatest   bool             `json:"is_latest"`
	IsActive   bool             `json:"is_active"`
	Nodes      []map[string]any `json:"nodes"`
}

func TestInstructionAuthoringFlow(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	_, wi := createInstruction(t, ts, token)
	require.Equal(t, "1.0", wi.Version)
	require.True(t, wi.IsLatest)
	require.Equal(t, wi.ID, wi.OriginalID)
	require.Len(t, wi.Nodes, 2)

	// Activate it
	var activated instructionDoc
	status := ts.Do(t, http.MethodPost, "/api/instructions/"+wi.ID+"/toggle-active", token, nil, &activated)
	require.Equal(t, http.StatusOK, status)
	require.True(t, activated.IsActive)

	// Cut a new version
	var v2 instructionDoc
	status = ts.Do(t, http.MethodPost, "/api/instructions/"+wi.ID+"/versions", token, nil, &v2)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "1.1", v2.Version)
	require.Equal(t, wi.ID, v2.OriginalID)
	require.NotEqual(t, wi.ID, v2.ID)
	require.True(t, v2.IsLatest)

	// Old version lost the latest flag
	var old instructionDoc
	status = ts.Do(t, http.MethodGet, "/api/instructions/"+wi.ID, token, nil, &old)
	require.Equal(t, http.StatusOK, status)
	require.False(t, old.IsLatest)

	// Chain listing shows both versions
	var chain []instruction.Summary
	status = ts.Do(t, http.MethodGet, "/api/instructions/"+v2.ID+"/chain", token, nil, &chain)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, chain, 2)
}

func TestInstructionUpdateDeletesNodes(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	p, wi := createInstruction(t, ts, token)

	keptID := wi.Nodes[0]["id"].(string)

	// Drop the second node, keep the first with an edit
	var updated instructionDoc
	status := ts.Do(t, http.MethodPut, "/api/instructions/"+wi.ID, token, map[string]any{
		"title":                   "Assemble bracket",
		"product_ids":             []string{p.ID},
		"collects_product_serial": true,
		"nodes": []map[string]any{
			{"id": keptID, "kind": "step", "name": "Deburr all edges", "body": "Remove sharp edges."},
		},
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, updated.Nodes, 1)
	require.Equal(t, "Deburr all edges", updated.Nodes[0]["name"])

	// The dropped node is gone from storage too
	var got instructionDoc
	status = ts.Do(t, http.MethodGet, "/api/instructions/"+wi.ID, token, nil, &got)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, got.Nodes, 1)
}

func TestProductionLogFlow(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	p, wi := createInstruction(t, ts, token)
	stepID := wi.Nodes[0]["id"].(string)

	// Record a run with one failed attempt
	var log prodlog.ProductionLog
	status := ts.Do(t, http.MethodPost, "/api/logs", token, map[string]any{
		"work_instruction_id": wi.ID,
		"product_id":          p.ID,
		"batch_size":          5,
		"product_serial":      "SN-001",
		"steps": []map[string]any{
			{"work_instruction_step_id": stepID, "attempts": []map[string]any{
				{"outcome": "failure", "failure_note": "thread stripped"},
			}},
		},
	}, &log)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, log.Steps, 1)
	require.Len(t, log.Steps[0].Attempts, 1)
	attemptID := log.Steps[0].Attempts[0].ID
	require.NotZero(t, attemptID)

	// Update the stored attempt and record a successful retry
	var updated prodlog.ProductionLog
	status = ts.Do(t, http.MethodPut, "/api/logs/"+log.ID, token, map[string]any{
		"batch_size": 6,
		"steps": []map[string]any{
			{"id": log.Steps[0].ID, "work_instruction_step_id": stepID, "attempts": []map[string]any{
				{"id": attemptID, "outcome": "failure", "failure_note": "thread stripped, scrapped"},
				{"outcome": "success"},
			}},
		},
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 6, updated.BatchSize)
	require.Len(t, updated.Steps[0].Attempts, 2)
	require.Equal(t, attemptID, updated.Steps[0].Attempts[0].ID)
	require.Equal(t, "thread stripped, scrapped", updated.Steps[0].Attempts[0].FailureNote)
	require.Equal(t, prodlog.OutcomeSuccess, updated.Steps[0].Attempts[1].Outcome)

	// Unknown step reference is rejected
	status = ts.Do(t, http.MethodPost, "/api/logs", token, map[string]any{
		"work_instruction_id": wi.ID,
		"product_id":          p.ID,
		"batch_size":          1,
		"steps": []map[string]any{
			{"work_instruction_step_id": "bogus", "attempts": []map[string]any{}},
		},
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Instruction with recorded logs cannot be deleted
	status = ts.Do(t, http.MethodDelete, "/api/instructions/"+wi.ID, token, nil, nil)
	require.Equal(t, http.StatusConflict, status)

	// Deleting the log releases the instruction
	status = ts.Do(t, http.MethodDelete, "/api/logs/"+log.ID, token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = ts.Do(t, http.MethodDelete, "/api/instructions/"+wi.ID, token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestLogSessionFlow(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	p, wi := createInstruction(t, ts, token)
	stepID := wi.Nodes[0]["id"].(string)

	var log prodlog.ProductionLog
	status := ts.Do(t, http.MethodPost, "/api/logs", token, map[string]any{
		"work_instruction_id": wi.ID,
		"product_id":          p.ID,
		"batch_size":          5,
		"steps":               []map[string]any{},
	}, &log)
	require.Equal(t, http.StatusCreated, status)

	// No session yet
	status = ts.Do(t, http.MethodGet, "/api/session/log", token, nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	var opened prodlog.ProductionLog
	status = ts.Do(t, http.MethodPut, "/api/session/log", token,
		map[string]string{"production_log_id": log.ID}, &opened)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, log.ID, opened.ID)

	var sess struct {
		ProductionLogID string `json:"production_log_id"`
		Saved           bool   `json:"saved"`
	}
	status = ts.Do(t, http.MethodGet, "/api/session/log", token, nil, &sess)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, log.ID, sess.ProductionLogID)
	require.True(t, sess.Saved)

	// Stop the debounce so the edit below stays in memory
	status = ts.Do(t, http.MethodPut, "/api/session/autosave", token,
		map[string]bool{"enabled": false}, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = ts.Do(t, http.MethodPost, "/api/session/log/changes", token, map[string]any{
		"batch_size": 7,
		"steps": []map[string]any{
			{"work_instruction_step_id": stepID, "attempts": []map[string]any{
				{"outcome": "success"},
			}},
		},
	}, nil)
	require.Equal(t, http.StatusAccepted, status)

	// With autosave off the change armed no save and storage is untouched
	status = ts.Do(t, http.MethodGet, "/api/session/log", token, nil, &sess)
	require.Equal(t, http.StatusOK, status)
	require.True(t, sess.Saved)

	var stored prodlog.ProductionLog
	status = ts.Do(t, http.MethodGet, "/api/logs/"+log.ID, token, nil, &stored)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 5, stored.BatchSize)

	status = ts.Do(t, http.MethodDelete, "/api/session/log", token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = ts.Do(t, http.MethodGet, "/api/session/log", token, nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestLogSessionAutosavePersists(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "admin", user.RoleAdmin)

	p, wi := createInstruction(t, ts, token)
	stepID := wi.Nodes[0]["id"].(string)

	var log prodlog.ProductionLog
	status := ts.Do(t, http.MethodPost, "/api/logs", token, map[string]any{
		"work_instruction_id": wi.ID,
		"product_id":          p.ID,
		"batch_size":          5,
		"steps":               []map[string]any{},
	}, &log)
	require.Equal(t, http.StatusCreated, status)

	status = ts.Do(t, http.MethodPut, "/api/session/log", token,
		map[string]string{"production_log_id": log.ID}, nil)
	require.Equal(t, http.StatusOK, status)

	// First edit records a step with one attempt; the debounce fire
	// persists it.
	status = ts.Do(t, http.MethodPost, "/api/session/log/changes", token, map[string]any{
		"batch_size": 6,
		"steps": []map[string]any{
			{"work_instruction_step_id": stepID, "attempts": []map[string]any{
				{"outcome": "failure", "failure_note": "thread stripped"},
			}},
		},
	}, nil)
	require.Equal(t, http.StatusAccepted, status)

	var first prodlog.ProductionLog
	require.Eventually(t, func() bool {
		st := ts.Do(t, http.MethodGet, "/api/logs/"+log.ID, token, nil, &first)
		return st == http.StatusOK && first.BatchSize == 6 && len(first.Steps) == 1
	}, 5*time.Second, 100*time.Millisecond)
	require.Len(t, first.Steps[0].Attempts, 1)
	stepRowID := first.Steps[0].ID
	attemptID := first.Steps[0].Attempts[0].ID
	require.NotEmpty(t, stepRowID)
	require.NotZero(t, attemptID)

	// A follow-up edit saves again; the persisted step and attempt
	// keep their rows instead of being recreated.
	status = ts.Do(t, http.MethodPost, "/api/session/log/changes", token,
		map[string]any{"batch_size": 7}, nil)
	require.Equal(t, http.StatusAccepted, status)

	var second prodlog.ProductionLog
	require.Eventually(t, func() bool {
		st := ts.Do(t, http.MethodGet, "/api/logs/"+log.ID, token, nil, &second)
		return st == http.StatusOK && second.BatchSize == 7
	}, 5*time.Second, 100*time.Millisecond)
	require.Len(t, second.Steps, 1)
	require.Equal(t, stepRowID, second.Steps[0].ID)
	require.Len(t, second.Steps[0].Attempts, 1)
	require.Equal(t, attemptID, second.Steps[0].Attempts[0].ID)
	require.Equal(t, "thread stripped", second.Steps[0].Attempts[0].FailureNote)
}

func TestPreferences(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Login(t, "operator", user.RoleOperator)

	status := ts.Do(t, http.MethodPut, "/api/preferences/station", token,
		map[string]string{"value": "bay-3"}, nil)
	require.Equal(t, http.StatusNoContent, status)

	var prefs map[string]string
	status = ts.Do(t, http.MethodGet, "/api/preferences", token, nil, &prefs)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, map[string]string{"station": "bay-3"}, prefs)
}
