package prodlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconcileAttempts_UpdateAndAppend(t *testing.T) {
	submitted := time.Now()
	existing := []Attempt{
		{ID: 10, Outcome: OutcomeSuccess},
		{ID: 11, Outcome: OutcomeUndecided},
	}

	updates := []Attempt{
		{ID: 10, Outcome: OutcomeFailure, FailureNote: "torque out of range", SubmittedAt: submitted},
		{Outcome: OutcomeSuccess, SubmittedAt: submitted},
	}

	err := ReconcileAttempts(&existing, updates)
	require.NoError(t, err)

	// Attempt 10 updated in place, attempt 11 untouched, one appended.
	require.Len(t, existing, 3)
	require.Equal(t, OutcomeFailure, existing[0].Outcome)
	require.Equal(t, "torque out of range", existing[0].FailureNote)
	require.Equal(t, OutcomeUndecided, existing[1].Outcome)
	require.Equal(t, int64(0), existing[2].ID)
	require.Equal(t, OutcomeSuccess, existing[2].Outcome)
}

func TestReconcileAttempts_UnreferencedAreRetained(t *testing.T) {
	existing := []Attempt{
		{ID: 1, Outcome: OutcomeSuccess},
		{ID: 2, Outcome: OutcomeFailure, FailureNote: "scratched housing"},
	}

	err := ReconcileAttempts(&existing, []Attempt{{ID: 1, Outcome: OutcomeUndecided}})
	require.NoError(t, err)

	// Attempts absent from the update list are history, not deletions.
	require.Len(t, existing, 2)
	require.Equal(t, "scratched housing", existing[1].FailureNote)
}

func TestReconcileAttempts_IdempotentForIDUpdates(t *testing.T) {
	existing := []Attempt{{ID: 5, Outcome: OutcomeUndecided}}
	updates := []Attempt{{ID: 5, Outcome: OutcomeSuccess}}

	require.NoError(t, ReconcileAttempts(&existing, updates))
	first := append([]Attempt{}, existing...)

	require.NoError(t, ReconcileAttempts(&existing, updates))
	require.Equal(t, first, existing)
}

func TestReconcileAttempts_NilInputs(t *testing.T) {
	var existing []Attempt
	require.ErrorIs(t, ReconcileAttempts(nil, []Attempt{}), ErrInvalidInput)
	require.ErrorIs(t, ReconcileAttempts(&existing, nil), ErrInvalidInput)
}

func TestReconcileSteps_PrunesMissingSteps(t *testing.T) {
	log := &ProductionLog{
		Steps: []LogStep{
			{ID: "s1", StepID: "n1", Attempts: []Attempt{{ID: 1, Outcome: OutcomeSuccess}}},
			{ID: "s2", StepID: "n2", Attempts: []Attempt{{ID: 2, Outcome: OutcomeFailure}}},
		},
	}

	err := ReconcileSteps(log, []LogStep{
		{ID: "s1", StepID: "n1", Attempts: []Attempt{{ID: 1, Outcome: OutcomeFailure}}},
	})
	require.NoError(t, err)

	// s2 removed, s1 kept with its attempt updated.
	require.Len(t, log.Steps, 1)
	require.Equal(t, "s1", log.Steps[0].ID)
	require.Equal(t, OutcomeFailure, log.Steps[0].Attempts[0].Outcome)
}

func TestReconcileSteps_AppendsNewSteps(t *testing.T) {
	log := &ProductionLog{
		Steps: []LogStep{{ID: "s1", StepID: "n1"}},
	}

	err := ReconcileSteps(log, []LogStep{
		{ID: "s1", StepID: "n1"},
		{StepID: "n2", Attempts: []Attempt{{Outcome: OutcomeSuccess}}},
	})
	require.NoError(t, err)

	require.Len(t, log.Steps, 2)
	require.Empty(t, log.Steps[1].ID)
	require.Equal(t, "n2", log.Steps[1].StepID)
	require.Len(t, log.Steps[1].Attempts, 1)
}

func TestReconcileSteps_ValidatesBeforeMutating(t *testing.T) {
	log := &ProductionLog{
		Steps: []LogStep{{ID: "s1", StepID: "n1"}},
	}

	// Second update is missing its step reference; the first must not
	// have been applied.
	err := ReconcileSteps(log, []LogStep{
		{ID: "s1", StepID: "n1", Attempts: []Attempt{{Outcome: OutcomeSuccess}}},
		{StepID: ""},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Len(t, log.Steps, 1)
	require.Empty(t, log.Steps[0].Attempts)
}

func TestReconcileSteps_NilInputs(t *testing.T) {
	require.ErrorIs(t, ReconcileSteps(nil, []LogStep{}), ErrInvalidInput)
	require.ErrorIs(t, ReconcileSteps(&ProductionLog{}, nil), ErrInvalidInput)
}

func TestProductionLog_CloneIsIndependent(t *testing.T) {
	orig := &ProductionLog{
		ID:        "log1",
		BatchSize: 3,
		Steps: []LogStep{
			{ID: "ls1", StepID: "n1", Attempts: []Attempt{{ID: 1, Outcome: OutcomeFailure}}},
		},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)
	require.NotSame(t, orig, clone)

	clone.BatchSize = 9
	clone.Steps[0].ID = "changed"
	clone.Steps[0].Attempts[0].Outcome = OutcomeSuccess
	clone.Steps = append(clone.Steps, LogStep{StepID: "n2"})

	require.Equal(t, 3, orig.BatchSize)
	require.Equal(t, "ls1", orig.Steps[0].ID)
	require.Equal(t, OutcomeFailure, orig.Steps[0].Attempts[0].Outcome)
	require.Len(t, orig.Steps, 1)
}
