package prodlog

// Reconciliation applies form-submitted aggregates onto the persisted
// production log. Updates are matched by identifier: an absent or zero
// identifier always means "create". These functions are pure list
// merges; they validate before mutating so a failed call leaves the
// target untouched.

// ReconcileAttempts applies updates onto an existing attempt
// collection. Updates carrying a known ID overwrite that attempt's
// fields in place; updates with ID zero append a new attempt. Existing
// attempts not referenced by any update are retained: attempt history
// below the step level is append-only, pruning happens only at the
// step level in ReconcileSteps.
//
// Re-applying the same updates changes no existing values, though
// zero-ID entries will append again (callers must not resubmit them).
func ReconcileAttempts(existing *[]Attempt, updates []Attempt) error {
	if existing == nil || updates == nil {
		return ErrInvalidInput
	}

	for _, u := range updates {
		if u.ID == 0 {
			*existing = append(*existing, Attempt{
				Outcome:     u.Outcome,
				FailureNote: u.FailureNote,
				SubmittedAt: u.SubmittedAt,
			})
			continue
		}
		for i := range *existing {
			if (*existing)[i].ID == u.ID {
				(*existing)[i].Outcome = u.Outcome
				(*existing)[i].FailureNote = u.FailureNote
				(*existing)[i].SubmittedAt = u.SubmittedAt
				break
			}
		}
	}
	return nil
}

// ReconcileSteps applies a full step list onto a production log. Steps
// in updates with a known ID have their attempts reconciled in place;
// steps with an empty ID are appended as new. Steps the log currently
// owns whose ID is absent from updates are removed together with their
// attempts — unlike attempts, steps are pruned to the incoming set.
//
// Every update must reference an instruction step; the reference check
// runs before any mutation so there is no partial application.
func ReconcileSteps(log *ProductionLog, updates []LogStep) error {
	if log == nil || updates == nil {
		return ErrInvalidInput
	}
	for _, u := range updates {
		if u.StepID == "" {
			return ErrInvalidInput
		}
	}

	stepIDsToKeep := make(map[string]bool, len(updates))
	for _, u := range updates {
		if u.ID != "" {
			stepIDsToKeep[u.ID] = true
		}
	}

	kept := log.Steps[:0]
	for _, s := range log.Steps {
		if stepIDsToKeep[s.ID] {
			kept = append(kept, s)
		}
	}
	log.Steps = kept

	for _, u := range updates {
		attempts := u.Attempts
		if attempts == nil {
			attempts = []Attempt{}
		}
		if u.ID == "" {
			newStep := LogStep{StepID: u.StepID}
			if err := ReconcileAttempts(&newStep.Attempts, attempts); err != nil {
				return err
			}
			log.Steps = append(log.Steps, newStep)
			continue
		}
		for i := range log.Steps {
			if log.Steps[i].ID == u.ID {
				if err := ReconcileAttempts(&log.Steps[i].Attempts, attempts); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}
