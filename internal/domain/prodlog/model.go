package prodlog

import "time"

// Outcome is the tri-state result of one step attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeUndecided Outcome = "undecided"
)

// Attempt is one recorded outcome for a step within a production log.
// ID zero means the attempt hasn't been persisted yet.
type Attempt struct {
	ID          int64     `json:"id"`
	Outcome     Outcome   `json:"outcome"`
	FailureNote string    `json:"failure_note,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LogStep records the attempts made against one work-instruction step.
// An empty ID means the step hasn't been persisted yet.
type LogStep struct {
	ID       string    `json:"id"`
	StepID   string    `json:"work_instruction_step_id"`
	Attempts []Attempt `json:"attempts"`
}

// ProductionLog records one execution of a work instruction against a
// product.
type ProductionLog struct {
	ID                string    `json:"id"`
	WorkInstructionID string    `json:"work_instruction_id"`
	ProductID         string    `json:"product_id"`
	Operator          string    `json:"operator"`
	BatchSize         int       `json:"batch_size"`
	ProductSerial     string    `json:"product_serial,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Steps             []LogStep `json:"steps"`
}

// Clone deep-copies the log with its steps and attempts, so the copy
// can be read or mutated without touching the original.
func (l *ProductionLog) Clone() *ProductionLog {
	out := *l
	if l.Steps != nil {
		out.Steps = make([]LogStep, len(l.Steps))
		for i, step := range l.Steps {
			out.Steps[i] = step
			out.Steps[i].Attempts = append([]Attempt(nil), step.Attempts...)
		}
	}
	return &out
}

// Summary is a lightweight representation for listing.
type Summary struct {
	ID                string    `json:"id"`
	WorkInstructionID string    `json:"work_instruction_id"`
	ProductID         string    `json:"product_id"`
	Operator          string    `json:"operator"`
	BatchSize         int       `json:"batch_size"`
	StepCount         int       `json:"step_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
