// Package autosave debounces edits to the active production log so the
// form is persisted after a quiet period instead of on every keystroke.
package autosave

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/notify"
)

// Delay is the quiet period after the last edit before a save fires.
const Delay = 2000 * time.Millisecond

// SaveFunc persists the production log. The callback owns its own
// error handling; the coordinator does not retry failed saves.
type SaveFunc func(log *prodlog.ProductionLog)

// Coordinator watches edits to one session's active production log and
// triggers a debounced save. A new edit cancels and replaces any
// pending timer, so only the final edit in a burst causes a save.
type Coordinator struct {
	logger *slog.Logger
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	enabled bool
	saved   bool
	save    SaveFunc
	current *prodlog.ProductionLog

	logChanged         *notify.Topic[*prodlog.ProductionLog]
	productChanged     *notify.Topic[string]
	instructionChanged *notify.Topic[string]
	operatorChanged    *notify.Topic[string]
	stationChanged     *notify.Topic[string]
}

// New creates an enabled coordinator with no callback registered.
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:             logger,
		delay:              Delay,
		enabled:            true,
		saved:              true,
		logChanged:         notify.NewTopic[*prodlog.ProductionLog](),
		productChanged:     notify.NewTopic[string](),
		instructionChanged: notify.NewTopic[string](),
		operatorChanged:    notify.NewTopic[string](),
		stationChanged:     notify.NewTopic[string](),
	}
}

// RegisterSave sets the autosave callback.
func (c *Coordinator) RegisterSave(fn SaveFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.save = fn
}

// EnableAutoSave allows future edits to schedule saves.
func (c *Coordinator) EnableAutoSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// DisableAutoSave stops future edits from scheduling saves. A timer
// that is already running is not canceled.
func (c *Coordinator) DisableAutoSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// ChangeMadeToProductionLog restarts the debounce timer. Only the last
// call within the quiet period results in a save.
func (c *Coordinator) ChangeMadeToProductionLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeMadeLocked()
}

func (c *Coordinator) changeMadeLocked() {
	if !c.enabled {
		return
	}
	c.saved = false

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
}

// Edit applies fn to the active log and restarts the debounce timer.
// The mutation and the timer arm happen under the coordinator lock, so
// a firing save never observes a half-applied edit. Returns false when
// no log is loaded.
func (c *Coordinator) Edit(fn func(log *prodlog.ProductionLog)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false
	}
	fn(c.current)
	c.changeMadeLocked()
	return true
}

// fire hands the callback a deep copy taken under the lock; the live
// log stays free for concurrent edits while the save runs.
func (c *Coordinator) fire() {
	c.mu.Lock()
	save := c.save
	var snapshot *prodlog.ProductionLog
	if c.current != nil {
		snapshot = c.current.Clone()
	}
	c.timer = nil
	if save != nil {
		c.saved = true
	}
	c.mu.Unlock()

	if save == nil || snapshot == nil {
		return
	}
	save(snapshot)
}

// AdoptSaved feeds the persisted aggregate back into the session after
// a save, so identifiers the store assigned (step ids, attempt ids)
// survive into the next save instead of the steps being recreated. If
// an edit arrived while the save ran, the edited log is kept and only
// the assigned identifiers are copied over.
func (c *Coordinator) AdoptSaved(saved *prodlog.ProductionLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != saved.ID {
		return
	}
	if c.saved {
		c.current = saved
		return
	}
	adoptIdentifiers(c.current, saved)
}

// adoptIdentifiers copies store-assigned ids from the persisted log
// into the live one. Steps match on the instruction step they record;
// attempts match positionally, which holds because reconciliation
// retains existing attempts in order and appends new ones at the end.
func adoptIdentifiers(current, saved *prodlog.ProductionLog) {
	byStepID := make(map[string]*prodlog.LogStep, len(saved.Steps))
	for i := range saved.Steps {
		byStepID[saved.Steps[i].StepID] = &saved.Steps[i]
	}
	for i := range current.Steps {
		persisted, ok := byStepID[current.Steps[i].StepID]
		if !ok {
			continue
		}
		if current.Steps[i].ID == "" {
			current.Steps[i].ID = persisted.ID
		}
		for j := range current.Steps[i].Attempts {
			if current.Steps[i].Attempts[j].ID == 0 && j < len(persisted.Attempts) {
				current.Steps[i].Attempts[j].ID = persisted.Attempts[j].ID
			}
		}
	}
}

// IsSaved reports whether the last edit has been flushed.
func (c *Coordinator) IsSaved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved
}

// SetActiveLog replaces the production log under edit.
func (c *Coordinator) SetActiveLog(log *prodlog.ProductionLog) {
	c.mu.Lock()
	c.current = log
	c.mu.Unlock()
	c.logChanged.Publish(log)
}

// ActiveLog returns the production log under edit.
func (c *Coordinator) ActiveLog() *prodlog.ProductionLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetProductName announces the active product to narrow subscribers.
func (c *Coordinator) SetProductName(name string) {
	c.productChanged.Publish(name)
}

// SetWorkInstructionName announces the active work instruction.
func (c *Coordinator) SetWorkInstructionName(name string) {
	c.instructionChanged.Publish(name)
}

// SetOperatorName announces the line operator.
func (c *Coordinator) SetOperatorName(name string) {
	c.operatorChanged.Publish(name)
}

// SetStationName announces the work station.
func (c *Coordinator) SetStationName(name string) {
	c.stationChanged.Publish(name)
}

// LogChanged notifies when the active log is replaced.
func (c *Coordinator) LogChanged() *notify.Topic[*prodlog.ProductionLog] { return c.logChanged }

// ProductChanged notifies on product name changes.
func (c *Coordinator) ProductChanged() *notify.Topic[string] { return c.productChanged }

// InstructionChanged notifies on work-instruction name changes.
func (c *Coordinator) InstructionChanged() *notify.Topic[string] { return c.instructionChanged }

// OperatorChanged notifies on line-operator name changes.
func (c *Coordinator) OperatorChanged() *notify.Topic[string] { return c.operatorChanged }

// StationChanged notifies on work-station name changes.
func (c *Coordinator) StationChanged() *notify.Topic[string] { return c.stationChanged }
