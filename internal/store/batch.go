package store

import (
	"fmt"
	"strings"
)

// CommandOutcome is the result of one command inside a batch.
type CommandOutcome struct {
	// Name is the store command, e.g. "HSET" or "ZADD".
	Name string
	// Key is the location the command targeted.
	Key string
	// Err is nil when the command applied.
	Err error
}

// BatchResult carries the per-command outcomes of one dispatched batch, in
// submission order.
type BatchResult struct {
	Outcomes []CommandOutcome
}

// Failed returns the outcomes that did not apply.
func (r BatchResult) Failed() []CommandOutcome {
	var failed []CommandOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Ok reports whether every command in the batch applied.
func (r BatchResult) Ok() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}

// PartialWriteError reports a batch in which some commands applied and
// others did not, leaving the primary record and its indexes possibly out
// of step. It names the entity and every failed command so an operator
// repair pass can re-derive and re-apply the missing deltas. The core never
// retries these automatically.
type PartialWriteError struct {
	EntityType string
	EntityID   string
	Failed     []CommandOutcome
}

func (e *PartialWriteError) Error() string {
	cmds := make([]string, 0, len(e.Failed))
	for _, o := range e.Failed {
		cmds = append(cmds, fmt.Sprintf("%s %s: %v", o.Name, o.Key, o.Err))
	}
	return fmt.Sprintf("partial write for %s %s: %d command(s) failed: %s",
		e.EntityType, e.EntityID, len(e.Failed), strings.Join(cmds, "; "))
}

// CheckBatch converts a batch result into a PartialWriteError when any
// command failed, or nil when the whole batch applied.
func CheckBatch(entityType, entityID string, res BatchResult) error {
	failed := res.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &PartialWriteError{EntityType: entityType, EntityID: entityID, Failed: failed}
}
