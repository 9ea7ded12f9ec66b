// internal/pipeline/events.go
package pipeline

import (
	"time"

	"study-advisor/internal/common/errors"
	"study-advisor/internal/models"
)

// State is the orchestrator's run state. A run moves strictly forward through
// the five working states; Failed and Cancelled are terminal and reachable
// from any working state.
type State string

const (
	StateIdle               State = "idle"
	StateNormalizing        State = "normalizing"
	StateStage1Running      State = "stage1-running"
	StateStage2Running      State = "stage2-running"
	StateContingencyRunning State = "contingency-running"
	StateAssembling         State = "assembling"
	StateDone               State = "done"
	StateFailed             State = "failed"
	StateCancelled          State = "cancelled"
)

// ProgressEvent is one user-visible state transition. A successful run emits
// exactly five: normalizing, the two stage groups, contingency, and done.
type ProgressEvent struct {
	RunID       string             `json:"runId"`
	State       State              `json:"state"`
	Label       string             `json:"label"`
	At          time.Time          `json:"at"`
	FailedStage models.StageKind   `json:"failedStage,omitempty"`
	Error       *errors.StageError `json:"error,omitempty"`
}

// EventSink receives progress events as the run advances. A nil sink is
// allowed and discards events.
type EventSink func(ProgressEvent)
