package audit

import (
	sharedDomain "github.com/kilgorjn/patient-scheduling/internal/shared/domain"
	"github.com/google/uuid"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

const (
	// AggregateType identifies the solve-run aggregate for outbox messages.
	AggregateType = "SolveRun"

	// RoutingKeyScheduleSolved is the routing key for ScheduleSolved events.
	RoutingKeyScheduleSolved = "solver.schedule.solved"
)

// ScheduleSolved is emitted once a solve attempt reaches OPTIMAL or
// FEASIBLE, carrying enough of the Run to let downstream consumers (a
// catalog service, a notification worker) react without re-querying the
// audit trail.
type ScheduleSolved struct {
	sharedDomain.BaseEvent
	RunID       uuid.UUID     `json:"run_id"`
	Fingerprint string        `json:"fingerprint"`
	Status      domain.Status `json:"status"`
	Objective   *int64        `json:"objective,omitempty"`
	SolveTimeMs int64         `json:"solve_time_ms"`
}

// NewScheduleSolved builds a ScheduleSolved event from a recorded run.
func NewScheduleSolved(run *Run) ScheduleSolved {
	return ScheduleSolved{
		BaseEvent:   sharedDomain.NewBaseEvent(run.ID, AggregateType, RoutingKeyScheduleSolved),
		RunID:       run.ID,
		Fingerprint: run.Fingerprint,
		Status:      run.Status,
		Objective:   run.Objective,
		SolveTimeMs: run.SolveTimeMs,
	}
}
