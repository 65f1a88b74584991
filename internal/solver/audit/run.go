// Package audit persists a record of every solve attempt — the instance
// fingerprint, status, objective, and timing — independent of the catalog
// service (out of the core's scope per §1) which owns the saved-schedule
// data itself. This is a supplemental feature: the core spec is silent on
// audit trails, but a production scheduling service needs one to diagnose
// "why did this instance come back INFEASIBLE last Tuesday".
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

// Run is one recorded solve attempt.
type Run struct {
	ID          uuid.UUID
	Fingerprint string
	Status      domain.Status
	Objective   *int64
	Message     string
	SolveTimeMs int64
	CreatedAt   time.Time
}

// NewRun builds a Run from a completed response.
func NewRun(fingerprint string, resp *domain.Response) *Run {
	return &Run{
		ID:          uuid.New(),
		Fingerprint: fingerprint,
		Status:      resp.Status,
		Objective:   resp.Objective,
		Message:     resp.Message,
		SolveTimeMs: resp.SolveTimeMs,
		CreatedAt:   time.Now().UTC(),
	}
}

// Repository records solve runs and answers recency queries over them.
type Repository interface {
	Save(ctx context.Context, run *Run) error
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}
