package solver

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() *domain.Request {
	return &domain.Request{
		TimeSlots: []string{"9:00", "9:15", "9:30", "9:45"},
		Patients:  []domain.PatientInput{{Name: "alice", ArrivalTime: "9:00"}},
		Schedulables: []domain.SchedulableInput{
			{ID: "checkin", DurationMin: 15},
		},
	}
}

func TestEngine_Solve_Optimal(t *testing.T) {
	e := New(testLogger(), DefaultBreakerConfig())
	resp := e.Solve(context.Background(), validRequest())

	assert.Equal(t, domain.StatusOptimal, resp.Status)
	require.Len(t, resp.Slots, 1)
	require.NotNil(t, resp.Objective)
}

func TestEngine_Solve_InvalidInputReturnsError(t *testing.T) {
	e := New(testLogger(), DefaultBreakerConfig())
	req := validRequest()
	req.Patients = nil

	resp := e.Solve(context.Background(), req)
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Message)
}

func TestEngine_Solve_DuplicatePinRejected(t *testing.T) {
	e := New(testLogger(), DefaultBreakerConfig())
	req := validRequest()
	req.PinnedSlots = []domain.PinInput{
		{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "9:45"},
		{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "9:45"},
	}

	resp := e.Solve(context.Background(), req)
	assert.Equal(t, domain.StatusError, resp.Status)
}

func TestEngine_SolveCached_NilCacheFallsThroughToSolve(t *testing.T) {
	e := New(testLogger(), DefaultBreakerConfig())
	resp := e.SolveCached(context.Background(), validRequest(), nil)
	assert.Equal(t, domain.StatusOptimal, resp.Status)
}

func TestEngine_SetMetrics_NilDefaultsToNoop(t *testing.T) {
	e := New(testLogger(), DefaultBreakerConfig())
	e.SetMetrics(nil)
	// Should not panic on a subsequent solve despite a nil metrics arg.
	assert.NotPanics(t, func() {
		e.Solve(context.Background(), validRequest())
	})
}
