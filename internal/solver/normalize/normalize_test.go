package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/solvererr"
)

func baseRequest() *domain.Request {
	return &domain.Request{
		TimeSlots: []string{"9:00", "9:15", "9:30", "9:45", "10:00"},
		Patients: []domain.PatientInput{
			{Name: "alice", ArrivalTime: "9:00"},
			{Name: "bob", ArrivalTime: "9:15"},
		},
		Schedulables: []domain.SchedulableInput{
			{ID: "checkin", Name: "Check-in", DurationMin: 15},
			{ID: "labs", Name: "Labs", DurationMin: 15, Priority: 1, Capacity: 2},
		},
	}
}

func TestNormalize_Defaults(t *testing.T) {
	req := baseRequest()
	inst, err := Normalize(req)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultWeights(), inst.Weights)
	assert.Equal(t, int64(1), inst.Seed)
	assert.Equal(t, int64(domain.DefaultTimeLimitMillis), inst.TimeLimitMillis)

	// Both schedulables default to auto_schedule=true, so every patient gets
	// a visit for every schedulable.
	assert.Len(t, inst.Visits, len(req.Patients)*len(req.Schedulables))

	labs := inst.Schedulables[1]
	assert.Equal(t, 2, labs.Capacity)

	checkin := inst.Schedulables[0]
	assert.Equal(t, domain.DefaultCapacity, checkin.Capacity)
}

func TestNormalize_AutoScheduleFalseSkipsVisitUnlessPinned(t *testing.T) {
	req := baseRequest()
	no := false
	req.Schedulables[1].AutoSchedule = &no
	req.PinnedSlots = []domain.PinInput{
		{PatientName: "alice", SchedulableID: "labs", TimeSlot: "9:30"},
	}

	inst, err := Normalize(req)
	require.NoError(t, err)

	// bob gets no "labs" visit since it's not auto-scheduled and not pinned
	// for him; alice gets one because she has a pin.
	found := false
	for _, v := range inst.Visits {
		if v.Key.SchedulableIndex == 1 {
			assert.Equal(t, 0, v.Key.PatientIndex, "only alice (index 0) should have a labs visit")
			assert.True(t, v.Pinned)
			found = true
		}
	}
	assert.True(t, found)
}

func TestNormalize_EmptyPatientsRejected(t *testing.T) {
	req := baseRequest()
	req.Patients = nil
	_, err := Normalize(req)
	require.Error(t, err)
	se, ok := solvererr.As(err)
	require.True(t, ok)
	assert.Equal(t, solvererr.InvalidInput, se.Kind)
}

func TestNormalize_EmptySchedulablesRejected(t *testing.T) {
	req := baseRequest()
	req.Schedulables = nil
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_DuplicatePatientName(t *testing.T) {
	req := baseRequest()
	req.Patients = append(req.Patients, domain.PatientInput{Name: "alice"})
	_, err := Normalize(req)
	require.Error(t, err)
	se, ok := solvererr.As(err)
	require.True(t, ok)
	assert.Equal(t, solvererr.InvalidInput, se.Kind)
}

func TestNormalize_DuplicateSchedulableID(t *testing.T) {
	req := baseRequest()
	req.Schedulables = append(req.Schedulables, domain.SchedulableInput{ID: "checkin", DurationMin: 15})
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_UnknownArrivalTime(t *testing.T) {
	req := baseRequest()
	req.Patients[0].ArrivalTime = "11:00"
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_ZeroDurationRejected(t *testing.T) {
	req := baseRequest()
	req.Schedulables[0].DurationMin = 0
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_NegativeCapacityRejected(t *testing.T) {
	req := baseRequest()
	req.Schedulables[0].Capacity = -1
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_PinUnknownPatient(t *testing.T) {
	req := baseRequest()
	req.PinnedSlots = []domain.PinInput{{PatientName: "carol", SchedulableID: "checkin", TimeSlot: "9:00"}}
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_PinUnknownSchedulable(t *testing.T) {
	req := baseRequest()
	req.PinnedSlots = []domain.PinInput{{PatientName: "alice", SchedulableID: "xray", TimeSlot: "9:00"}}
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_PinBeforeArrivalRejected(t *testing.T) {
	req := baseRequest()
	req.PinnedSlots = []domain.PinInput{{PatientName: "bob", SchedulableID: "checkin", TimeSlot: "9:00"}}
	_, err := Normalize(req)
	require.Error(t, err)
	se, ok := solvererr.As(err)
	require.True(t, ok)
	assert.Equal(t, solvererr.InfeasiblePin, se.Kind)
}

func TestNormalize_PinPastHorizonRejected(t *testing.T) {
	req := baseRequest()
	// A 30-minute check-in starting at 10:00 (cell 4) ends at cell 6, past the
	// 5-cell horizon.
	req.Schedulables[0].DurationMin = 30
	req.PinnedSlots = []domain.PinInput{{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "10:00"}}
	_, err := Normalize(req)
	require.Error(t, err)
	se, ok := solvererr.As(err)
	require.True(t, ok)
	assert.Equal(t, solvererr.InfeasiblePin, se.Kind)
}

func TestNormalize_OverlappingPinsForSamePatientRejected(t *testing.T) {
	req := baseRequest()
	req.PinnedSlots = []domain.PinInput{
		{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "9:00"},
		{PatientName: "alice", SchedulableID: "labs", TimeSlot: "9:00"},
	}
	_, err := Normalize(req)
	require.Error(t, err)
	se, ok := solvererr.As(err)
	require.True(t, ok)
	assert.Equal(t, solvererr.InfeasiblePin, se.Kind)
}

func TestNormalize_DuplicatePinRejected(t *testing.T) {
	req := baseRequest()
	req.PinnedSlots = []domain.PinInput{
		{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "9:00"},
		{PatientName: "alice", SchedulableID: "checkin", TimeSlot: "9:15"},
	}
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_TimeLimitOverride(t *testing.T) {
	req := baseRequest()
	req.Options = &domain.Options{TimeLimitMillis: 2000}
	inst, err := Normalize(req)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), inst.TimeLimitMillis)
}

func TestNormalize_TimeLimitExceedsMaxRejected(t *testing.T) {
	req := baseRequest()
	req.Options = &domain.Options{TimeLimitMillis: domain.MaxTimeLimitMillis + 1}
	_, err := Normalize(req)
	require.Error(t, err)
}

func TestNormalize_WeightOverrides(t *testing.T) {
	req := baseRequest()
	idle := 5.0
	req.Options = &domain.Options{Weights: &domain.WeightsInput{Idle: &idle}}

	inst, err := Normalize(req)
	require.NoError(t, err)
	assert.Equal(t, 5.0, inst.Weights.IdleTime)
	assert.Equal(t, domain.DefaultWeights().Makespan, inst.Weights.Makespan)
}

func TestNormalize_SeedOverride(t *testing.T) {
	req := baseRequest()
	seed := int64(42)
	req.Options = &domain.Options{Seed: &seed}

	inst, err := Normalize(req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), inst.Seed)
}
