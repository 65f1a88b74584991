// Package normalize turns a wire Request into a fully resolved Instance:
// it validates structure, resolves names to dense indices, expands visit
// requirements, and converts pins into hard equalities (§4.1).
package normalize

import (
	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/solvererr"
)

// Normalize validates req and builds the Instance the model builder and
// optimizer consume. Every error returned is a *solvererr.Error with a
// Kind of InvalidInput or InfeasiblePin, naming the offending field.
func Normalize(req *domain.Request) (*domain.Instance, error) {
	grid, err := domain.NewGrid(req.TimeSlots)
	if err != nil {
		return nil, solvererr.Wrap(solvererr.InvalidInput, err.Error(), err).WithField("time_slots")
	}

	patients, patientIndex, err := resolvePatients(req.Patients, grid)
	if err != nil {
		return nil, err
	}

	schedulables, schedulableIndex, err := resolveSchedulables(req.Schedulables, grid)
	if err != nil {
		return nil, err
	}

	pins, err := resolvePins(req.PinnedSlots, grid, patientIndex, schedulableIndex, patients, schedulables)
	if err != nil {
		return nil, err
	}

	visits := buildVisits(patients, schedulables, pins)

	weights := domain.DefaultWeights()
	seed := int64(1)
	timeLimit := int64(domain.DefaultTimeLimitMillis)

	if req.Options != nil {
		if req.Options.Weights != nil {
			applyWeightOverrides(&weights, req.Options.Weights)
		}
		if req.Options.Seed != nil {
			seed = *req.Options.Seed
		}
		if req.Options.TimeLimitMillis > 0 {
			timeLimit = req.Options.TimeLimitMillis
			if timeLimit > domain.MaxTimeLimitMillis {
				return nil, solvererr.Newf(solvererr.InvalidInput,
					"time_limit_ms %d exceeds maximum %d", timeLimit, domain.MaxTimeLimitMillis).
					WithField("options.time_limit_ms")
			}
		}
	}

	return &domain.Instance{
		Grid:            grid,
		Patients:        patients,
		Schedulables:    schedulables,
		Pins:            pins,
		Visits:          visits,
		Weights:         weights,
		Seed:            seed,
		TimeLimitMillis: timeLimit,
	}, nil
}

func resolvePatients(inputs []domain.PatientInput, grid *domain.Grid) ([]domain.Patient, map[string]int, error) {
	if len(inputs) == 0 {
		return nil, nil, solvererr.New(solvererr.InvalidInput, "patients: must not be empty").WithField("patients")
	}

	index := make(map[string]int, len(inputs))
	patients := make([]domain.Patient, 0, len(inputs))
	for i, p := range inputs {
		if p.Name == "" {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput, "patients[%d]: name must not be empty", i).WithField("patients")
		}
		if _, dup := index[p.Name]; dup {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput, "patients: duplicate name %q", p.Name).WithField("patients")
		}

		arrival := 0
		if p.ArrivalTime != "" {
			cell, ok := grid.Cell(p.ArrivalTime)
			if !ok {
				return nil, nil, solvererr.Newf(solvererr.InvalidInput,
					"patients[%d]: arrival_time %q is not one of time_slots", i, p.ArrivalTime).WithField("patients")
			}
			arrival = cell
		}

		index[p.Name] = i
		patients = append(patients, domain.Patient{
			Index:       i,
			Name:        p.Name,
			ArrivalCell: arrival,
		})
	}
	return patients, index, nil
}

func resolveSchedulables(inputs []domain.SchedulableInput, grid *domain.Grid) ([]domain.Schedulable, map[string]int, error) {
	if len(inputs) == 0 {
		return nil, nil, solvererr.New(solvererr.InvalidInput, "schedulables: must not be empty").WithField("schedulables")
	}

	index := make(map[string]int, len(inputs))
	out := make([]domain.Schedulable, 0, len(inputs))
	for i, s := range inputs {
		if s.ID == "" {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput, "schedulables[%d]: id must not be empty", i).WithField("schedulables")
		}
		if _, dup := index[s.ID]; dup {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput, "schedulables: duplicate id %q", s.ID).WithField("schedulables")
		}
		if s.DurationMin < 1 {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput,
				"schedulables[%s]: duration must be >= 1 minute, got %d", s.ID, s.DurationMin).WithField("schedulables")
		}

		capacity := s.Capacity
		if capacity == 0 {
			capacity = domain.DefaultCapacity
		}
		if capacity < 1 {
			return nil, nil, solvererr.Newf(solvererr.InvalidInput,
				"schedulables[%s]: capacity must be >= 1, got %d", s.ID, capacity).WithField("schedulables")
		}

		autoSchedule := domain.DefaultAutoSchedule
		if s.AutoSchedule != nil {
			autoSchedule = *s.AutoSchedule
		}

		index[s.ID] = i
		out = append(out, domain.Schedulable{
			Index:         i,
			ID:            s.ID,
			Name:          s.Name,
			DurationCells: grid.DurationCells(s.DurationMin),
			Priority:      s.Priority,
			AutoSchedule:  autoSchedule,
			Capacity:      capacity,
		})
	}
	return out, index, nil
}

func resolvePins(
	inputs []domain.PinInput,
	grid *domain.Grid,
	patientIndex map[string]int,
	schedulableIndex map[string]int,
	patients []domain.Patient,
	schedulables []domain.Schedulable,
) ([]domain.Pin, error) {
	pins := make([]domain.Pin, 0, len(inputs))
	seenPair := make(map[domain.VisitKey]bool, len(inputs))

	type interval struct{ start, end int }
	perPatient := make(map[int][]interval, len(inputs))

	for i, p := range inputs {
		pIdx, ok := patientIndex[p.PatientName]
		if !ok {
			return nil, solvererr.Newf(solvererr.InvalidInput,
				"pinned_slots[%d]: unknown patient_name %q", i, p.PatientName).WithField("pinned_slots")
		}
		sIdx, ok := schedulableIndex[p.SchedulableID]
		if !ok {
			return nil, solvererr.Newf(solvererr.InvalidInput,
				"pinned_slots[%d]: unknown schedulable_id %q", i, p.SchedulableID).WithField("pinned_slots")
		}
		start, ok := grid.Cell(p.TimeSlot)
		if !ok {
			return nil, solvererr.Newf(solvererr.InvalidInput,
				"pinned_slots[%d]: time_slot %q is not one of time_slots", i, p.TimeSlot).WithField("pinned_slots")
		}

		key := domain.VisitKey{PatientIndex: pIdx, SchedulableIndex: sIdx}
		if seenPair[key] {
			return nil, solvererr.Newf(solvererr.InvalidInput,
				"pinned_slots: duplicate pin for patient %q / schedulable %q", p.PatientName, p.SchedulableID).
				WithField("pinned_slots")
		}
		seenPair[key] = true

		dur := schedulables[sIdx].DurationCells
		end := start + dur
		if end > grid.Horizon() {
			return nil, solvererr.Newf(solvererr.InfeasiblePin,
				"pin for patient %q / schedulable %q ends at cell %d, after horizon %d",
				p.PatientName, p.SchedulableID, end, grid.Horizon()).WithField("pinned_slots")
		}
		if start < patients[pIdx].ArrivalCell {
			return nil, solvererr.Newf(solvererr.InfeasiblePin,
				"pin for patient %q / schedulable %q starts at cell %d, before arrival cell %d",
				p.PatientName, p.SchedulableID, start, patients[pIdx].ArrivalCell).WithField("pinned_slots")
		}

		for _, iv := range perPatient[pIdx] {
			if start < iv.end && iv.start < end {
				return nil, solvererr.Newf(solvererr.InfeasiblePin,
					"pin for patient %q / schedulable %q overlaps another pin for the same patient",
					p.PatientName, p.SchedulableID).WithField("pinned_slots")
			}
		}
		perPatient[pIdx] = append(perPatient[pIdx], interval{start, end})

		pins = append(pins, domain.Pin{
			PatientIndex:     pIdx,
			SchedulableIndex: sIdx,
			StartCell:        start,
		})
	}
	return pins, nil
}

func buildVisits(patients []domain.Patient, schedulables []domain.Schedulable, pins []domain.Pin) []domain.Visit {
	pinByKey := make(map[domain.VisitKey]domain.Pin, len(pins))
	for _, p := range pins {
		pinByKey[domain.VisitKey{PatientIndex: p.PatientIndex, SchedulableIndex: p.SchedulableIndex}] = p
	}

	visits := make([]domain.Visit, 0, len(patients)*len(schedulables))
	for _, p := range patients {
		for _, s := range schedulables {
			key := domain.VisitKey{PatientIndex: p.Index, SchedulableIndex: s.Index}
			pin, pinned := pinByKey[key]

			if !s.AutoSchedule && !pinned {
				continue
			}

			v := domain.Visit{
				Key:           key,
				DurationCells: s.DurationCells,
			}
			if pinned {
				v.Pinned = true
				v.PinStartCell = pin.StartCell
			}
			visits = append(visits, v)
		}
	}
	return visits
}

func applyWeightOverrides(w *domain.Weights, in *domain.WeightsInput) {
	if in.Idle != nil {
		w.IdleTime = *in.Idle
	}
	if in.Makespan != nil {
		w.Makespan = *in.Makespan
	}
	if in.Priority != nil {
		w.PriorityViolation = *in.Priority
	}
	if in.ArrivalPriority != nil {
		w.ArrivalPriorityViol = *in.ArrivalPriority
	}
}

