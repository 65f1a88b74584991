// Package model builds the decision variables and constraint groupings the
// search package branches over (§4.2). Every visit the normalizer produced
// is, by construction, always placed — mandatory auto-schedule units must be
// placed, and optional units that are not pinned were never instantiated as
// visits — so the model carries only a start-cell domain per visit, not a
// separate presence flag.
package model

import (
	"sort"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/solvererr"
)

// Variable is one visit's start-cell decision variable.
type Variable struct {
	Key              domain.VisitKey
	PatientIndex     int
	SchedulableIndex int
	DurationCells    int
	Pinned           bool
	Priority         int
	// Domain lists feasible start cells in ascending order. Empty means the
	// visit has no feasible placement at all (an immediate INFEASIBLE_MODEL).
	Domain []int
}

// Model is the built constraint problem: variables plus the groupings the
// search needs to check patient no-overlap and schedulable capacity.
type Model struct {
	Instance *domain.Instance
	// Variables are ordered for branching: by schedulable priority ascending,
	// then patient arrival cell ascending, then patient/schedulable index —
	// an approximation of a degree/first-fail heuristic that is adequate at
	// the scale this solver targets (a handful of patients and units).
	Variables []Variable

	// ByPatient maps a patient index to the Variables indices for that
	// patient, in branching order.
	ByPatient map[int][]int
	// BySchedulable maps a schedulable index to the Variables indices for
	// that schedulable, in branching order.
	BySchedulable map[int][]int
	// Capacity maps a schedulable index to its capacity.
	Capacity map[int]int
}

// Build constructs a Model from a normalized Instance.
func Build(inst *domain.Instance) (*Model, error) {
	horizon := inst.Horizon()

	vars := make([]Variable, 0, len(inst.Visits))
	for _, v := range inst.Visits {
		patient := inst.Patients[v.Key.PatientIndex]
		sched := inst.Schedulables[v.Key.SchedulableIndex]

		lower := patient.ArrivalCell
		upper := horizon - v.DurationCells

		var dom []int
		if v.Pinned {
			if v.PinStartCell < lower || v.PinStartCell > upper {
				return nil, solvererr.Newf(solvererr.Internal,
					"pinned visit (patient %d, schedulable %d) fell outside its domain during model build",
					v.Key.PatientIndex, v.Key.SchedulableIndex)
			}
			dom = []int{v.PinStartCell}
		} else if upper >= lower {
			dom = make([]int, 0, upper-lower+1)
			for c := lower; c <= upper; c++ {
				dom = append(dom, c)
			}
		}

		vars = append(vars, Variable{
			Key:              v.Key,
			PatientIndex:     v.Key.PatientIndex,
			SchedulableIndex: v.Key.SchedulableIndex,
			DurationCells:    v.DurationCells,
			Pinned:           v.Pinned,
			Priority:         sched.Priority,
			Domain:           dom,
		})
	}

	sort.SliceStable(vars, func(i, j int) bool {
		a, b := vars[i], vars[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		pa, pb := inst.Patients[a.PatientIndex].ArrivalCell, inst.Patients[b.PatientIndex].ArrivalCell
		if pa != pb {
			return pa < pb
		}
		if a.PatientIndex != b.PatientIndex {
			return a.PatientIndex < b.PatientIndex
		}
		return a.SchedulableIndex < b.SchedulableIndex
	})

	byPatient := make(map[int][]int)
	bySchedulable := make(map[int][]int)
	capacity := make(map[int]int, len(inst.Schedulables))
	for _, s := range inst.Schedulables {
		capacity[s.Index] = s.Capacity
	}
	for i, v := range vars {
		byPatient[v.PatientIndex] = append(byPatient[v.PatientIndex], i)
		bySchedulable[v.SchedulableIndex] = append(bySchedulable[v.SchedulableIndex], i)
	}

	return &Model{
		Instance:      inst,
		Variables:     vars,
		ByPatient:     byPatient,
		BySchedulable: bySchedulable,
		Capacity:      capacity,
	}, nil
}

// HasEmptyDomain reports whether any variable has no feasible start at all,
// which makes the model immediately infeasible without any search.
func (m *Model) HasEmptyDomain() bool {
	for _, v := range m.Variables {
		if len(v.Domain) == 0 {
			return true
		}
	}
	return false
}
