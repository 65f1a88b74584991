// Package fallback provides a greedy placement strategy that the engine uses
// only when its breaker-guarded call into the exact search fails or the
// breaker is open (§9 design notes: the source's
// autoSchedule path is preserved as a fallback, not part of the core
// contract). Its output still must satisfy every invariant of §8.
package fallback

import (
	"sort"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

// Placement is one greedily assigned visit.
type Placement struct {
	Key       domain.VisitKey
	StartCell int
	Pinned    bool
}

// Schedule greedily places every visit of inst, honoring pins first and then
// filling patients in arrival order with their highest-priority unit first —
// the same "place fixed points, then fill by priority" shape as the
// teacher's SchedulerEngine.ScheduleTasks, adapted from time.Time blocks to
// integer cells. It returns false if any visit could not be placed.
func Schedule(inst *domain.Instance) ([]Placement, bool) {
	horizon := inst.Horizon()

	type pending struct {
		visit domain.Visit
		sched domain.Schedulable
	}

	byPatient := make(map[int][]pending, len(inst.Patients))
	for _, v := range inst.Visits {
		sched := inst.Schedulables[v.Key.SchedulableIndex]
		byPatient[v.Key.PatientIndex] = append(byPatient[v.Key.PatientIndex], pending{visit: v, sched: sched})
	}

	patientOrder := make([]int, 0, len(inst.Patients))
	for _, p := range inst.Patients {
		patientOrder = append(patientOrder, p.Index)
	}
	sort.SliceStable(patientOrder, func(i, j int) bool {
		a, b := inst.Patients[patientOrder[i]], inst.Patients[patientOrder[j]]
		if a.ArrivalCell != b.ArrivalCell {
			return a.ArrivalCell < b.ArrivalCell
		}
		return a.Index < b.Index
	})

	patientLoad := make(map[int][]bool, len(inst.Patients)) // busy cells per patient
	for _, p := range inst.Patients {
		patientLoad[p.Index] = make([]bool, horizon)
	}
	schedLoad := make(map[int][]int, len(inst.Schedulables)) // concurrent load per schedulable
	for _, s := range inst.Schedulables {
		schedLoad[s.Index] = make([]int, horizon)
	}

	placements := make([]Placement, 0, len(inst.Visits))

	place := func(v domain.Visit, start int) {
		end := start + v.DurationCells
		for c := start; c < end; c++ {
			patientLoad[v.Key.PatientIndex][c] = true
			schedLoad[v.Key.SchedulableIndex][c]++
		}
		placements = append(placements, Placement{Key: v.Key, StartCell: start, Pinned: v.Pinned})
	}

	fits := func(v domain.Visit, start int) bool {
		end := start + v.DurationCells
		if end > horizon {
			return false
		}
		cap := inst.Schedulables[v.Key.SchedulableIndex].Capacity
		load := schedLoad[v.Key.SchedulableIndex]
		busy := patientLoad[v.Key.PatientIndex]
		for c := start; c < end; c++ {
			if busy[c] {
				return false
			}
			if load[c]+1 > cap {
				return false
			}
		}
		return true
	}

	// Pins first: they are hard equalities and never subject to the greedy
	// placement order.
	for _, pIdx := range patientOrder {
		items := byPatient[pIdx]
		sort.SliceStable(items, func(i, j int) bool { return !items[i].visit.Pinned && items[j].visit.Pinned })
		for _, item := range items {
			if !item.visit.Pinned {
				continue
			}
			if !fits(item.visit, item.visit.PinStartCell) {
				return nil, false
			}
			place(item.visit, item.visit.PinStartCell)
		}
	}

	for _, pIdx := range patientOrder {
		items := byPatient[pIdx]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].sched.Priority < items[j].sched.Priority
		})
		arrival := inst.Patients[pIdx].ArrivalCell
		for _, item := range items {
			if item.visit.Pinned {
				continue
			}
			placed := false
			for start := arrival; start+item.visit.DurationCells <= horizon; start++ {
				if fits(item.visit, start) {
					place(item.visit, start)
					placed = true
					break
				}
			}
			if !placed {
				return nil, false
			}
		}
	}

	sort.SliceStable(placements, func(i, j int) bool {
		if placements[i].Key.PatientIndex != placements[j].Key.PatientIndex {
			return placements[i].Key.PatientIndex < placements[j].Key.PatientIndex
		}
		return placements[i].StartCell < placements[j].StartCell
	})

	return placements, true
}
