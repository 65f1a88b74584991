// Package project materializes a search or fallback assignment into the
// wire-level Slot records of §4.4.
package project

import (
	"sort"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/fallback"
	"github.com/kilgorjn/patient-scheduling/internal/solver/model"
)

// FromAssignment builds the ordered Slot list for a search result's
// assignment: patients in input order, visits per patient sorted by start
// cell (§4.4).
func FromAssignment(m *model.Model, assignment []int) []domain.Slot {
	inst := m.Instance
	type keyed struct {
		slot      domain.Slot
		patient   int
		startCell int
	}
	items := make([]keyed, 0, len(m.Variables))
	for i, v := range m.Variables {
		patient := inst.Patients[v.PatientIndex]
		sched := inst.Schedulables[v.SchedulableIndex]
		items = append(items, keyed{
			slot: domain.Slot{
				PatientName:     patient.Name,
				StartLabel:      inst.Grid.Label(assignment[i]),
				SchedulableID:   sched.ID,
				DurationMinutes: sched.DurationCells * inst.Grid.WidthMinutes(),
				Pinned:          v.Pinned,
			},
			patient:   v.PatientIndex,
			startCell: assignment[i],
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].patient != items[j].patient {
			return items[i].patient < items[j].patient
		}
		return items[i].startCell < items[j].startCell
	})

	slots := make([]domain.Slot, len(items))
	for i, it := range items {
		slots[i] = it.slot
	}
	return slots
}

// FromPlacements builds the Slot list for a fallback.Schedule result.
func FromPlacements(inst *domain.Instance, placements []fallback.Placement) []domain.Slot {
	sort.SliceStable(placements, func(i, j int) bool {
		if placements[i].Key.PatientIndex != placements[j].Key.PatientIndex {
			return placements[i].Key.PatientIndex < placements[j].Key.PatientIndex
		}
		return placements[i].StartCell < placements[j].StartCell
	})

	slots := make([]domain.Slot, 0, len(placements))
	for _, p := range placements {
		patient := inst.Patients[p.Key.PatientIndex]
		sched := inst.Schedulables[p.Key.SchedulableIndex]
		slots = append(slots, domain.Slot{
			PatientName:     patient.Name,
			StartLabel:      inst.Grid.Label(p.StartCell),
			SchedulableID:   sched.ID,
			DurationMinutes: sched.DurationCells * inst.Grid.WidthMinutes(),
			Pinned:          p.Pinned,
		})
	}
	return slots
}
