// Package search performs the branch-and-bound backtracking that stands in
// for a constraint-programming solver (§4.3): depth-first assignment of
// start cells with patient no-overlap and schedulable-capacity propagation,
// a wall-clock deadline, and deterministic, seeded tie-breaking. The
// propagation shapes (no-overlap, cumulative capacity) and the
// first-fail-flavored static ordering are grounded in the kind of
// finite-domain labeling a small in-process CP engine performs.
package search

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/model"
)

// Result is the outcome of a search run.
type Result struct {
	Status     domain.Status
	Assignment []int // start cell per model.Model.Variables index; nil unless a solution was found
	Objective  float64
	Reason     string // set on ERROR, e.g. "timeout", "cancelled"
}

// Solve runs the search to completion, to its deadline, or until ctx is
// cancelled, whichever comes first.
func Solve(ctx context.Context, m *model.Model, deadline time.Time, seed int64) Result {
	if m.HasEmptyDomain() {
		return Result{Status: domain.StatusInfeasible}
	}

	s := &searcher{
		m:             m,
		deadline:      deadline,
		ctx:           ctx,
		rng:           rand.New(rand.NewSource(seed)),
		assignment:    make([]int, len(m.Variables)),
		patientIvals:  make(map[int][]interval, len(m.ByPatient)),
		schedLoad:     make(map[int][]int, len(m.BySchedulable)),
		bestObjective: math.Inf(1),
	}
	for sIdx := range m.Capacity {
		s.schedLoad[sIdx] = make([]int, m.Instance.Horizon())
	}

	order := s.branchOrder()
	exhausted := s.backtrack(order, 0)

	switch {
	case s.best != nil && exhausted && !s.aborted:
		return Result{Status: domain.StatusOptimal, Assignment: s.best, Objective: s.bestObjective}
	case s.best != nil:
		return Result{Status: domain.StatusFeasible, Assignment: s.best, Objective: s.bestObjective}
	case s.aborted:
		if ctx.Err() != nil {
			return Result{Status: domain.StatusError, Reason: "cancelled"}
		}
		return Result{Status: domain.StatusError, Reason: "timeout"}
	default:
		return Result{Status: domain.StatusInfeasible}
	}
}

type interval struct{ start, end int }

type searcher struct {
	m        *model.Model
	deadline time.Time
	ctx      context.Context
	rng      *rand.Rand

	assignment []int
	best       []int

	bestObjective float64
	aborted       bool

	patientIvals map[int][]interval
	schedLoad    map[int][]int
}

// branchOrder returns the static branching order: the model's priority
// order, with ties (same priority, same patient arrival cell) shuffled
// deterministically by the seed so distinct seeds can explore distinct
// orderings while remaining reproducible.
func (s *searcher) branchOrder() []int {
	n := len(s.m.Variables)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	// Group contiguous run of equal (priority, patient arrival) and shuffle
	// within each run only, preserving the overall priority ordering.
	start := 0
	for start < n {
		end := start + 1
		for end < n && sameRank(s.m, order[start], order[end]) {
			end++
		}
		s.rng.Shuffle(end-start, func(i, j int) {
			order[start+i], order[start+j] = order[start+j], order[start+i]
		})
		start = end
	}
	return order
}

func sameRank(m *model.Model, i, j int) bool {
	vi, vj := m.Variables[i], m.Variables[j]
	if vi.Priority != vj.Priority {
		return false
	}
	ai := m.Instance.Patients[vi.PatientIndex].ArrivalCell
	aj := m.Instance.Patients[vj.PatientIndex].ArrivalCell
	return ai == aj
}

// backtrack explores order[depth:]. It returns true if the subtree rooted
// here was fully explored (i.e. search was not cut short by the deadline or
// cancellation).
func (s *searcher) backtrack(order []int, depth int) bool {
	if s.timeUp() {
		s.aborted = true
		return false
	}

	if depth == len(order) {
		obj := s.m.Objective(s.assignment)
		if obj < s.bestObjective {
			s.bestObjective = obj
			s.best = append([]int(nil), s.assignment...)
		}
		return true
	}

	varIdx := order[depth]
	v := s.m.Variables[varIdx]

	// Admissible partial bound: makespan can only grow as more visits are
	// placed, so the makespan term alone lower-bounds the remaining cost.
	if s.best != nil {
		bound := s.m.Instance.Weights.Makespan * float64(s.currentMakespan())
		if bound >= s.bestObjective {
			return true
		}
	}

	fullyExplored := true
	for _, start := range v.Domain {
		if s.timeUp() {
			s.aborted = true
			return false
		}
		if !s.fits(v, start) {
			continue
		}

		s.place(varIdx, v, start)
		ok := s.backtrack(order, depth+1)
		s.unplace(varIdx, v, start)

		if !ok {
			fullyExplored = false
			break
		}
	}
	return fullyExplored
}

func (s *searcher) timeUp() bool {
	if s.ctx != nil && s.ctx.Err() != nil {
		return true
	}
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

func (s *searcher) currentMakespan() int {
	max := 0
	for _, load := range s.schedLoad {
		for c := len(load) - 1; c >= 0; c-- {
			if load[c] > 0 && c+1 > max {
				max = c + 1
				break
			}
		}
	}
	return max
}

func (s *searcher) fits(v model.Variable, start int) bool {
	end := start + v.DurationCells
	for _, iv := range s.patientIvals[v.PatientIndex] {
		if start < iv.end && iv.start < end {
			return false
		}
	}
	capacity := s.m.Capacity[v.SchedulableIndex]
	load := s.schedLoad[v.SchedulableIndex]
	for c := start; c < end; c++ {
		if load[c]+1 > capacity {
			return false
		}
	}
	return true
}

func (s *searcher) place(varIdx int, v model.Variable, start int) {
	s.assignment[varIdx] = start
	end := start + v.DurationCells
	s.patientIvals[v.PatientIndex] = append(s.patientIvals[v.PatientIndex], interval{start, end})
	load := s.schedLoad[v.SchedulableIndex]
	for c := start; c < end; c++ {
		load[c]++
	}
}

func (s *searcher) unplace(varIdx int, v model.Variable, start int) {
	end := start + v.DurationCells
	ivs := s.patientIvals[v.PatientIndex]
	s.patientIvals[v.PatientIndex] = ivs[:len(ivs)-1]
	load := s.schedLoad[v.SchedulableIndex]
	for c := start; c < end; c++ {
		load[c]--
	}
}

