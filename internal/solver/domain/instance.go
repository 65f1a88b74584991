package domain

// Visit is one required (patient, schedulable) placement. It is the unit
// the constraint model attaches decision variables to.
type Visit struct {
	Key          VisitKey
	DurationCells int
	// Pinned is true when a Pin fixes this visit's start cell.
	Pinned bool
	// PinStartCell is only meaningful when Pinned is true.
	PinStartCell int
}

// Instance is the fully resolved, index-based problem the model builder and
// optimizer operate on. It is produced once per solve by the normalizer and
// never mutated afterward.
type Instance struct {
	Grid         *Grid
	Patients     []Patient
	Schedulables []Schedulable
	Pins         []Pin
	Visits       []Visit

	Weights Weights
	Seed    int64
	// TimeLimitMillis is the wall-clock budget handed to the optimizer.
	TimeLimitMillis int64
}

// Weights are the objective coefficients of §4.2's weighted sum.
type Weights struct {
	IdleTime           float64
	Makespan           float64
	PriorityViolation  float64
	ArrivalPriorityViol float64
}

// DefaultWeights are the recommended defaults from §4.2.
func DefaultWeights() Weights {
	return Weights{
		IdleTime:            1000,
		Makespan:            10,
		PriorityViolation:   100,
		ArrivalPriorityViol: 50,
	}
}

// VisitByKey finds a visit by its (patient, schedulable) key, returning
// false if no such visit was instantiated (e.g. an optional, unpinned
// schedulable).
func (inst *Instance) VisitByKey(key VisitKey) (Visit, bool) {
	for _, v := range inst.Visits {
		if v.Key == key {
			return v, true
		}
	}
	return Visit{}, false
}

// Horizon is a shorthand for the grid's cell count.
func (inst *Instance) Horizon() int { return inst.Grid.Horizon() }
