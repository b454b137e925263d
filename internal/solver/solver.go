// Package solver assigns staff to shifts by minimizing weighted course
// coverage shortfall under hard feasibility constraints. It is a
// special-purpose heuristic for the roster's assignment problem, not a
// general constraint solver: a deterministic greedy seed followed by
// improvement passes, with a fixed relaxation ladder for infeasible
// instances.
package solver

import (
	"context"
	"fmt"
	"sort"
)

// Statuses reported by Solve.
const (
	StatusOptimal    = "optimal"
	StatusFeasible   = "feasible"
	StatusInfeasible = "infeasible"
	StatusTimeout    = "timeout"
)

// Relaxations, applied in order until the instance becomes feasible.
const (
	RelaxStaffFloorDropped   = "staff_floor_dropped"
	RelaxMaximumStaffDropped = "maximum_staff_dropped"
)

// RelaxMinimumFloor names a floor reduction step.
func RelaxMinimumFloor(to int) string {
	return fmt.Sprintf("minimum_floor_reduced_to_%d", to)
}

// Demand is one course coverage goal on a shift.
type Demand struct {
	Course   string
	Required int
	Weight   int
}

// Shift is one assignment column, addressed by its index.
type Shift struct {
	Index   int
	Demands []Demand
}

// Staff is one assignment row.
type Staff struct {
	Username string
	// Available holds the shift indices whose day/hour the staff
	// member's availability covers.
	Available map[int]bool
	// Courses is the capability set. Ignored when AllCapable is set
	// (the lab pool treats every assistant as capable of everything).
	Courses    map[string]bool
	AllCapable bool
}

// Input is a full assignment instance.
type Input struct {
	Staff        []Staff
	Shifts       []Shift
	MinimumStaff int
	MaximumStaff *int
	// StaffFloors carries each staff member's weekly shift minimum.
	StaffFloors map[string]int
}

// Result reports the solved assignment.
type Result struct {
	Status string
	// Assignments maps shift index to assigned usernames, sorted.
	Assignments map[int][]string
	Relaxations []string
	// Shortfall is the objective value: weighted unmet course demand.
	Shortfall int
	// EffectiveMinimum is the per-shift floor after relaxations.
	EffectiveMinimum int
}

// Solve runs the relaxation ladder until an attempt succeeds or the
// ladder is exhausted. The context deadline is the wall-time budget;
// expiry yields StatusTimeout.
func Solve(ctx context.Context, in Input) Result {
	if len(in.Shifts) == 0 {
		return Result{Status: StatusOptimal, Assignments: map[int][]string{}, EffectiveMinimum: in.MinimumStaff}
	}

	type step struct {
		enforceStaffFloor bool
		enforceMaximum    bool
		minimum           int
		relaxations       []string
	}

	minimum := in.MinimumStaff
	if minimum < 1 {
		minimum = 1
	}

	steps := []step{{enforceStaffFloor: true, enforceMaximum: true, minimum: minimum}}
	steps = append(steps, step{enforceStaffFloor: false, enforceMaximum: true, minimum: minimum,
		relaxations: []string{RelaxStaffFloorDropped}})
	steps = append(steps, step{enforceStaffFloor: false, enforceMaximum: false, minimum: minimum,
		relaxations: []string{RelaxStaffFloorDropped, RelaxMaximumStaffDropped}})
	for floor := minimum - 1; floor >= 1; floor-- {
		relaxed := []string{RelaxStaffFloorDropped, RelaxMaximumStaffDropped}
		for f := minimum - 1; f >= floor; f-- {
			relaxed = append(relaxed, RelaxMinimumFloor(f))
		}
		steps = append(steps, step{enforceStaffFloor: false, enforceMaximum: false, minimum: floor, relaxations: relaxed})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusTimeout}
		}
		st := newState(in, s.minimum, s.enforceMaximum)
		ok := st.attempt(ctx, s.enforceStaffFloor)
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusTimeout}
		}
		if !ok {
			continue
		}
		status := StatusFeasible
		if st.shortfall() == 0 && len(s.relaxations) == 0 {
			status = StatusOptimal
		}
		return Result{
			Status:           status,
			Assignments:      st.export(),
			Relaxations:      s.relaxations,
			Shortfall:        st.shortfall(),
			EffectiveMinimum: s.minimum,
		}
	}

	return Result{Status: StatusInfeasible}
}

type state struct {
	in             Input
	minimum        int
	enforceMaximum bool
	assigned       []map[string]bool
	coverage       []map[string]int
	perStaff       map[string]int
	staffByName    map[string]*Staff
}

func newState(in Input, minimum int, enforceMaximum bool) *state {
	st := &state{
		in:             in,
		minimum:        minimum,
		enforceMaximum: enforceMaximum,
		assigned:       make([]map[string]bool, len(in.Shifts)),
		coverage:       make([]map[string]int, len(in.Shifts)),
		perStaff:       make(map[string]int, len(in.Staff)),
		staffByName:    make(map[string]*Staff, len(in.Staff)),
	}
	for j := range in.Shifts {
		st.assigned[j] = make(map[string]bool)
		st.coverage[j] = make(map[string]int)
	}
	for i := range in.Staff {
		st.staffByName[in.Staff[i].Username] = &in.Staff[i]
	}
	return st
}

func (st *state) capable(staff *Staff, course string) bool {
	return staff.AllCapable || staff.Courses[course]
}

// canAssign applies constraints 1 (availability), 3 (maximum) and 5
// (per-course demand cap) for one candidate placement.
func (st *state) canAssign(staff *Staff, j int) bool {
	if st.assigned[j][staff.Username] || !staff.Available[j] {
		return false
	}
	if st.enforceMaximum && st.in.MaximumStaff != nil && len(st.assigned[j]) >= *st.in.MaximumStaff {
		return false
	}
	for _, d := range st.in.Shifts[j].Demands {
		if st.capable(staff, d.Course) && st.coverage[j][d.Course]+1 > d.Required {
			return false
		}
	}
	return true
}

// gain is the objective reduction of placing staff on shift j.
func (st *state) gain(staff *Staff, j int) int {
	total := 0
	for _, d := range st.in.Shifts[j].Demands {
		if st.capable(staff, d.Course) && st.coverage[j][d.Course] < d.Required {
			total += d.Weight
		}
	}
	return total
}

func (st *state) place(staff *Staff, j int) {
	st.assigned[j][staff.Username] = true
	st.perStaff[staff.Username]++
	for _, d := range st.in.Shifts[j].Demands {
		if st.capable(staff, d.Course) {
			st.coverage[j][d.Course]++
		}
	}
}

// attempt runs the three greedy phases under the current constraint
// set and reports hard feasibility.
func (st *state) attempt(ctx context.Context, enforceStaffFloor bool) bool {
	// Phase 1: meet the per-shift floor, hardest shifts first.
	order := make([]int, len(st.in.Shifts))
	for i := range order {
		order[i] = i
	}
	availCount := make([]int, len(st.in.Shifts))
	for j := range st.in.Shifts {
		for i := range st.in.Staff {
			if st.in.Staff[i].Available[j] {
				availCount[j]++
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return availCount[order[a]] < availCount[order[b]] })

	for _, j := range order {
		if ctx.Err() != nil {
			return false
		}
		for len(st.assigned[j]) < st.minimum {
			best := st.pickForShift(j, enforceStaffFloor)
			if best == nil {
				return false
			}
			st.place(best, j)
		}
	}

	// Phase 2: meet per-staff weekly floors (constraint 4).
	if enforceStaffFloor {
		names := make([]string, 0, len(st.in.Staff))
		for i := range st.in.Staff {
			names = append(names, st.in.Staff[i].Username)
		}
		sort.Strings(names)
		for _, name := range names {
			if ctx.Err() != nil {
				return false
			}
			staff := st.staffByName[name]
			floor := st.in.StaffFloors[name]
			for st.perStaff[name] < floor {
				j, ok := st.pickShiftForStaff(staff)
				if !ok {
					return false
				}
				st.place(staff, j)
			}
		}
	}

	// Phase 3: reduce remaining weighted shortfall while caps allow.
	for {
		if ctx.Err() != nil {
			return false
		}
		improved := false
		for j := range st.in.Shifts {
			best, bestGain := st.bestByGain(j)
			if best != nil && bestGain > 0 {
				st.place(best, j)
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	return true
}

// pickForShift chooses the floor-filling candidate: staff furthest
// below their own floor first, then highest coverage gain, then name.
func (st *state) pickForShift(j int, enforceStaffFloor bool) *Staff {
	var best *Staff
	bestDeficit, bestGain := -1, -1
	for i := range st.in.Staff {
		staff := &st.in.Staff[i]
		if !st.canAssign(staff, j) {
			continue
		}
		deficit := 0
		if enforceStaffFloor {
			if d := st.in.StaffFloors[staff.Username] - st.perStaff[staff.Username]; d > 0 {
				deficit = d
			}
		}
		gain := st.gain(staff, j)
		if deficit > bestDeficit ||
			(deficit == bestDeficit && gain > bestGain) ||
			(deficit == bestDeficit && gain == bestGain && (best == nil || staff.Username < best.Username)) {
			best, bestDeficit, bestGain = staff, deficit, gain
		}
	}
	return best
}

// pickShiftForStaff chooses the staff-floor-filling shift with the
// highest gain, lowest index on ties.
func (st *state) pickShiftForStaff(staff *Staff) (int, bool) {
	bestJ, bestGain := -1, -1
	for j := range st.in.Shifts {
		if !st.canAssign(staff, j) {
			continue
		}
		if g := st.gain(staff, j); g > bestGain {
			bestJ, bestGain = j, g
		}
	}
	if bestJ < 0 {
		return 0, false
	}
	return bestJ, true
}

func (st *state) bestByGain(j int) (*Staff, int) {
	var best *Staff
	bestGain := 0
	for i := range st.in.Staff {
		staff := &st.in.Staff[i]
		if !st.canAssign(staff, j) {
			continue
		}
		g := st.gain(staff, j)
		if g > bestGain || (g == bestGain && g > 0 && best != nil && staff.Username < best.Username) {
			best, bestGain = staff, g
		}
	}
	return best, bestGain
}

func (st *state) shortfall() int {
	total := 0
	for j := range st.in.Shifts {
		for _, d := range st.in.Shifts[j].Demands {
			if missing := d.Required - st.coverage[j][d.Course]; missing > 0 {
				total += missing * d.Weight
			}
		}
	}
	return total
}

func (st *state) export() map[int][]string {
	result := make(map[int][]string, len(st.assigned))
	for j := range st.assigned {
		names := make([]string, 0, len(st.assigned[j]))
		for name := range st.assigned[j] {
			names = append(names, name)
		}
		sort.Strings(names)
		result[st.in.Shifts[j].Index] = names
	}
	return result
}
