package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allShifts(n int) map[int]bool {
	m := make(map[int]bool, n)
	for j := 0; j < n; j++ {
		m[j] = true
	}
	return m
}

func TestSolveEmptyInstance(t *testing.T) {
	result := Solve(context.Background(), Input{MinimumStaff: 2})

	assert.Equal(t, StatusOptimal, result.Status)
	assert.Empty(t, result.Assignments)
	assert.Empty(t, result.Relaxations)
}

func TestSolveFullCoverage(t *testing.T) {
	// Ten fully-available assistants over a 40-shift week, two per
	// shift, all capable of the single demanded course.
	const shiftCount = 40
	shifts := make([]Shift, shiftCount)
	for j := range shifts {
		shifts[j] = Shift{Index: j + 100, Demands: []Demand{{Course: "CS101", Required: 2, Weight: 2}}}
	}
	staff := make([]Staff, 10)
	for i := range staff {
		staff[i] = Staff{
			Username:  fmt.Sprintf("assistant%02d", i),
			Available: allShifts(shiftCount),
			Courses:   map[string]bool{"CS101": true},
		}
	}

	result := Solve(context.Background(), Input{
		Staff:        staff,
		Shifts:       shifts,
		MinimumStaff: 2,
		StaffFloors:  map[string]int{"assistant00": 4, "assistant01": 4},
	})

	require.Equal(t, StatusOptimal, result.Status)
	assert.Zero(t, result.Shortfall)
	assert.Empty(t, result.Relaxations)
	assert.Equal(t, 2, result.EffectiveMinimum)

	counts := map[string]int{}
	for j := 0; j < shiftCount; j++ {
		names := result.Assignments[j+100]
		require.Len(t, names, 2, "shift %d", j)
		for _, name := range names {
			counts[name]++
		}
	}
	assert.GreaterOrEqual(t, counts["assistant00"], 4)
	assert.GreaterOrEqual(t, counts["assistant01"], 4)
}

func TestSolveReducesFloorToOne(t *testing.T) {
	// A single available assistant cannot meet a floor of two; the
	// ladder must land on a floor of one rather than fail.
	shifts := []Shift{
		{Index: 1, Demands: []Demand{{Course: "CS101", Required: 2, Weight: 2}}},
		{Index: 2, Demands: []Demand{{Course: "CS101", Required: 2, Weight: 2}}},
	}
	staff := []Staff{{
		Username:  "solo",
		Available: allShifts(len(shifts)),
		Courses:   map[string]bool{"CS101": true},
	}}

	result := Solve(context.Background(), Input{
		Staff:        staff,
		Shifts:       shifts,
		MinimumStaff: 2,
		StaffFloors:  map[string]int{"solo": 4},
	})

	require.Equal(t, StatusFeasible, result.Status)
	assert.Equal(t, 1, result.EffectiveMinimum)
	assert.Contains(t, result.Relaxations, RelaxStaffFloorDropped)
	assert.Contains(t, result.Relaxations, RelaxMaximumStaffDropped)
	assert.Contains(t, result.Relaxations, RelaxMinimumFloor(1))
	assert.Equal(t, []string{"solo"}, result.Assignments[1])
	assert.Equal(t, []string{"solo"}, result.Assignments[2])
	assert.Positive(t, result.Shortfall)
}

func TestSolveInfeasibleWithoutStaff(t *testing.T) {
	shifts := []Shift{{Index: 1}}

	result := Solve(context.Background(), Input{Shifts: shifts, MinimumStaff: 2})

	assert.Equal(t, StatusInfeasible, result.Status)
	assert.Nil(t, result.Assignments)
}

func TestSolveRespectsMaximum(t *testing.T) {
	maximum := 2
	shifts := []Shift{{Index: 7, Demands: []Demand{{Course: "CS101", Required: 5, Weight: 1}}}}
	staff := make([]Staff, 5)
	for i := range staff {
		staff[i] = Staff{
			Username:  fmt.Sprintf("a%d", i),
			Available: allShifts(1),
			Courses:   map[string]bool{"CS101": true},
		}
	}

	result := Solve(context.Background(), Input{
		Staff:        staff,
		Shifts:       shifts,
		MinimumStaff: 2,
		MaximumStaff: &maximum,
	})

	require.Equal(t, StatusFeasible, result.Status)
	assert.Len(t, result.Assignments[7], 2)
	assert.Equal(t, 3, result.Shortfall)
	assert.Empty(t, result.Relaxations)
}

func TestSolveDemandCapStopsOverCoverage(t *testing.T) {
	// With the per-course cap satisfied, capable assistants beyond the
	// requirement stay unassigned even though they are available.
	shifts := []Shift{{Index: 1, Demands: []Demand{{Course: "CS101", Required: 1, Weight: 3}}}}
	staff := []Staff{
		{Username: "a", Available: allShifts(1), Courses: map[string]bool{"CS101": true}},
		{Username: "b", Available: allShifts(1), Courses: map[string]bool{"CS101": true}},
	}

	result := Solve(context.Background(), Input{Staff: staff, Shifts: shifts, MinimumStaff: 1})

	require.Equal(t, StatusOptimal, result.Status)
	assert.Len(t, result.Assignments[1], 1)
	assert.Zero(t, result.Shortfall)
}

func TestSolveAllCapablePool(t *testing.T) {
	// Lab assistants count toward every demanded course.
	shifts := []Shift{{Index: 1, Demands: []Demand{
		{Course: "CS101", Required: 1, Weight: 2},
		{Course: "CS202", Required: 1, Weight: 2},
	}}}
	staff := []Staff{{Username: "lab1", Available: allShifts(1), AllCapable: true}}

	result := Solve(context.Background(), Input{Staff: staff, Shifts: shifts, MinimumStaff: 1})

	require.Equal(t, StatusOptimal, result.Status)
	assert.Equal(t, []string{"lab1"}, result.Assignments[1])
	assert.Zero(t, result.Shortfall)
}

func TestSolveDeterministic(t *testing.T) {
	build := func() Input {
		shifts := make([]Shift, 12)
		for j := range shifts {
			shifts[j] = Shift{Index: j, Demands: []Demand{{Course: "CS101", Required: 2, Weight: 2}}}
		}
		staff := make([]Staff, 6)
		for i := range staff {
			available := map[int]bool{}
			for j := i; j < 12; j += 2 {
				available[j] = true
			}
			staff[i] = Staff{
				Username:  fmt.Sprintf("s%d", i),
				Available: available,
				Courses:   map[string]bool{"CS101": true},
			}
		}
		return Input{Staff: staff, Shifts: shifts, MinimumStaff: 2}
	}

	first := Solve(context.Background(), build())
	for run := 0; run < 5; run++ {
		again := Solve(context.Background(), build())
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.Assignments, again.Assignments)
		assert.Equal(t, first.Shortfall, again.Shortfall)
	}
}

func TestSolveExpiredContext(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result := Solve(ctx, Input{Shifts: []Shift{{Index: 1}}, MinimumStaff: 1})

	assert.Equal(t, StatusTimeout, result.Status)
}
