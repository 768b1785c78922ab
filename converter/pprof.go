package converter

import (
	"fmt"
	"strconv"

	"asyncScope/event"

	"github.com/google/pprof/profile"
)

type openCall struct {
	loc   *profile.Location
	start float64
	child float64 // Time spent in callees
}

// ToPprof converts matched entry/exit pairs into a pprof profile. Every
// exit becomes one sample whose stack is the call path at that moment, leaf
// first, valued with the call's self time and a call count of one.
// Values are in the unit of the event timestamps, which the profile does not
// know, so they are reported as ticks and DurationNanos is left unset. The
// profile has no samples when no call was matched.
func ToPprof(events []event.Call) *profile.Profile {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "wall", Unit: "ticks"},
			{Type: "calls", Unit: "count"},
		},
		PeriodType: &profile.ValueType{
			Type: "wall",
			Unit: "ticks",
		},
		Period: 1,
	}

	// Maps to track unique functions and locations
	functions := make(map[string]*profile.Function)
	locations := make(map[string]*profile.Location)
	nextFuncID := uint64(1)
	nextLocID := uint64(1)

	stacks := make(map[uint64][]*openCall)

	for _, e := range events {
		if e.Kind == event.Entry {
			functionKey := fmt.Sprintf("%s@%x", e.FunctionName, e.Address)

			// Create or reuse function entry
			if _, exists := functions[functionKey]; !exists {
				functions[functionKey] = &profile.Function{
					ID:         nextFuncID,
					Name:       e.FunctionName,
					SystemName: e.FunctionName,
				}
				prof.Function = append(prof.Function, functions[functionKey])
				nextFuncID++
			}

			// Create or reuse location entry
			if _, exists := locations[functionKey]; !exists {
				locations[functionKey] = &profile.Location{
					ID:      nextLocID,
					Address: e.Address,
					Line: []profile.Line{
						{Function: functions[functionKey]},
					},
				}
				prof.Location = append(prof.Location, locations[functionKey])
				nextLocID++
			}

			stacks[e.ThreadID] = append(stacks[e.ThreadID], &openCall{
				loc:   locations[functionKey],
				start: e.Timestamp,
			})
			continue
		}

		stack := stacks[e.ThreadID]
		if len(stack) == 0 {
			// Dangling exit, nothing to attribute time to
			continue
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stacks[e.ThreadID] = stack

		duration := e.Timestamp - top.start
		if duration < 0 {
			duration = 0
		}
		self := duration - top.child
		if self < 0 {
			self = 0
		}
		if len(stack) > 0 {
			stack[len(stack)-1].child += duration
		}

		sampleLocations := []*profile.Location{top.loc}
		for j := len(stack) - 1; j >= 0; j-- {
			sampleLocations = append(sampleLocations, stack[j].loc)
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: sampleLocations,
			Value:    []int64{int64(self), 1},
			Label: map[string][]string{
				"thread": {strconv.FormatUint(e.ThreadID, 10)},
			},
		})
	}

	return prof
}
