package service

import (
	"time"

	"github.com/apexsend/sequence-engine/internal/model"
)

// ComputeSchedule returns one send time per step, in step order.
//
// Cumulative mode stacks delays: step k goes out at enrolledAt plus the sum
// of delays for steps 1..k. Independent mode offsets every step from the
// enrollment time alone, the way standalone follow-up delays behave.
func ComputeSchedule(delayMode string, steps []model.Step, enrolledAt time.Time) []time.Time {
	times := make([]time.Time, len(steps))
	var cumulative time.Duration

	for i, step := range steps {
		switch delayMode {
		case model.DelayModeIndependent:
			times[i] = enrolledAt.Add(step.Delay())
		default:
			cumulative += step.Delay()
			times[i] = enrolledAt.Add(cumulative)
		}
	}
	return times
}
