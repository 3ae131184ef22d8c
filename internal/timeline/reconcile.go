package timeline

import "math"

// maxTailSteps bounds the ULP walk in absorbTail. A handful of steps is
// always enough when the last frame is not vastly larger than the total.
const maxTailSteps = 64

// Reconcile estimates each sentence and distributes the gap between the
// estimated total and the measured duration evenly over all frames. The last
// frame absorbs the floating point residue: Sum of the result equals measured
// exactly when some value of the last frame reaches it, and is otherwise
// within one ULP of measured.
//
// Frames may end up zero or negative when the narration is much longer than
// the audio; see CheckFrames.
func Reconcile(sentences []string, measured float64) ([]float64, error) {
	durations := EstimateAll(sentences)
	if len(durations) == 0 {
		return nil, ErrEmptyTimeline
	}

	gap := measured - Sum(durations)
	if gap == 0 {
		return durations, nil
	}

	perFrame := gap / float64(len(durations))
	for i := range durations {
		durations[i] += perFrame
	}

	absorbTail(durations, measured)

	return durations, nil
}

// absorbTail overwrites the last element with whatever makes the sequence sum
// to target. Plain subtraction can be off by an ULP once the head sum is
// added back, so the last element is then walked one ULP at a time. When the
// rounded sum steps over target the closest value seen is kept.
func absorbTail(durations []float64, target float64) {
	last := len(durations) - 1
	head := Sum(durations[:last])
	durations[last] = target - head

	best := durations[last]
	bestMiss := math.Abs(head + best - target)

	for step := 0; step < maxTailSteps && bestMiss != 0; step++ {
		total := head + durations[last]
		if total == target {
			best, bestMiss = durations[last], 0

			break
		}

		if miss := math.Abs(total - target); miss < bestMiss {
			best, bestMiss = durations[last], miss
		}

		if total < target {
			durations[last] = math.Nextafter(durations[last], math.Inf(1))
		} else {
			durations[last] = math.Nextafter(durations[last], math.Inf(-1))
		}
	}

	durations[last] = best
}
