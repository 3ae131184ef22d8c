package timeline_test

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/SriHarishb/edith/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "two sentences", input: "The sky is blue. Birds fly south.", expected: []string{"The sky is blue", "Birds fly south"}},
		{name: "no terminator", input: "  just one thought  ", expected: []string{"just one thought"}},
		{name: "empty", input: "", expected: []string{}},
		{name: "blank", input: " \n\t ", expected: []string{}},
		{name: "only periods", input: "...", expected: []string{}},
		{name: "repeated terminators", input: "A.. B. . C", expected: []string{"A", "B", "C"}},
		{name: "newlines inside", input: "First line\ncontinues. Second.", expected: []string{"First line\ncontinues", "Second"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, timeline.Segment(testCase.input))
		})
	}
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.94, timeline.Estimate("The sky is blue"), 1e-9)
	assert.InDelta(t, 0.69, timeline.Estimate("Hello world"), 1e-9)
	assert.InDelta(t, 1.0, timeline.Estimate(strings.Repeat("a", 16)), 1e-9)
	assert.Zero(t, timeline.Estimate(""))
	// Code points, not bytes.
	assert.InDelta(t, timeline.Estimate("cafe"), timeline.Estimate("café"), 1e-9)
}

func TestEstimate_IsPure(t *testing.T) {
	t.Parallel()

	sentence := "Purity means the same answer every time"
	assert.Equal(t, timeline.Estimate(sentence), timeline.Estimate(sentence))
}

func TestEstimateAll_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, timeline.EstimateAll(nil))
}

func TestReconcile_EmptyTimeline(t *testing.T) {
	t.Parallel()

	_, err := timeline.Reconcile(nil, 3)
	require.ErrorIs(t, err, timeline.ErrEmptyTimeline)
}

func TestReconcile_ExactMatchReturnsEstimates(t *testing.T) {
	t.Parallel()

	sentences := []string{strings.Repeat("a", 16), strings.Repeat("b", 32)}

	durations, err := timeline.Reconcile(sentences, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, durations)
}

func TestReconcile_NegativeGapShrinksFrames(t *testing.T) {
	t.Parallel()

	sentences := []string{strings.Repeat("a", 32), strings.Repeat("b", 32)}

	durations, err := timeline.Reconcile(sentences, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, durations[0], 1e-9)
	assert.Equal(t, 1.0, timeline.Sum(durations))
}

func TestReconcile_AllowsNonPositiveFrames(t *testing.T) {
	t.Parallel()

	sentences := []string{"a", strings.Repeat("b", 160)}

	durations, err := timeline.Reconcile(sentences, 1)
	require.NoError(t, err)
	assert.Less(t, durations[0], 0.0)
	assert.InDelta(t, 1.0, timeline.Sum(durations), 1e-12)
	require.ErrorIs(t, timeline.CheckFrames(durations), timeline.ErrNonPositiveFrame)
}

func TestBuild_ScenarioTwoSentences(t *testing.T) {
	t.Parallel()

	durations, err := timeline.Build("The sky is blue. Birds fly south.", 10.0)
	require.NoError(t, err)
	require.Len(t, durations, 2)
	assert.InDelta(t, 5.0, durations[0], 1e-9)
	assert.InDelta(t, 5.0, durations[1], 1e-9)
	assert.Equal(t, 10.0, timeline.Sum(durations))
}

func TestBuild_SingleSentence(t *testing.T) {
	t.Parallel()

	durations, err := timeline.Build("Hello world.", 2.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, durations)
}

func TestBuild_EmptyNarration(t *testing.T) {
	t.Parallel()

	_, err := timeline.Build("", 3)
	require.ErrorIs(t, err, timeline.ErrEmptyInput)

	_, err = timeline.Build(" . . ", 3)
	require.ErrorIs(t, err, timeline.ErrEmptyInput)
}

func TestBuild_InvalidDuration(t *testing.T) {
	t.Parallel()

	for _, measured := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := timeline.Build("Some narration.", measured)
		require.ErrorIs(t, err, timeline.ErrInvalidDuration)
	}

	_, err := timeline.Build("", 0)
	require.ErrorIs(t, err, timeline.ErrInvalidDuration, "duration is checked before the text")
}

func TestBuild_LengthAndExactSum(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	words := []string{"river", "mountain", "a", "quietly", "the", "electric", "sky", "over", "ancient", "cities"}

	for iteration := 0; iteration < 500; iteration++ {
		sentenceCount := 1 + rng.Intn(25)

		var builder strings.Builder

		for s := 0; s < sentenceCount; s++ {
			wordCount := 1 + rng.Intn(12)
			for w := 0; w < wordCount; w++ {
				builder.WriteString(words[rng.Intn(len(words))])
				builder.WriteString(" ")
			}

			builder.WriteString(". ")
		}

		narration := builder.String()
		estimated := timeline.Sum(timeline.EstimateAll(timeline.Segment(narration)))

		// Audio longer than estimated, then audio up to a quarter shorter.
		for _, measured := range []float64{
			estimated + rng.Float64()*120,
			estimated * (0.75 + rng.Float64()*0.25),
		} {
			durations, err := timeline.Build(narration, measured)
			require.NoError(t, err)
			require.Len(t, durations, sentenceCount)

			if timeline.CheckFrames(durations) != nil {
				continue
			}

			requireSumMatches(t, durations, measured, "narration %q", narration)
		}
	}
}

// requireSumMatches asserts an exact sum when some last-frame value reaches
// measured, and a sum within one ULP of measured otherwise.
func requireSumMatches(t *testing.T, durations []float64, measured float64, msgAndArgs ...any) {
	t.Helper()

	total := timeline.Sum(durations)
	if tailCanReach(durations, measured) {
		require.Equal(t, measured, total, msgAndArgs...)

		return
	}

	ulp := math.Nextafter(measured, math.Inf(1)) - measured
	require.LessOrEqual(t, math.Abs(total-measured), ulp, msgAndArgs...)
}

func tailCanReach(durations []float64, measured float64) bool {
	last := len(durations) - 1
	head := timeline.Sum(durations[:last])

	down, up := measured-head, measured-head
	for step := 0; step < 1000; step++ {
		if head+down == measured || head+up == measured {
			return true
		}

		down = math.Nextafter(down, math.Inf(-1))
		up = math.Nextafter(up, math.Inf(1))
	}

	return false
}

func TestBuild_UnreachableSumStaysWithinOneULP(t *testing.T) {
	t.Parallel()

	narration := "river sky cities . electric the the mountain . "
	measured := 1.9235494855267892

	durations, err := timeline.Build(narration, measured)
	require.NoError(t, err)
	require.Len(t, durations, 2)
	require.NoError(t, timeline.CheckFrames(durations))

	ulp := math.Nextafter(measured, math.Inf(1)) - measured
	assert.LessOrEqual(t, math.Abs(timeline.Sum(durations)-measured), ulp)
	requireSumMatches(t, durations, measured)
}

func TestFrames_PreservesOrder(t *testing.T) {
	t.Parallel()

	frames, err := timeline.Frames("A. Bb. Ccc.", 6)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	for i, expected := range []string{"A", "Bb", "Ccc"} {
		assert.Equal(t, i, frames[i].Index)
		assert.Equal(t, expected, frames[i].Sentence)
	}

	durations, err := timeline.Build("A. Bb. Ccc.", 6)
	require.NoError(t, err)

	for i := range frames {
		assert.Equal(t, durations[i], frames[i].Duration)
	}
	// Longer sentences keep longer frames after an even redistribution.
	assert.Less(t, frames[0].Duration, frames[1].Duration)
}

func TestCheckFrames(t *testing.T) {
	t.Parallel()

	require.NoError(t, timeline.CheckFrames([]float64{0.1, 2}))
	require.ErrorIs(t, timeline.CheckFrames([]float64{1, 0}), timeline.ErrNonPositiveFrame)
	require.ErrorIs(t, timeline.CheckFrames([]float64{math.NaN()}), timeline.ErrNonPositiveFrame)
}
