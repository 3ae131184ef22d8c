package timeline

import (
	"math"
	"unicode/utf8"
)

// CharactersPerSecond is the speaking rate assumed for the synthesized voice.
const CharactersPerSecond = 16.0

// Estimate returns the provisional spoken duration of a sentence in seconds,
// rounded to two decimal places.
func Estimate(sentence string) float64 {
	chars := float64(utf8.RuneCountInString(sentence))

	return roundHundredths(chars / CharactersPerSecond)
}

// EstimateAll applies Estimate to every sentence.
func EstimateAll(sentences []string) []float64 {
	estimates := make([]float64, len(sentences))
	for i, sentence := range sentences {
		estimates[i] = Estimate(sentence)
	}

	return estimates
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
