package timeline

import "strings"

const sentenceTerminator = "."

// Segment splits text on every period, trims each fragment and drops the
// ones left empty. Order is preserved.
func Segment(text string) []string {
	fragments := strings.Split(text, sentenceTerminator)
	sentences := make([]string, 0, len(fragments))

	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}

		sentences = append(sentences, trimmed)
	}

	return sentences
}
