package tts

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// GoogleMaxInputBytes is the text:synthesize request limit.
	GoogleMaxInputBytes = 5000

	defaultChunkWorkers = 2
)

// ChunkedSynthesizer splits long text at sentence boundaries so each request
// stays under the provider's input limit, synthesizes the chunks concurrently
// and joins the MP3 streams in order.
type ChunkedSynthesizer struct {
	Synthesizer

	maxBytes int
	workers  int
}

// NewChunkedSynthesizer wraps inner. Non-positive limits select the Google
// input limit and two workers.
func NewChunkedSynthesizer(inner Synthesizer, maxBytes, workers int) *ChunkedSynthesizer {
	if maxBytes <= 0 {
		maxBytes = GoogleMaxInputBytes
	}

	if workers <= 0 {
		workers = defaultChunkWorkers
	}

	return &ChunkedSynthesizer{Synthesizer: inner, maxBytes: maxBytes, workers: workers}
}

// Synthesize converts text to one MP3 stream.
func (c *ChunkedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := SplitChunks(text, c.maxBytes)
	if len(chunks) == 0 {
		return nil, ErrTextEmpty
	}

	if len(chunks) == 1 {
		return c.Synthesizer.Synthesize(ctx, chunks[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		waitGroup  sync.WaitGroup
		mutex      sync.Mutex
		firstError error
	)

	results := make([][]byte, len(chunks))
	workerPool := make(chan struct{}, c.workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, text string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			audio, err := c.Synthesizer.Synthesize(ctx, text)
			if err != nil {
				mutex.Lock()

				if firstError == nil {
					firstError = fmt.Errorf("chunk %d of %d: %w", index+1, len(chunks), err)
				}

				mutex.Unlock()
				cancel()

				return
			}

			results[index] = audio
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()

	if firstError != nil {
		return nil, firstError
	}

	return bytes.Join(results, nil), nil
}

// SplitChunks packs whole sentences into chunks of at most maxBytes bytes.
// A sentence longer than the limit is split between words, and a single word
// longer than the limit between runes.
func SplitChunks(text string, maxBytes int) []string {
	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	add := func(piece string) {
		if current.Len() > 0 && current.Len()+1+len(piece) > maxBytes {
			flush()
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}

		current.WriteString(piece)
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) <= maxBytes {
			add(sentence)

			continue
		}

		for _, word := range strings.Fields(sentence) {
			for _, piece := range splitRunes(word, maxBytes) {
				add(piece)
			}
		}
	}

	flush()

	return chunks
}

// splitSentences cuts after every '.', '!' or '?' and drops blank pieces.
func splitSentences(text string) []string {
	var sentences []string

	start := 0

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences = appendTrimmed(sentences, text[start:i+1])
			start = i + 1
		}
	}

	return appendTrimmed(sentences, text[start:])
}

func appendTrimmed(list []string, s string) []string {
	trimmed := strings.Join(strings.Fields(s), " ")
	if trimmed == "" {
		return list
	}

	return append(list, trimmed)
}

func splitRunes(word string, maxBytes int) []string {
	if len(word) <= maxBytes {
		return []string{word}
	}

	var pieces []string

	for len(word) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(word[cut]) {
			cut--
		}

		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(word)
		}

		pieces = append(pieces, word[:cut])
		word = word[cut:]
	}

	if word != "" {
		pieces = append(pieces, word)
	}

	return pieces
}
