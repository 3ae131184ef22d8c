// Package text prepares narration text for speech synthesis.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	referenceRegexPattern  = `\[\d+\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	markupRegexPattern     = `[*_#` + "`" + `]+`
	whitespaceRegexPattern = `\s+`
)

// Preprocessor normalizes model output into plain speakable text.
type Preprocessor struct {
	referencePattern  *regexp.Regexp
	markupPattern     *regexp.Regexp
	whitespacePattern *regexp.Regexp
	punctuation       *strings.Replacer
}

// NewPreprocessor compiles the patterns once.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		referencePattern:  regexp.MustCompile(referenceRegexPattern),
		markupPattern:     regexp.MustCompile(markupRegexPattern),
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		punctuation: strings.NewReplacer(
			"—", ", ",
			"–", "-",
			"‒", "-",
			"…", "...",
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// ForSpeech strips citation markers and markdown emphasis, flattens
// whitespace, normalizes typographic punctuation and terminates the last
// sentence.
func (p *Preprocessor) ForSpeech(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := p.referencePattern.ReplaceAllString(text, "")
	cleaned = p.markupPattern.ReplaceAllString(cleaned, "")
	cleaned = p.punctuation.Replace(cleaned)
	cleaned = p.whitespacePattern.ReplaceAllString(cleaned, " ")

	return ensureSentenceEnding(strings.TrimSpace(cleaned))
}

func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)

	switch lastChar {
	case '.', '!', '?':
		return text
	}

	if unicode.IsPunct(lastChar) {
		return strings.TrimRightFunc(text, unicode.IsPunct) + "."
	}

	return text + "."
}
