package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SriHarishb/edith/internal/timeline"
)

const narrationPrompt = `You have been asked to write a detailed response in good English to the following question: %s.
The answer should be less than 300 words. The response should not contain any punctuation marks except fullstop and commas.
The response must contain full stops only at the end of each sentence.`

const titlePrompt = `You have been asked to write a title in good English to the following para: %s.
The title should be less than 10 words. Return only the title.
The response should not contain any punctuation marks except fullstop and commas.`

const imagePromptsPrompt = `You are assigned with a job of converting each sentence in the list into good image prompts. The list is: %s.
Do not include any punctuation except for periods at the end of each sentence.
The response should only contain the answer, no first person pronouns or any other unnecessary information.
The sentence should be complete and make sense on its own. It should not include any pronouns, only subject names should be provided.`

const imageScene = `Generate an image of a creative scene of %s.
Use your own imagination to create the image.
The image should be in good quality and should strictly not contain any text or watermarks.`

var whitespaceReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// Narrate writes the narration paragraph for a prompt.
func (c *Client) Narrate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrPromptEmpty
	}

	text, err := c.GenerateText(ctx, fmt.Sprintf(narrationPrompt, prompt))
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}

	return text, nil
}

// Title writes a short title for a prompt, flattened onto one line.
func (c *Client) Title(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrPromptEmpty
	}

	text, err := c.GenerateText(ctx, fmt.Sprintf(titlePrompt, prompt))
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}

	return FormatText(text), nil
}

// ImagePrompts rewrites each sentence as a standalone image prompt. The model
// answers with one period-terminated sentence per prompt.
func (c *Client) ImagePrompts(ctx context.Context, sentences []string) ([]string, error) {
	if len(sentences) == 0 {
		return nil, ErrPromptEmpty
	}

	text, err := c.GenerateText(ctx, fmt.Sprintf(imagePromptsPrompt, formatList(sentences)))
	if err != nil {
		return nil, fmt.Errorf("image prompts: %w", err)
	}

	return timeline.Segment(text), nil
}

// Chat answers a single message.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	text, err := c.GenerateText(ctx, message)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	return text, nil
}

// FormatText replaces line breaks and tabs with spaces and trims the result.
func FormatText(text string) string {
	return strings.TrimSpace(whitespaceReplacer.Replace(text))
}

func imageScenePrompt(prompt string) string {
	return fmt.Sprintf(imageScene, prompt)
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}

	return "[" + strings.Join(quoted, ", ") + "]"
}
