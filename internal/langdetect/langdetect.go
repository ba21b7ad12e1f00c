// Package langdetect implements a one-shot Language Detector: a single
// deterministic Anthropic call that returns a BCP-47 tag, invoked at most
// once per session.
package langdetect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/joestump/hotel-chat-gateway/internal/llm"
)

const systemPrompt = "Return only a BCP-47 language tag (e.g. en-US, pl-PL) for the dominant language of the following text. Respond with the tag and nothing else."

const defaultLanguage = "en-US"

var tagPattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)

// Detector runs the one-shot language detection call.
type Detector struct {
	client llm.Client
	model  string
}

// New constructs a Detector. model should be the cheaper LLM_MODEL_DETECT
// model identifier; detection cost is meant to be paid at most once per
// session lifetime.
func New(client llm.Client, model string) *Detector {
	return &Detector{client: client, model: model}
}

// Detect returns a validated BCP-47 tag for text, or the default ("en-US")
// plus a warning if the model call fails or its output doesn't validate.
func (d *Detector) Detect(ctx context.Context, text string) (tag string, warning string) {
	msg, err := d.client.CreateMessage(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(d.model),
		MaxTokens:   16,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return defaultLanguage, fmt.Sprintf("language detection failed: %v", err)
	}

	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		candidate := normalize(block.Text)
		if tagPattern.MatchString(candidate) {
			return candidate, ""
		}
		return defaultLanguage, fmt.Sprintf("language detector returned invalid tag %q", block.Text)
	}

	return defaultLanguage, "language detector returned no text block"
}

func normalize(s string) string {
	// Trim surrounding whitespace and trailing periods the model might add
	// despite the directive to return only the tag.
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\n' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\n' || s[end-1] == '\t' || s[end-1] == '.') {
		end--
	}
	return s[start:end]
}
