package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/cppla/fitquest/utils"
)

// TextGenerator returns free text for a prompt. utils.GeminiClient implements it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratedTaskCount is how many descriptions are requested for task2..task5.
const GeneratedTaskCount = 4

const taskPrompt = `Generate 4 short one-line daily fitness tasks. Keep them concise like: "Do 20 pushups", "Drink 2L water".`

var ordinalPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

// FallbackTasks returns the fixed descriptions used whenever generation fails.
func FallbackTasks() []string {
	return []string{"Do 20 pushups", "Drink 2L water", "Stretch for 10 mins", "Meditate 5 mins"}
}

// ParseTaskLines extracts up to four task descriptions from generated text.
// Lines are trimmed, stripped of a leading "1. " or "2) " and of any markup; blanks are dropped.
func ParseTaskLines(text string) []string {
	out := make([]string, 0, GeneratedTaskCount)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-* ")
		line = ordinalPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(utils.SanitizeText(line))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == GeneratedTaskCount {
			break
		}
	}
	return out
}

// generateTasks asks gen for descriptions. It reports false when the fallback list was used.
func generateTasks(ctx context.Context, gen TextGenerator) ([]string, bool) {
	if gen == nil {
		return FallbackTasks(), false
	}
	text, err := gen.Generate(ctx, taskPrompt)
	if err != nil {
		return FallbackTasks(), false
	}
	lines := ParseTaskLines(text)
	if len(lines) < GeneratedTaskCount {
		return FallbackTasks(), false
	}
	return lines, true
}
