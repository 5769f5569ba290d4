// Package validation checks operator input before it is sent to the backend.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/livecommerce/console/internal/emotion"
)

const (
	minContentLength = 10
	maxTitleLength   = 255
	// Scripts longer than this are split across live segments in practice.
	longScriptSeconds = 180
)

var (
	bracedWord  = regexp.MustCompile(`\{/?([A-Za-z_]+)\}`)
	emptyMarkup = regexp.MustCompile(`\{([a-z_]+)\}\s*\{/([a-z_]+)\}`)
	htmlTag     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// ValidationResult represents the result of script validation
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	Message          string   `json:"message"`
	Warnings         []string `json:"warnings"`
	Errors           []string `json:"errors"`
	WordCount        int      `json:"word_count"`
	DurationEstimate int      `json:"duration_estimate"`
	Emotions         []string `json:"emotions"`
}

// ScriptValidator validates script titles and emotion-marked content
type ScriptValidator struct {
	vocab *emotion.Vocabulary
}

func NewScriptValidator(vocab *emotion.Vocabulary) *ScriptValidator {
	if vocab == nil {
		vocab = emotion.Default()
	}
	return &ScriptValidator{vocab: vocab}
}

// ValidateScript checks a script before it is saved or synthesized.
func (v *ScriptValidator) ValidateScript(title, content string) ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Message:  "Script validation successful",
		Warnings: []string{},
		Errors:   []string{},
		Emotions: []string{},
	}

	if strings.TrimSpace(title) == "" {
		result.Errors = append(result.Errors, "Title is required")
	} else if len(title) > maxTitleLength {
		result.Errors = append(result.Errors, fmt.Sprintf("Title must be at most %d characters", maxTitleLength))
	}

	if len(strings.TrimSpace(content)) < minContentLength {
		result.Errors = append(result.Errors, fmt.Sprintf("Content must be at least %d characters", minContentLength))
	}

	if err := v.vocab.Validate(content); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	result.Warnings = append(result.Warnings, v.markupWarnings(content)...)

	result.WordCount = v.vocab.WordCount(content)
	result.DurationEstimate = v.vocab.EstimateDuration(content)
	if emotions := v.vocab.UsedEmotions(content); emotions != nil {
		result.Emotions = emotions
	}
	if len(result.Emotions) == 0 && strings.TrimSpace(content) != "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("No emotion markup found; the voice will use the %q style throughout", v.vocab.DefaultTTSStyle))
	}
	if result.DurationEstimate > longScriptSeconds {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Estimated %ds of speech; consider splitting the script", result.DurationEstimate))
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		result.Message = "Script validation failed"
	} else if len(result.Warnings) > 0 {
		result.Message = "Script validation passed with warnings"
	}
	return result
}

// markupWarnings flags text the TTS engine would read aloud verbatim.
func (v *ScriptValidator) markupWarnings(content string) []string {
	var warnings []string

	seen := map[string]bool{}
	for _, m := range bracedWord.FindAllStringSubmatch(content, -1) {
		name := m[1]
		lower := strings.ToLower(name)
		if name != lower && v.vocab.Has(lower) && !seen[name] {
			seen[name] = true
			warnings = append(warnings, fmt.Sprintf("Emotion tags are lowercase: use {%s} instead of {%s}", lower, name))
		}
	}

	for _, m := range emptyMarkup.FindAllStringSubmatch(content, -1) {
		if m[1] == m[2] {
			warnings = append(warnings, fmt.Sprintf("Empty {%s} section", m[1]))
		}
	}

	if htmlTag.MatchString(content) {
		warnings = append(warnings, "HTML tags found; they will be read aloud")
	}
	return warnings
}
