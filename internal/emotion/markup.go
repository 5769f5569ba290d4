package emotion

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`\{(/?)([a-z_]+)\}`)

var (
	ErrUnknownEmotion = errors.New("unknown emotion tag")
	ErrUnbalancedTag  = errors.New("unbalanced emotion tag")
)

// Segment is a run of script text. Emotion is empty for unmarked text.
type Segment struct {
	Emotion string `json:"emotion,omitempty"`
	Text    string `json:"text"`
}

// Parse splits content into segments. Tags may not nest; every opening tag
// must be closed by the matching closing tag before another one opens.
func (v *Vocabulary) Parse(content string) ([]Segment, error) {
	var (
		segments []Segment
		open     string
		last     int
	)
	flush := func(end int) {
		if end > last {
			segments = append(segments, Segment{Emotion: open, Text: content[last:end]})
		}
	}

	for _, m := range tagPattern.FindAllStringSubmatchIndex(content, -1) {
		closing := m[3] > m[2]
		name := content[m[4]:m[5]]
		if !v.Has(name) {
			return nil, fmt.Errorf("%w: %q at offset %d", ErrUnknownEmotion, name, m[0])
		}
		switch {
		case !closing && open != "":
			return nil, fmt.Errorf("%w: {%s} opened inside {%s}", ErrUnbalancedTag, name, open)
		case closing && open != name:
			return nil, fmt.Errorf("%w: {/%s} without matching {%s}", ErrUnbalancedTag, name, name)
		}
		flush(m[0])
		if closing {
			open = ""
		} else {
			open = name
		}
		last = m[1]
	}
	if open != "" {
		return nil, fmt.Errorf("%w: {%s} is never closed", ErrUnbalancedTag, open)
	}
	flush(len(content))
	return segments, nil
}

// Validate reports the first markup error in content, if any.
func (v *Vocabulary) Validate(content string) error {
	_, err := v.Parse(content)
	return err
}

// Strip removes every known emotion tag and returns the spoken text.
func (v *Vocabulary) Strip(content string) string {
	return tagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		name := strings.Trim(tag, "{}/")
		if v.Has(name) {
			return ""
		}
		return tag
	})
}

// UsedEmotions returns the distinct emotions used in content, in order of first use.
func (v *Vocabulary) UsedEmotions(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		name := m[2]
		if m[1] == "" && v.Has(name) && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// WordCount counts whitespace-separated words of the spoken text.
func (v *Vocabulary) WordCount(content string) int {
	return len(strings.Fields(v.Strip(content)))
}

// EstimateDuration returns the expected spoken length in seconds at
// 2.5 words per second, never less than 30.
func (v *Vocabulary) EstimateDuration(content string) int {
	secs := int(float64(v.WordCount(content)) / 2.5)
	if secs < 30 {
		return 30
	}
	return secs
}
