package emotion

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultStyles []byte

// Style is how an emotion tag is displayed and which TTS speaking style it maps to.
type Style struct {
	Label    string `yaml:"label" json:"label"`
	Color    string `yaml:"color" json:"color"`
	Icon     string `yaml:"icon" json:"icon"`
	TTSStyle string `yaml:"tts_style" json:"tts_style"`
}

// Vocabulary is the fixed set of emotion keys accepted in script markup.
type Vocabulary struct {
	DefaultTTSStyle string           `yaml:"default_tts_style"`
	Emotions        map[string]Style `yaml:"emotions"`
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	v, err := parse(defaultStyles)
	if err != nil {
		panic(fmt.Sprintf("emotion: embedded styles.yaml is invalid: %v", err))
	}
	return v
}

// Load reads a vocabulary from a YAML file. An empty path returns Default().
// Entries in the file override or extend the built-in styles.
func Load(path string) (*Vocabulary, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emotion styles: %w", err)
	}
	override, err := parse(data)
	if err != nil {
		return nil, err
	}
	if override.DefaultTTSStyle != "" {
		base.DefaultTTSStyle = override.DefaultTTSStyle
	}
	for name, style := range override.Emotions {
		base.Emotions[name] = style
	}
	return base, nil
}

func parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse emotion styles: %w", err)
	}
	if len(v.Emotions) == 0 {
		return nil, fmt.Errorf("parse emotion styles: no emotions defined")
	}
	if v.DefaultTTSStyle == "" {
		v.DefaultTTSStyle = "serious"
	}
	return &v, nil
}

// Has reports whether name is a known emotion key.
func (v *Vocabulary) Has(name string) bool {
	_, ok := v.Emotions[name]
	return ok
}

// Style returns the display style for name.
func (v *Vocabulary) Style(name string) (Style, bool) {
	s, ok := v.Emotions[name]
	return s, ok
}

// TTSStyle maps a script's target emotion to the speaking style sent to the
// TTS engine. Unknown or empty emotions fall back to the default style.
func (v *Vocabulary) TTSStyle(name string) string {
	if s, ok := v.Emotions[name]; ok && s.TTSStyle != "" {
		return s.TTSStyle
	}
	return v.DefaultTTSStyle
}

// Names returns the emotion keys sorted alphabetically.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.Emotions))
	for name := range v.Emotions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
