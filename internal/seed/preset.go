package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset sizes a generated dataset.
type Preset struct {
	Name                  string  `yaml:"name"`
	Users                 int     `yaml:"users"`
	ProjectsPerUser       int     `yaml:"projects_per_user"`
	Events                int     `yaml:"events"`
	FollowProbability     float64 `yaml:"follow_probability"`
	LikeProbability       float64 `yaml:"like_probability"`
	MaxCommentsPerProject int     `yaml:"max_comments_per_project"`
	JoinProbability       float64 `yaml:"join_probability"`
	MaxDays               int     `yaml:"max_days"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Validate rejects negative sizes and probabilities outside [0, 1].
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("preset name is required")
	}
	if p.Users < 0 || p.ProjectsPerUser < 0 || p.Events < 0 || p.MaxCommentsPerProject < 0 || p.MaxDays < 0 {
		return fmt.Errorf("preset %q: sizes must not be negative", p.Name)
	}
	for field, v := range map[string]float64{
		"follow_probability": p.FollowProbability,
		"like_probability":   p.LikeProbability,
		"join_probability":   p.JoinProbability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("preset %q: %s must be between 0 and 1", p.Name, field)
		}
	}
	return nil
}

// LoadPresets decodes a presets document keyed by preset name.
func LoadPresets(r io.Reader) (map[string]Preset, error) {
	var file presetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	out := make(map[string]Preset, len(file.Presets))
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// BuiltinPresets returns the presets shipped with the binary.
func BuiltinPresets() map[string]Preset {
	presets, err := LoadPresets(strings.NewReader(string(builtinPresets)))
	if err != nil {
		panic(fmt.Sprintf("builtin presets: %v", err))
	}
	return presets
}

// Lookup finds a builtin preset by name.
func Lookup(name string) (Preset, error) {
	presets := BuiltinPresets()
	if p, ok := presets[name]; ok {
		return p, nil
	}
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
}
