package intent

import (
	"fmt"
	"sort"
)

// Presets maps preset names to common project formats.
var Presets = map[string]ProjectFormat{
	"1080p24": NewProjectFormat(1920, 1080, 24),
	"1080p25": NewProjectFormat(1920, 1080, 25),
	"1080p30": NewProjectFormat(1920, 1080, 30),
	"1080p50": NewProjectFormat(1920, 1080, 50),
	"1080p60": NewProjectFormat(1920, 1080, 60),
	"4k24":    NewProjectFormat(3840, 2160, 24),
	"4k25":    NewProjectFormat(3840, 2160, 25),
	"4k30":    NewProjectFormat(3840, 2160, 30),
	"4k50":    NewProjectFormat(3840, 2160, 50),
	"4k60":    NewProjectFormat(3840, 2160, 60),
	"720p25":  NewProjectFormat(1280, 720, 25),
	"720p30":  NewProjectFormat(1280, 720, 30),
}

// DefaultPreset is used when no preset is named.
const DefaultPreset = "1080p25"

// Preset resolves a preset name.
func Preset(name string) (ProjectFormat, error) {
	if name == "" {
		name = DefaultPreset
	}
	f, ok := Presets[name]
	if !ok {
		return ProjectFormat{}, fmt.Errorf("unknown format preset %q (available: %v)", name, PresetNames())
	}
	return f, nil
}

// PresetNames returns the preset names sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
