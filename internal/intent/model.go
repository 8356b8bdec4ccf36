package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"splice/internal/rational"
)

// FormatResourceID is the resource id reserved for the project format.
const FormatResourceID = "r1"

const defaultZeroTime = "0/2500s"

// AudioRole is the FCPXML audio role assigned to a clip.
type AudioRole string

const (
	RoleDialogue AudioRole = "dialogue"
	RoleMusic    AudioRole = "music"
	RoleEffects  AudioRole = "effects"
)

func (r AudioRole) valid() bool {
	switch r {
	case RoleDialogue, RoleMusic, RoleEffects:
		return true
	default:
		return false
	}
}

// AudioLayout is the project channel layout.
type AudioLayout string

const (
	LayoutMono     AudioLayout = "mono"
	LayoutStereo   AudioLayout = "stereo"
	LayoutSurround AudioLayout = "surround"
)

func (l AudioLayout) valid() bool {
	switch l {
	case LayoutMono, LayoutStereo, LayoutSurround:
		return true
	default:
		return false
	}
}

// ProjectFormat describes the video format of the project.
type ProjectFormat struct {
	Width                 int     `json:"width"`
	Height                int     `json:"height"`
	FPS                   float64 `json:"fps"`
	FrameDurationRational string  `json:"frame_duration_rational,omitempty"`
}

// NewProjectFormat returns a format with its frame duration derived from fps.
func NewProjectFormat(width, height int, fps float64) ProjectFormat {
	f := ProjectFormat{Width: width, Height: height, FPS: fps}
	f.deriveFrameDuration()
	return f
}

// Timescale returns round(fps*100), the timescale used across the project.
func (f ProjectFormat) Timescale() int64 {
	return rational.Timescale(f.FPS)
}

func (f *ProjectFormat) deriveFrameDuration() {
	if f.FrameDurationRational == "" && f.FPS > 0 {
		f.FrameDurationRational = rational.Time{Num: 100, Den: f.Timescale()}.String()
	}
}

func (f *ProjectFormat) UnmarshalJSON(data []byte) error {
	type alias ProjectFormat
	v := alias{Width: 1920, Height: 1080, FPS: 25}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = ProjectFormat(v)
	f.deriveFrameDuration()
	return nil
}

// AudioSettings holds project audio parameters.
type AudioSettings struct {
	Layout   AudioLayout `json:"layout"`
	Rate     int         `json:"rate"`
	Channels int         `json:"channels"`
}

func defaultAudioSettings() AudioSettings {
	return AudioSettings{Layout: LayoutStereo, Rate: 48000, Channels: 2}
}

func (a *AudioSettings) UnmarshalJSON(data []byte) error {
	type alias AudioSettings
	v := alias(defaultAudioSettings())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = AudioSettings(v)
	return nil
}

// Asset is a media file referenced by the timeline.
type Asset struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Path             string `json:"path"`
	UID              string `json:"uid,omitempty"`
	HasVideo         bool   `json:"has_video"`
	HasAudio         bool   `json:"has_audio"`
	FormatRef        string `json:"format_ref,omitempty"`
	AudioRate        int    `json:"audio_rate"`
	AudioChannels    int    `json:"audio_channels"`
	DurationRational string `json:"duration_rational,omitempty"`
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	type alias Asset
	v := alias{HasVideo: true, HasAudio: true, AudioRate: 48000, AudioChannels: 2}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Asset(v)
	a.fillUID()
	return nil
}

func (a *Asset) fillUID() {
	if a.UID == "" && a.Path != "" {
		a.UID = PathUID(a.Path)
	}
}

// PathUID derives the stable asset uid from an absolute path.
func PathUID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:32])
}

// SrcURL returns the percent-encoded file URL for the asset.
func (a Asset) SrcURL() string {
	return "file://" + escapePath(a.Path)
}

// escapePath keeps RFC 3986 unreserved characters plus '/' and ':'.
func escapePath(p string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-', c == '.', c == '_', c == '~', c == '/', c == ':':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

// Segment places a range of an asset on the timeline.
type Segment struct {
	AssetID  string    `json:"asset_id"`
	Offset   string    `json:"offset"`
	Start    string    `json:"start"`
	Duration string    `json:"duration"`
	Lane     int       `json:"lane"`
	Role     AudioRole `json:"role,omitempty"`
	Volume   *float64  `json:"volume,omitempty"`
	Name     string    `json:"name,omitempty"`
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	type alias Segment
	v := alias{Start: defaultZeroTime}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Segment(v)
	return nil
}

// Primary reports whether the segment sits on the primary storyline.
func (s Segment) Primary() bool { return s.Lane == 0 }

// Marker is a named point on the timeline.
type Marker struct {
	Name     string `json:"name"`
	Start    string `json:"start"`
	Duration string `json:"duration"`
}

func (m *Marker) UnmarshalJSON(data []byte) error {
	type alias Marker
	v := alias{Duration: defaultZeroTime}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Marker(v)
	return nil
}

// Operations are requested processing steps that are recorded but never run.
type Operations struct {
	RemovePausesOverSeconds *float64         `json:"remove_pauses_over_seconds,omitempty"`
	LoudnessTargetLUFS      *float64         `json:"loudness_target_lufs,omitempty"`
	ZoomPunches             []map[string]any `json:"zoom_punches,omitempty"`
}

// Timeline holds clip placements and markers.
type Timeline struct {
	Segments []Segment `json:"segments"`
	Markers  []Marker  `json:"markers"`
}

// Project is the project metadata block.
type Project struct {
	Name   string        `json:"name"`
	Format ProjectFormat `json:"format"`
	Audio  AudioSettings `json:"audio"`
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	v := alias{Format: NewProjectFormat(1920, 1080, 25), Audio: defaultAudioSettings()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Project(v)
	return nil
}

// EditIntent is the complete declarative description of an edit.
type EditIntent struct {
	Version    string      `json:"version"`
	Project    Project     `json:"project"`
	Assets     []Asset     `json:"assets"`
	Timeline   Timeline    `json:"timeline"`
	Operations *Operations `json:"operations,omitempty"`

	AgentID   string `json:"agent_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	MissingInputs       []string `json:"missing_inputs,omitempty"`
	NeedsUserTimestamps bool     `json:"needs_user_timestamps"`
}

// Asset looks up a declared asset by id.
func (e *EditIntent) Asset(id string) (*Asset, bool) {
	for i := range e.Assets {
		if e.Assets[i].ID == id {
			return &e.Assets[i], true
		}
	}
	return nil, false
}

// JSON renders the intent for persistence beside a job.
func (e *EditIntent) JSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
