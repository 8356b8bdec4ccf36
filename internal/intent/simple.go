package intent

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"splice/internal/rational"
)

// SimpleClipSeconds is the default length given to every clip by Simple.
const SimpleClipSeconds = 10

var (
	videoExtensions = map[string]bool{".mov": true, ".mp4": true, ".m4v": true, ".avi": true, ".mkv": true, ".webm": true}
	audioExtensions = map[string]bool{".wav": true, ".mp3": true, ".aac": true, ".m4a": true, ".aiff": true}
)

// Simple builds an intent that concatenates the media files in order on the
// primary storyline. Each clip is clipSeconds long, snapped to the nearest
// frame; zero or less means SimpleClipSeconds.
func Simple(paths []string, projectName, preset string, clipSeconds float64) (*EditIntent, error) {
	format, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(projectName) == "" {
		projectName = "Simple Project"
	}
	ts := format.Timescale()
	if clipSeconds <= 0 {
		clipSeconds = SimpleClipSeconds
	}
	length, err := rational.Parse(rational.AlignToFrame(rational.FromSeconds(clipSeconds, format.FPS), format.FPS))
	if err != nil {
		return nil, fmt.Errorf("clip length: %w", err)
	}
	clip := length.Num
	if clip <= 0 {
		return nil, fmt.Errorf("clip length %gs is shorter than one frame at %g fps", clipSeconds, format.FPS)
	}

	in := &EditIntent{
		Version: "1",
		Project: Project{Name: projectName, Format: format, Audio: defaultAudioSettings()},
	}
	var offset int64
	for i, path := range paths {
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("media path must be absolute: %s", path)
		}
		ext := strings.ToLower(filepath.Ext(path))
		hasVideo := videoExtensions[ext]
		hasAudio := hasVideo || audioExtensions[ext]

		asset := Asset{
			ID:            fmt.Sprintf("r%d", i+2),
			Name:          norm.NFC.String(filepath.Base(path)),
			Path:          path,
			HasVideo:      hasVideo,
			HasAudio:      hasAudio,
			AudioRate:     48000,
			AudioChannels: 2,
		}
		if hasVideo {
			asset.FormatRef = FormatResourceID
		}
		asset.fillUID()
		in.Assets = append(in.Assets, asset)

		seg := Segment{
			AssetID:  asset.ID,
			Offset:   rational.Time{Num: offset, Den: ts}.String(),
			Start:    rational.Time{Num: 0, Den: ts}.String(),
			Duration: rational.Time{Num: clip, Den: ts}.String(),
		}
		if hasAudio {
			seg.Role = RoleDialogue
		}
		in.Timeline.Segments = append(in.Timeline.Segments, seg)
		offset += clip
	}
	if err := in.Check(); err != nil {
		return nil, err
	}
	return in, nil
}
