package fcpxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"

	"splice/internal/intent"
	"splice/internal/rational"
)

// Result is a compiled document plus everything that was degraded or skipped
// on the way.
type Result struct {
	Document string
	Warnings []string
}

type compiler struct {
	in        *intent.EditIntent
	timescale int64
	warnings  []string
}

// Compile renders an intent as an FCPXML document. Unresolvable segments and
// connected-lane placements become warnings; only serialization can fail.
func Compile(in *intent.EditIntent) (Result, error) {
	c := &compiler{
		in:        in,
		timescale: in.Project.Format.Timescale(),
		warnings:  in.Warnings(),
	}
	doc := document{
		Version:   Version,
		Resources: resources{Format: c.format(), Assets: c.assets()},
	}
	clips := c.clips()
	doc.Library = library{Event: event{
		Name: in.Project.Name,
		Project: project{
			Name: in.Project.Name,
			Sequence: sequence{
				Format:      intent.FormatResourceID,
				Duration:    c.duration(clips),
				TCStart:     rational.Time{Num: 0, Den: c.timescale}.String(),
				TCFormat:    "NDF",
				AudioLayout: string(in.Project.Audio.Layout),
				AudioRate:   audioRate(in.Project.Audio.Rate),
				Spine:       spine{Clips: clips},
			},
		},
	}}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("serialize fcpxml: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(doctype) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.WriteString(doctype)
	buf.Write(body)
	buf.WriteByte('\n')
	return Result{Document: buf.String(), Warnings: c.warnings}, nil
}

func (c *compiler) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *compiler) format() format {
	f := c.in.Project.Format
	return format{
		ID:            intent.FormatResourceID,
		Name:          fmt.Sprintf("FFVideoFormat%dp%d", f.Height, int(f.FPS)),
		FrameDuration: f.FrameDurationRational,
		Width:         f.Width,
		Height:        f.Height,
	}
}

func (c *compiler) assets() []asset {
	out := make([]asset, 0, len(c.in.Assets))
	for _, a := range c.in.Assets {
		uid := a.UID
		if uid == "" {
			uid = intent.PathUID(a.Path)
		}
		el := asset{
			ID:       a.ID,
			Name:     a.Name,
			UID:      uid,
			Duration: a.DurationRational,
			MediaRep: mediaRep{Kind: "original-media", Src: a.SrcURL()},
		}
		if a.HasVideo {
			el.HasVideo = "1"
			el.Format = a.FormatRef
			if el.Format == "" {
				el.Format = intent.FormatResourceID
			}
		}
		if a.HasAudio {
			el.HasAudio = "1"
			el.AudioSources = "1"
			el.AudioChannels = fmt.Sprint(a.AudioChannels)
			el.AudioRate = audioRate(a.AudioRate)
		}
		out = append(out, el)
	}
	return out
}

func (c *compiler) frames(value string) int64 {
	t, err := rational.Parse(value)
	if err != nil {
		return 0
	}
	return t.Frames(c.timescale)
}

// clips lays out the spine: primary segments by ascending offset, then
// connected segments in input order, degraded onto the primary storyline.
func (c *compiler) clips() []assetClip {
	var primary, connected []intent.Segment
	for _, seg := range c.in.Timeline.Segments {
		if seg.Primary() {
			primary = append(primary, seg)
		} else {
			connected = append(connected, seg)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool {
		return c.frames(primary[i].Offset) < c.frames(primary[j].Offset)
	})

	var clips []assetClip
	for _, seg := range primary {
		if clip, ok := c.clip(seg); ok {
			clips = append(clips, clip)
		}
	}
	for _, seg := range connected {
		c.warn("Connected clip (lane=%d) for asset '%s' added as primary storyline clip - connected clips not fully supported", seg.Lane, seg.AssetID)
		if clip, ok := c.clip(seg); ok {
			clips = append(clips, clip)
		}
	}

	markers := c.in.Timeline.Markers
	if len(markers) > 0 {
		if len(clips) == 0 {
			c.warn("No clips on the timeline - %d marker(s) dropped", len(markers))
		} else {
			for _, m := range markers {
				clips[0].Markers = append(clips[0].Markers, marker{Start: m.Start, Duration: m.Duration, Value: m.Name})
			}
		}
	}
	return clips
}

func (c *compiler) clip(seg intent.Segment) (assetClip, bool) {
	a, ok := c.in.Asset(seg.AssetID)
	if !ok {
		c.warn("Asset not found for segment: %s", seg.AssetID)
		return assetClip{}, false
	}
	name := seg.Name
	if name == "" {
		name = a.Name
	}
	clip := assetClip{
		Name:     name,
		Ref:      a.ID,
		Offset:   seg.Offset,
		Duration: seg.Duration,
		Start:    seg.Start,
	}
	if a.HasAudio {
		clip.AudioRole = string(seg.Role)
		if clip.AudioRole == "" {
			clip.AudioRole = string(intent.RoleDialogue)
		}
	}
	if seg.Volume != nil && *seg.Volume != 1 {
		clip.AdjustVolume = &adjustVolume{Amount: fmt.Sprintf("%+.1fdB", *seg.Volume*100-100)}
	}
	return clip, true
}

func (c *compiler) duration(clips []assetClip) string {
	var end int64
	for _, clip := range clips {
		if e := c.frames(clip.Offset) + c.frames(clip.Duration); e > end {
			end = e
		}
	}
	return rational.Time{Num: end, Den: c.timescale}.String()
}
