package fcpxml

import "encoding/xml"

// Version is the interchange format version emitted by Compile.
const Version = "1.11"

const doctype = "<!DOCTYPE fcpxml>\n"

// Field order below is the attribute and child order written to the document.

type document struct {
	XMLName   xml.Name  `xml:"fcpxml"`
	Version   string    `xml:"version,attr"`
	Resources resources `xml:"resources"`
	Library   library   `xml:"library"`
}

type resources struct {
	Format format  `xml:"format"`
	Assets []asset `xml:"asset"`
}

type format struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         int    `xml:"width,attr"`
	Height        int    `xml:"height,attr"`
}

type asset struct {
	ID            string   `xml:"id,attr"`
	Name          string   `xml:"name,attr"`
	UID           string   `xml:"uid,attr"`
	HasVideo      string   `xml:"hasVideo,attr,omitempty"`
	Format        string   `xml:"format,attr,omitempty"`
	HasAudio      string   `xml:"hasAudio,attr,omitempty"`
	AudioSources  string   `xml:"audioSources,attr,omitempty"`
	AudioChannels string   `xml:"audioChannels,attr,omitempty"`
	AudioRate     string   `xml:"audioRate,attr,omitempty"`
	Duration      string   `xml:"duration,attr,omitempty"`
	MediaRep      mediaRep `xml:"media-rep"`
}

type mediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type library struct {
	Event event `xml:"event"`
}

type event struct {
	Name    string  `xml:"name,attr"`
	Project project `xml:"project"`
}

type project struct {
	Name     string   `xml:"name,attr"`
	Sequence sequence `xml:"sequence"`
}

type sequence struct {
	Format      string `xml:"format,attr"`
	Duration    string `xml:"duration,attr"`
	TCStart     string `xml:"tcStart,attr"`
	TCFormat    string `xml:"tcFormat,attr"`
	AudioLayout string `xml:"audioLayout,attr"`
	AudioRate   string `xml:"audioRate,attr"`
	Spine       spine  `xml:"spine"`
}

type spine struct {
	Clips []assetClip `xml:"asset-clip"`
}

type assetClip struct {
	Name         string        `xml:"name,attr"`
	Ref          string        `xml:"ref,attr"`
	Offset       string        `xml:"offset,attr"`
	Duration     string        `xml:"duration,attr"`
	Start        string        `xml:"start,attr"`
	AudioRole    string        `xml:"audioRole,attr,omitempty"`
	AdjustVolume *adjustVolume `xml:"adjust-volume"`
	Markers      []marker      `xml:"marker"`
}

type adjustVolume struct {
	Amount string `xml:"amount,attr"`
}

type marker struct {
	Start    string `xml:"start,attr"`
	Duration string `xml:"duration,attr"`
	Value    string `xml:"value,attr"`
}

// audioRates maps sample rates to the spellings the format accepts.
var audioRates = map[int]string{
	32000:  "32k",
	44100:  "44.1k",
	48000:  "48k",
	88200:  "88.2k",
	96000:  "96k",
	176400: "176.4k",
	192000: "192k",
}

func audioRate(hz int) string {
	if s, ok := audioRates[hz]; ok {
		return s
	}
	return "48k"
}
