package rational

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`^(\d+)/(\d+)s$`)

// FormatError reports a string that is not a rational time value.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid rational time format: %q (expected e.g. \"1234/2500s\")", e.Value)
}

// ErrorKind classifies the error; the CLI exits with status 2 for validation failures.
func (e *FormatError) ErrorKind() string { return "validation" }

// Time is an exact frame count over a timescale.
type Time struct {
	Num int64
	Den int64
}

// Timescale returns the ticks-per-second used for a frame rate.
func Timescale(fps float64) int64 {
	return int64(math.Round(fps * 100))
}

// FromSeconds renders seconds as rational time on the fps-derived timescale.
func FromSeconds(seconds, fps float64) string {
	ts := Timescale(fps)
	frames := int64(math.Round(seconds * float64(ts)))
	return Time{Num: frames, Den: ts}.String()
}

// ToSeconds converts a rational time string to seconds.
func ToSeconds(s string) (float64, error) {
	t, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return t.Seconds(), nil
}

// Parse decodes a "N/Ds" string. A zero denominator is rejected.
func Parse(s string) (Time, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Time{}, &FormatError{Value: s}
	}
	num, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Time{}, &FormatError{Value: s}
	}
	den, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || den == 0 {
		return Time{}, &FormatError{Value: s}
	}
	return Time{Num: num, Den: den}, nil
}

// Valid reports whether s is a well-formed rational time string.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Seconds returns the value as a float ratio.
func (t Time) Seconds() float64 {
	if t.Den == 0 {
		return 0
	}
	return float64(t.Num) / float64(t.Den)
}

// Frames expresses the value in ticks of the given timescale, rounding half
// away from zero when the timescales differ.
func (t Time) Frames(timescale int64) int64 {
	if t.Den == 0 || timescale <= 0 {
		return 0
	}
	if t.Den == timescale {
		return t.Num
	}
	scaled := t.Num * timescale
	q, r := scaled/t.Den, scaled%t.Den
	if 2*r >= t.Den {
		q++
	}
	return q
}

func (t Time) String() string {
	return strconv.FormatInt(t.Num, 10) + "/" + strconv.FormatInt(t.Den, 10) + "s"
}

// AlignToFrame snaps a rational time to the nearest frame boundary of its own
// timescale. Values that do not parse are returned unchanged.
func AlignToFrame(s string, fps float64) string {
	t, err := Parse(s)
	if err != nil || fps <= 0 {
		return s
	}
	frame := int64(math.Round(float64(t.Den) / fps))
	if frame <= 0 {
		return s
	}
	aligned := int64(math.Round(float64(t.Num)/float64(frame))) * frame
	return Time{Num: aligned, Den: t.Den}.String()
}
