package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// Warnings lists accepted-but-unexecuted requests carried by the intent.
// Operation warnings come first, then missing inputs, then timestamp needs.
func (e *EditIntent) Warnings() []string {
	var out []string
	if ops := e.Operations; ops != nil {
		if v := ops.RemovePausesOverSeconds; v != nil {
			out = append(out, fmt.Sprintf("Operation 'remove_pauses_over_seconds=%s' is NOT IMPLEMENTED - pauses will not be removed", formatNumber(*v)))
		}
		if v := ops.LoudnessTargetLUFS; v != nil {
			out = append(out, fmt.Sprintf("Operation 'loudness_target_lufs=%s' is NOT IMPLEMENTED - audio will not be normalized", formatNumber(*v)))
		}
		if ops.ZoomPunches != nil {
			out = append(out, fmt.Sprintf("Operation 'zoom_punches' with %d entries is NOT IMPLEMENTED - zoom effects will not be applied", len(ops.ZoomPunches)))
		}
	}
	if len(e.MissingInputs) > 0 {
		out = append(out, "Missing inputs requested: "+strings.Join(e.MissingInputs, ", "))
	}
	if e.NeedsUserTimestamps {
		out = append(out, "User timestamps needed - using default concatenation order")
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
