package tasks

import (
	"strconv"
	"strings"
)

// unknownSpeed is reported when a progress line carries no speed token.
const unknownSpeed = "Unknown"

// parseProgressLine extracts (percent, speed) from a yt-dlp progress line
// such as "[download]  50.0% of 100.00MiB at 5.00MiB/s ETA 00:10". The
// percent is the float between the closing bracket and the percent sign; the
// speed is the token after " at " up to the next space. Lines that do not
// match report ok=false and are ignored by the caller.
func parseProgressLine(line string) (percent float64, speed string, ok bool) {
	pctIdx := strings.Index(line, "%")
	if pctIdx < 0 {
		return 0, "", false
	}

	bracket := strings.Index(line, "]")
	if bracket < 0 || bracket > pctIdx {
		return 0, "", false
	}

	percent, err := strconv.ParseFloat(strings.TrimSpace(line[bracket+1:pctIdx]), 64)
	if err != nil {
		return 0, "", false
	}

	speed = unknownSpeed
	if at := strings.Index(line, " at "); at >= 0 {
		token := line[at+4:]
		if sp := strings.IndexByte(token, ' '); sp >= 0 {
			token = token[:sp]
		}
		if token != "" {
			speed = token
		}
	}

	return percent, speed, true
}
