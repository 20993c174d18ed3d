package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	arrowLineRe   = regexp.MustCompile(`-->`)
	numberGroupRe = regexp.MustCompile(`\d+`)
)

// AutoRepair heals the malformed-output patterns language models commonly
// produce: code-fence wrapping, duplicate or missing WEBVTT headers,
// loosely-delimited timecodes, and missing blank lines between cues. It is
// total: input it cannot repair is passed through unchanged and surfaces as
// a parse failure downstream, never as an error here.
func AutoRepair(raw string) (string, []string) {
	var warnings []string

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text, stripped := stripCodeFence(text)
	if stripped {
		warnings = append(warnings, "removed code fence wrapping around output")
	}

	lines := strings.Split(text, "\n")

	// Keep the first header, drop the rest
	out := make([]string, 0, len(lines)+2)
	headerSeen := false
	for _, line := range lines {
		if isHeaderLine(strings.TrimSpace(line)) {
			if headerSeen {
				warnings = append(warnings, "removed duplicate WEBVTT header")
				continue
			}
			headerSeen = true
		}
		out = append(out, line)
	}
	if !headerSeen {
		out = append([]string{"WEBVTT", ""}, out...)
	}
	lines = out

	// Canonicalize timecode lines however they were delimited
	for i, line := range lines {
		if !arrowLineRe.MatchString(line) {
			continue
		}
		fixed, ok := normalizeTimecodeLine(line)
		if ok && fixed != strings.TrimSpace(line) {
			warnings = append(warnings, fmt.Sprintf("normalized malformed timecode line %q", strings.TrimSpace(line)))
			lines[i] = fixed
		}
	}

	// Insert blank lines between adjacent cues when the model omitted them
	out = make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if arrowLineRe.MatchString(trimmed) && len(out) > 0 {
			// The block may start one line earlier with an SRT-style index
			blockStart := len(out)
			if isDigits(strings.TrimSpace(out[len(out)-1])) {
				blockStart--
			}
			if blockStart > 0 {
				prev := strings.TrimSpace(out[blockStart-1])
				if prev != "" && !isHeaderLine(prev) {
					out = append(out[:blockStart], append([]string{""}, out[blockStart:]...)...)
					warnings = append(warnings, "inserted missing blank line between cues")
				}
			}
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n"), warnings
}

// Validate repairs, parses, then checks cue integrity. A parse failure is a
// single error and validation stops there. Inverted timing and overlap with
// the previous cue are errors; more than 3 text lines is only a warning.
func Validate(content string) (errs []string, warns []string) {
	repaired, repairWarns := AutoRepair(content)
	warns = append(warns, repairWarns...)

	cues, err := Parse(repaired)
	if err != nil {
		errs = append(errs, err.Error())
		return errs, warns
	}

	for i, cue := range cues {
		if cue.End <= cue.Start {
			errs = append(errs, fmt.Sprintf("cue %d: end %s is not after start %s",
				i+1, formatTimestamp(cue.End, "."), formatTimestamp(cue.Start, ".")))
		}
		if i > 0 && cue.Start < cues[i-1].End {
			errs = append(errs, fmt.Sprintf("cue %d: starts at %s before previous cue ends at %s",
				i+1, formatTimestamp(cue.Start, "."), formatTimestamp(cues[i-1].End, ".")))
		}
		if strings.Count(cue.Text, "\n") >= 3 {
			warns = append(warns, fmt.Sprintf("cue %d: more than 3 text lines", i+1))
		}
	}
	return errs, warns
}

// ReconcileTimecodes pairs translated cues with the originals positionally
// and forces every translated cue's timing back to the original's. Generated
// content may rewrite text freely but is never trusted to preserve timing.
// A cue count mismatch is unrecoverable: the lists cannot be paired and the
// translated cues are echoed back unchanged.
func ReconcileTimecodes(orig, translated []Cue) (fixed []Cue, errs []string, warns []string) {
	if len(orig) != len(translated) {
		errs = append(errs, fmt.Sprintf("cue count mismatch: source has %d cues, output has %d", len(orig), len(translated)))
		return translated, errs, warns
	}

	fixed = make([]Cue, len(translated))
	adjusted := 0
	for i, cue := range translated {
		fixed[i] = Cue{Start: orig[i].Start, End: orig[i].End, Text: cue.Text}
		if cue.Start != orig[i].Start || cue.End != orig[i].End {
			adjusted++
		}
	}
	if adjusted > 0 {
		warns = append(warns, fmt.Sprintf("restored original timecodes on %d cue(s)", adjusted))
	}
	return fixed, errs, warns
}

// repeatThreshold is the consecutive-duplicate run length treated as model
// looping rather than legitimate repetition in dialogue.
const repeatThreshold = 5

// DetectLooping flags repetitive output patterns. Advisory only: a chunk
// with these warnings is still ok if it is otherwise valid.
func DetectLooping(cues []Cue) []string {
	var warns []string
	run := 1
	for i := 1; i < len(cues); i++ {
		if cues[i].Text != "" && cues[i].Text == cues[i-1].Text {
			run++
			continue
		}
		if run >= repeatThreshold {
			warns = append(warns, fmt.Sprintf("possible looping: %q repeated %d times in a row", cues[i-1].Text, run))
		}
		run = 1
	}
	if run >= repeatThreshold {
		warns = append(warns, fmt.Sprintf("possible looping: %q repeated %d times in a row", cues[len(cues)-1].Text, run))
	}
	return warns
}

// normalizeTimecodeLine extracts numeric groups from both sides of the arrow
// and re-renders them canonically. Lines whose groups cannot be interpreted
// as a timecode are left alone.
func normalizeTimecodeLine(line string) (string, bool) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return "", false
	}
	start, ok1 := groupsToSeconds(parts[0])
	end, ok2 := groupsToSeconds(parts[1])
	if !ok1 || !ok2 {
		return "", false
	}
	return formatTimestamp(start, ".") + " --> " + formatTimestamp(end, "."), true
}

func groupsToSeconds(s string) (float64, bool) {
	groups := numberGroupRe.FindAllString(s, -1)
	var h, m, sec, ms int
	switch len(groups) {
	case 4:
		h, _ = strconv.Atoi(groups[0])
		m, _ = strconv.Atoi(groups[1])
		sec, _ = strconv.Atoi(groups[2])
		ms = parseMillisGroup(groups[3])
	case 3:
		m, _ = strconv.Atoi(groups[0])
		sec, _ = strconv.Atoi(groups[1])
		ms = parseMillisGroup(groups[2])
	case 2:
		sec, _ = strconv.Atoi(groups[0])
		ms = parseMillisGroup(groups[1])
	default:
		return 0, false
	}
	return float64(h*3600+m*60+sec) + float64(ms)/1000.0, true
}

// parseMillisGroup pads or truncates a fractional group to millisecond
// precision ("5" → 500ms, "12345" → 123ms).
func parseMillisGroup(g string) int {
	for len(g) < 3 {
		g += "0"
	}
	ms, _ := strconv.Atoi(g[:3])
	return ms
}

func stripCodeFence(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text, false
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text, false
	}
	return strings.Join(lines[1:len(lines)-1], "\n"), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
