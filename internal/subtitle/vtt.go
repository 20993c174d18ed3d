package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Cue is a single timed subtitle entry. Cues are values; timing edits
// produce new cues rather than mutating existing ones.
type Cue struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// FormatError reports input that cannot be read as WebVTT.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return e.Msg
}

var timestampRe = regexp.MustCompile(`((?:\d{1,2}:)?\d{1,2}:\d{2}[.,]\d{1,3})\s*-->\s*((?:\d{1,2}:)?\d{1,2}:\d{2}[.,]\d{1,3})`)

// Parse reads WebVTT content into an ordered cue list. It accepts the
// optional WEBVTT header, SRT-style numeric index lines between cues, and
// comma millisecond delimiters. It fails with a *FormatError when the input
// contains no well-formed timecode blocks at all.
func Parse(content string) ([]Cue, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var cues []Cue
	var current *Cue
	sawTimecode := false

	flush := func() {
		if current != nil && current.Text != "" {
			cues = append(cues, *current)
		}
		current = nil
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if isHeaderLine(line) || line == "" {
			flush()
			continue
		}

		if m := timestampRe.FindStringSubmatch(line); len(m) == 3 {
			flush()
			sawTimecode = true
			current = &Cue{
				Start: parseTimestamp(m[1]),
				End:   parseTimestamp(m[2]),
			}
			continue
		}

		// SRT-style cue index between blocks
		if _, err := strconv.Atoi(line); err == nil && current == nil {
			continue
		}

		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}
	flush()

	if !sawTimecode {
		return nil, &FormatError{Msg: "no timecode lines found in subtitle input"}
	}
	if len(cues) == 0 {
		return nil, &FormatError{Msg: "no cues with text found in subtitle input"}
	}
	return cues, nil
}

// Serialize renders cues as WebVTT. Timecodes are always rendered in full
// HH:MM:SS.mmm form regardless of the source precision, so Serialize is the
// left inverse of Parse for any cue list Serialize produced.
func Serialize(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		sb.WriteString(formatTimestamp(cue.Start, "."))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(cue.End, "."))
		sb.WriteString("\n")
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// ToSRT re-renders WebVTT content in SRT form: numeric index lines and
// comma-delimited milliseconds. It is a pure re-render of the parsed cues,
// so it fails only when Parse fails.
func ToSRT(content string) (string, error) {
	cues, err := Parse(content)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, cue := range cues {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(cue.Start, ","))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(cue.End, ","))
		sb.WriteString("\n")
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func isHeaderLine(line string) bool {
	return strings.HasPrefix(line, "WEBVTT")
}

func parseTimestamp(ts string) float64 {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")

	var h, m int
	secPart := parts[len(parts)-1]
	switch len(parts) {
	case 3:
		h, _ = strconv.Atoi(parts[0])
		m, _ = strconv.Atoi(parts[1])
	case 2:
		m, _ = strconv.Atoi(parts[0])
	}

	s := secPart
	ms := 0
	if dot := strings.IndexByte(secPart, '.'); dot >= 0 {
		s = secPart[:dot]
		frac := secPart[dot+1:]
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ = strconv.Atoi(frac[:3])
	}
	sec, _ := strconv.Atoi(s)

	return float64(h*3600+m*60+sec) + float64(ms)/1000.0
}

func formatTimestamp(seconds float64, msSep string) string {
	totalMs := int(math.Round(seconds * 1000))
	if totalMs < 0 {
		totalMs = 0
	}
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, msSep, ms)
}
