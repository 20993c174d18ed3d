package subtitle

import (
	"sort"
	"strings"
)

// Fragment is a serialized subtitle fragment addressed by an absolute media
// offset, as produced when independently processed media segments each get
// their own zero-based track.
type Fragment struct {
	Text   string  `json:"text"`
	Offset float64 `json:"offset"` // seconds added to every cue
}

// StitchText concatenates already-time-consistent serialized fragments into
// one track, keeping the first header and stripping the rest. Relative order
// is preserved; no offset math is applied.
func StitchText(parts []string) string {
	var sb strings.Builder
	headerSeen := false

	for _, part := range parts {
		part = strings.TrimRight(strings.ReplaceAll(part, "\r\n", "\n"), "\n")
		if part == "" {
			continue
		}
		for _, line := range strings.Split(part, "\n") {
			if isHeaderLine(strings.TrimSpace(line)) {
				if headerSeen {
					continue
				}
				headerSeen = true
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MergeTimeShifted pools cues from fragments keyed by absolute media
// offsets: each fragment's cues are shifted by its offset, then everything
// is sorted into one timeline. Unparseable fragments are dropped from the
// pool on purpose; their loss is reported through the owning chunk's own
// warnings, and one bad fragment must not blank out an otherwise-good
// track. The SRT rendering is derived only when the merge produced at least
// one cue.
func MergeTimeShifted(parts []Fragment) (vtt string, srt string) {
	var pool []Cue
	for _, part := range parts {
		cues, err := Parse(part.Text)
		if err != nil {
			continue
		}
		for _, cue := range cues {
			pool = append(pool, Cue{
				Start: cue.Start + part.Offset,
				End:   cue.End + part.Offset,
				Text:  cue.Text,
			})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Start != pool[j].Start {
			return pool[i].Start < pool[j].Start
		}
		return pool[i].End < pool[j].End
	})

	vtt = Serialize(pool)
	if len(pool) > 0 {
		srt, _ = ToSRT(vtt)
	}
	return vtt, srt
}
