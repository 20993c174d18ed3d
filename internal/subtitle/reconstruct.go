package subtitle

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// structuredPayload is the JSON contract for structured generation output.
// Exactly one of the two entry shapes appears per call: one entry per
// original cue with an integer id and optional merge flag, or one entry per
// output group carrying the id list it covers.
type structuredPayload struct {
	Translations json.RawMessage `json:"translations"`
}

type translationEntry struct {
	ID            *int    `json:"id"`
	IDs           []int   `json:"ids"`
	Text          *string `json:"text"`
	MergeWithNext bool    `json:"merge_with_next"`
}

// Reconstruct maps structured model output back onto the original cue
// timeline. Merges collapse several original cues into one output cue
// spanning the group; ids the model silently omitted are dropped with a
// warning, never fabricated. Only an uninterpretable top-level shape is an
// error; field-level defects downgrade to per-item warnings or skips.
func Reconstruct(orig []Cue, raw string) ([]Cue, []string, error) {
	var payload structuredPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, nil, fmt.Errorf("parse structured output: %w", err)
	}
	if payload.Translations == nil {
		return nil, nil, fmt.Errorf("structured output has no translations field")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload.Translations, &items); err != nil {
		return nil, nil, fmt.Errorf("translations is not an array: %w", err)
	}

	var warnings []string
	entries := make([]translationEntry, 0, len(items))
	for i, item := range items {
		var e translationEntry
		if err := json.Unmarshal(item, &e); err != nil {
			warnings = append(warnings, fmt.Sprintf("translation entry %d skipped: %v", i+1, err))
			continue
		}
		entries = append(entries, e)
	}

	if usesIDLists(entries) {
		cues, warns := reconstructGrouped(orig, entries)
		return cues, append(warnings, warns...), nil
	}
	cues, warns := reconstructSequential(orig, entries)
	return cues, append(warnings, warns...), nil
}

func usesIDLists(entries []translationEntry) bool {
	for _, e := range entries {
		if len(e.IDs) > 0 {
			return true
		}
		if e.ID != nil {
			return false
		}
	}
	return false
}

// reconstructSequential walks original ids 1..N, grouping runs linked by
// merge_with_next. The group's timing is the first id's start through the
// last absorbed id's end; a gap in a merge chain stops the merge with a
// warning rather than silently absorbing it.
func reconstructSequential(orig []Cue, entries []translationEntry) ([]Cue, []string) {
	var warnings []string

	byID := make(map[int]translationEntry, len(entries))
	for _, e := range entries {
		if e.ID == nil {
			warnings = append(warnings, "translation entry without id skipped")
			continue
		}
		if *e.ID < 1 || *e.ID > len(orig) {
			warnings = append(warnings, fmt.Sprintf("translation id %d out of range 1..%d, skipped", *e.ID, len(orig)))
			continue
		}
		if _, dup := byID[*e.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate translation for id %d ignored", *e.ID))
			continue
		}
		byID[*e.ID] = e
	}

	var out []Cue
	for id := 1; id <= len(orig); id++ {
		entry, ok := byID[id]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cue %d dropped: no translation returned", id))
			continue
		}

		texts := []string{entryText(entry)}
		endID := id
		for byID[endID].MergeWithNext {
			next, ok := byID[endID+1]
			if !ok {
				if endID+1 <= len(orig) {
					warnings = append(warnings, fmt.Sprintf("merge chain broken at cue %d: id %d missing", endID, endID+1))
				} else {
					warnings = append(warnings, fmt.Sprintf("cue %d sets merge_with_next past the last cue", endID))
				}
				break
			}
			texts = append(texts, entryText(next))
			endID++
		}

		out = append(out, Cue{
			Start: orig[id-1].Start,
			End:   orig[endID-1].End,
			Text:  joinTexts(texts),
		})
		id = endID
	}

	sortByStart(out)
	return out, warnings
}

// reconstructGrouped handles the id-list shape: each entry claims the
// original ids it covers and spans min(start)..max(end) over the survivors.
// Out-of-range and already-claimed ids are dropped individually; unclaimed
// originals are reported once all entries are processed. A non-contiguous id
// list can span cues sitting between the claimed ids; that matches the
// model contract and is deliberately not corrected here.
func reconstructGrouped(orig []Cue, entries []translationEntry) ([]Cue, []string) {
	var warnings []string
	claimed := make(map[int]bool, len(orig))

	var out []Cue
	for i, entry := range entries {
		var ids []int
		for _, id := range entry.IDs {
			if id < 1 || id > len(orig) {
				warnings = append(warnings, fmt.Sprintf("entry %d: id %d out of range 1..%d, dropped", i+1, id, len(orig)))
				continue
			}
			if claimed[id] {
				warnings = append(warnings, fmt.Sprintf("entry %d: id %d already claimed, dropped", i+1, id))
				continue
			}
			claimed[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			warnings = append(warnings, fmt.Sprintf("entry %d has no usable ids, skipped", i+1))
			continue
		}

		start := orig[ids[0]-1].Start
		end := orig[ids[0]-1].End
		for _, id := range ids[1:] {
			if orig[id-1].Start < start {
				start = orig[id-1].Start
			}
			if orig[id-1].End > end {
				end = orig[id-1].End
			}
		}
		out = append(out, Cue{Start: start, End: end, Text: entryText(entry)})
	}

	for id := 1; id <= len(orig); id++ {
		if !claimed[id] {
			warnings = append(warnings, fmt.Sprintf("cue %d dropped: not claimed by any entry", id))
		}
	}

	sortByStart(out)
	return out, warnings
}

func entryText(e translationEntry) string {
	if e.Text == nil {
		return ""
	}
	return *e.Text
}

func joinTexts(texts []string) string {
	parts := texts[:0:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func sortByStart(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Start < cues[j].Start
	})
}

// extractJSON trims prose or code fences the model may have wrapped around
// the JSON object.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
