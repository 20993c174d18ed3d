package subtitle

import (
	"strings"
	"testing"
)

var reconstructOrig = []Cue{
	{Start: 0, End: 2, Text: "one"},
	{Start: 2, End: 4, Text: "two"},
	{Start: 4, End: 6, Text: "three"},
}

func TestReconstructSequential(t *testing.T) {
	raw := `{"translations":[
		{"id":1,"text":"Eins","merge_with_next":true},
		{"id":2,"text":"Zwei"},
		{"id":3,"text":"Drei"}
	]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 4 || cues[0].Text != "Eins Zwei" {
		t.Errorf("merged cue = %+v, want 0-4 %q", cues[0], "Eins Zwei")
	}
	if cues[1].Start != 4 || cues[1].End != 6 || cues[1].Text != "Drei" {
		t.Errorf("cue 2 = %+v", cues[1])
	}
}

func TestReconstructSequentialMissingID(t *testing.T) {
	raw := `{"translations":[{"id":1,"text":"Eins"},{"id":3,"text":"Drei"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	found := false
	for _, w := range warns {
		if strings.Contains(w, "cue 2 dropped") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing-id warning not emitted: %v", warns)
	}
}

func TestReconstructSequentialBrokenMergeChain(t *testing.T) {
	raw := `{"translations":[{"id":1,"text":"Eins","merge_with_next":true},{"id":3,"text":"Drei"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	// Merge stops at the gap; cue 1 keeps its own span
	if cues[0].End != 2 {
		t.Errorf("cue 0 end = %v, want merge stopped at 2", cues[0].End)
	}
	joined := strings.Join(warns, " | ")
	if !strings.Contains(joined, "merge chain broken") {
		t.Errorf("broken-chain warning not emitted: %v", warns)
	}
}

func TestReconstructSequentialDuplicateID(t *testing.T) {
	raw := `{"translations":[{"id":1,"text":"A"},{"id":1,"text":"B"},{"id":2,"text":"C"},{"id":3,"text":"D"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if cues[0].Text != "A" {
		t.Errorf("cue 0 text = %q, first translation must win", cues[0].Text)
	}
	joined := strings.Join(warns, " | ")
	if !strings.Contains(joined, "duplicate") {
		t.Errorf("duplicate warning not emitted: %v", warns)
	}
}

func TestReconstructGrouped(t *testing.T) {
	raw := `{"translations":[{"ids":[1,2],"text":"Merged"},{"ids":[3],"text":"Last"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 4 || cues[0].Text != "Merged" {
		t.Errorf("group cue = %+v", cues[0])
	}
}

func TestReconstructGroupedNonContiguous(t *testing.T) {
	// A non-contiguous id list spans the gap; the unclaimed cue is reported
	raw := `{"translations":[{"ids":[1,3],"text":"Wide"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(cues) != 1 || cues[0].Start != 0 || cues[0].End != 6 {
		t.Errorf("cues = %+v, want one cue spanning 0-6", cues)
	}
	joined := strings.Join(warns, " | ")
	if !strings.Contains(joined, "cue 2 dropped") {
		t.Errorf("unclaimed-cue warning not emitted: %v", warns)
	}
}

func TestReconstructGroupedClaimConflict(t *testing.T) {
	raw := `{"translations":[{"ids":[1,2],"text":"A"},{"ids":[2,3],"text":"B"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	// Second entry keeps only id 3
	if cues[1].Start != 4 || cues[1].End != 6 {
		t.Errorf("cue 1 = %+v, want span of id 3 only", cues[1])
	}
	joined := strings.Join(warns, " | ")
	if !strings.Contains(joined, "already claimed") {
		t.Errorf("claim-conflict warning not emitted: %v", warns)
	}
}

func TestReconstructWrappedInProse(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"translations\":[{\"id\":1,\"text\":\"A\"},{\"id\":2,\"text\":\"B\"},{\"id\":3,\"text\":\"C\"}]}\n```"
	cues, _, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(cues) != 3 {
		t.Errorf("got %d cues, want 3", len(cues))
	}
}

func TestReconstructBadShape(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`{"other":[]}`,
		`{"translations":{"id":1}}`,
	} {
		if _, _, err := Reconstruct(reconstructOrig, raw); err == nil {
			t.Errorf("Reconstruct(%q) accepted a bad top-level shape", raw)
		}
	}
}

func TestReconstructEntrySkipOnBadItem(t *testing.T) {
	raw := `{"translations":[{"id":"oops"},{"id":2,"text":"B"},{"id":3,"text":"C"}]}`
	cues, warns, err := Reconstruct(reconstructOrig, raw)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if len(cues) != 2 {
		t.Errorf("got %d cues, want 2 survivors", len(cues))
	}
	joined := strings.Join(warns, " | ")
	if !strings.Contains(joined, "skipped") {
		t.Errorf("skip warning not emitted: %v", warns)
	}
}
