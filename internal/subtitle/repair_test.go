package subtitle

import (
	"strings"
	"testing"
)

func TestAutoRepairCodeFence(t *testing.T) {
	input := "```vtt\nWEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n```"
	repaired, warns := AutoRepair(input)
	if strings.Contains(repaired, "```") {
		t.Errorf("code fence not removed: %q", repaired)
	}
	if len(warns) == 0 {
		t.Error("expected a warning for the removed code fence")
	}
	if _, err := Parse(repaired); err != nil {
		t.Errorf("repaired output unparseable: %v", err)
	}
}

func TestAutoRepairDuplicateHeader(t *testing.T) {
	input := "WEBVTT\n\nWEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n"
	repaired, _ := AutoRepair(input)
	if n := strings.Count(repaired, "WEBVTT"); n != 1 {
		t.Errorf("got %d WEBVTT headers, want 1", n)
	}
}

func TestAutoRepairMissingHeader(t *testing.T) {
	input := "00:00:01.000 --> 00:00:02.000\nHi\n"
	repaired, _ := AutoRepair(input)
	if !strings.HasPrefix(repaired, "WEBVTT\n") {
		t.Errorf("header not synthesized: %q", repaired)
	}
}

func TestAutoRepairMalformedTimecode(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		fixed string
	}{
		{"missing hour", "01.000 --> 04.500", "00:00:01.000 --> 00:00:04.500"},
		{"no spaces", "00:01.000-->00:04.000", "00:00:01.000 --> 00:00:04.000"},
		{"short millis", "00:00:01.5 --> 00:00:02.75", "00:00:01.500 --> 00:00:02.750"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, _ := AutoRepair("WEBVTT\n\n" + tt.line + "\ntext\n")
			if !strings.Contains(repaired, tt.fixed) {
				t.Errorf("repaired = %q, want line %q", repaired, tt.fixed)
			}
		})
	}
}

func TestAutoRepairMissingBlankLine(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nFirst\n00:00:03.000 --> 00:00:04.000\nSecond\n"
	repaired, warns := AutoRepair(input)
	cues, err := Parse(repaired)
	if err != nil {
		t.Fatalf("repaired output unparseable: %v", err)
	}
	if len(cues) != 2 {
		t.Errorf("got %d cues, want 2", len(cues))
	}
	found := false
	for _, w := range warns {
		if strings.Contains(w, "blank line") {
			found = true
		}
	}
	if !found {
		t.Error("expected a missing-blank-line warning")
	}
}

func TestAutoRepairIdempotent(t *testing.T) {
	inputs := []string{
		"```\n00:01.000-->00:02.000\nHi\n```",
		"WEBVTT\n\nWEBVTT\n\n00:00:01.000 --> 00:00:02.000\nFirst\n00:00:03.000 --> 00:00:04.000\nSecond\n",
		"WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nClean\n",
	}
	for _, input := range inputs {
		once, _ := AutoRepair(input)
		twice, warns := AutoRepair(once)
		if twice != once {
			t.Errorf("repair not idempotent for %q:\nfirst:  %q\nsecond: %q", input, once, twice)
		}
		if len(warns) != 0 {
			t.Errorf("second repair of %q produced warnings: %v", input, warns)
		}
	}
}

func TestValidateCleanTrack(t *testing.T) {
	errs, _ := Validate("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n")
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateInvertedTiming(t *testing.T) {
	errs, _ := Validate("WEBVTT\n\n00:00:05.000 --> 00:00:02.000\nBackwards\n")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "not after start") {
		t.Errorf("unexpected error: %q", errs[0])
	}
}

func TestValidateOverlap(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:05.000\nFirst\n\n00:00:04.000 --> 00:00:08.000\nSecond\n"
	errs, _ := Validate(input)
	if len(errs) != 1 || !strings.Contains(errs[0], "before previous cue ends") {
		t.Errorf("got errors %v, want one overlap error", errs)
	}
}

func TestValidateLongCueWarning(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\na\nb\nc\nd\n"
	errs, warns := Validate(input)
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	found := false
	for _, w := range warns {
		if strings.Contains(w, "more than 3 text lines") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected long-cue warning, got %v", warns)
	}
}

func TestReconcileTimecodes(t *testing.T) {
	orig := []Cue{{Start: 1, End: 2, Text: "a"}, {Start: 3, End: 4, Text: "b"}}
	translated := []Cue{{Start: 1.5, End: 2.5, Text: "A"}, {Start: 3, End: 4, Text: "B"}}

	fixed, errs, warns := ReconcileTimecodes(orig, translated)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if fixed[0].Start != 1 || fixed[0].End != 2 || fixed[0].Text != "A" {
		t.Errorf("cue 1 = %+v, want timing 1-2 with text A", fixed[0])
	}
	if len(warns) != 1 || !strings.Contains(warns[0], "1 cue(s)") {
		t.Errorf("warns = %v, want one aggregate warning for 1 cue", warns)
	}
}

func TestReconcileTimecodesCountMismatch(t *testing.T) {
	orig := []Cue{{Start: 1, End: 2, Text: "a"}}
	translated := []Cue{{Start: 1, End: 2, Text: "A"}, {Start: 3, End: 4, Text: "B"}}

	fixed, errs, _ := ReconcileTimecodes(orig, translated)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(fixed) != 2 {
		t.Errorf("translated cues not echoed back: %+v", fixed)
	}
}

func TestDetectLooping(t *testing.T) {
	var cues []Cue
	for i := 0; i < 5; i++ {
		cues = append(cues, Cue{Start: float64(i), End: float64(i) + 1, Text: "same"})
	}
	if warns := DetectLooping(cues); len(warns) != 1 {
		t.Errorf("5 repeats: got %v, want one warning", warns)
	}
	if warns := DetectLooping(cues[:4]); len(warns) != 0 {
		t.Errorf("4 repeats: got %v, want none", warns)
	}
}
