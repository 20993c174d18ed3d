package subtitle

import (
	"reflect"
	"testing"
)

func TestChunkCues(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 5, Text: "a"},
		{Start: 5, End: 10, Text: "b"},
		{Start: 10, End: 15, Text: "c"},
		{Start: 15, End: 20, Text: "d"},
	}

	chunks := ChunkCues(cues, 12, 2)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !reflect.DeepEqual(chunks[0].Cues, cues[0:2]) {
		t.Errorf("chunk 0 = %+v, want first two cues", chunks[0].Cues)
	}
	if !reflect.DeepEqual(chunks[1].Cues, cues[2:4]) {
		t.Errorf("chunk 1 = %+v, want last two cues", chunks[1].Cues)
	}
	if chunks[0].PrevContext != nil {
		t.Errorf("chunk 0 has context %+v, want none", chunks[0].PrevContext)
	}
	if !reflect.DeepEqual(chunks[1].PrevContext, cues[0:2]) {
		t.Errorf("chunk 1 context = %+v, want trailing two of chunk 0", chunks[1].PrevContext)
	}
}

func TestChunkCuesOverlongCue(t *testing.T) {
	cues := []Cue{{Start: 0, End: 600, Text: "long"}}
	chunks := ChunkCues(cues, 300, 2)
	if len(chunks) != 1 || len(chunks[0].Cues) != 1 {
		t.Fatalf("over-long cue must land in its own chunk, got %+v", chunks)
	}
}

func TestChunkCuesEmpty(t *testing.T) {
	if chunks := ChunkCues(nil, 300, 2); chunks != nil {
		t.Errorf("got %+v, want nil", chunks)
	}
}

func TestChunkCuesCoverage(t *testing.T) {
	var cues []Cue
	for i := 0; i < 50; i++ {
		cues = append(cues, Cue{Start: float64(i * 7), End: float64(i*7 + 6), Text: "x"})
	}

	chunks := ChunkCues(cues, 60, 3)
	var joined []Cue
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if len(ch.Cues) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
		joined = append(joined, ch.Cues...)
	}
	if !reflect.DeepEqual(joined, cues) {
		t.Error("chunk concatenation does not reproduce the input")
	}
}

func TestChunkCuesContextShorterThanOverlap(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 100, Text: "a"},
		{Start: 100, End: 200, Text: "b"},
	}
	chunks := ChunkCues(cues, 150, 5)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !reflect.DeepEqual(chunks[1].PrevContext, cues[0:1]) {
		t.Errorf("context = %+v, want all of chunk 0", chunks[1].PrevContext)
	}
}
