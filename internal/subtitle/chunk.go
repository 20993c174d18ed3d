package subtitle

// Chunk is a time-bounded slice of the full cue sequence. Cues is the
// working set sent for processing; PrevContext is a read-only trailing slice
// of the previous chunk's cues supplied purely for continuity and never
// echoed back into chunk output.
type Chunk struct {
	Index       int   `json:"index"`
	Cues        []Cue `json:"cues"`
	PrevContext []Cue `json:"prev_context,omitempty"`
}

// ChunkCues partitions cues into chunks whose time span stays within
// targetSeconds, measured from the first cue's start to the last cue's end.
// A chunk always holds at least one cue; a single over-long cue is never
// split. The pass is deterministic and pure, which is what lets a retry
// regenerate the exact payload originally sent.
func ChunkCues(cues []Cue, targetSeconds float64, overlapCount int) []Chunk {
	if len(cues) == 0 {
		return nil
	}
	if overlapCount < 0 {
		overlapCount = 0
	}

	var chunks []Chunk
	start := 0
	for i := 1; i <= len(cues); i++ {
		if i < len(cues) && cues[i].End-cues[start].Start <= targetSeconds {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Cues:  cues[start:i],
		})
		start = i
	}

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Cues
		n := overlapCount
		if n > len(prev) {
			n = len(prev)
		}
		if n > 0 {
			chunks[i].PrevContext = prev[len(prev)-n:]
		}
	}
	return chunks
}
