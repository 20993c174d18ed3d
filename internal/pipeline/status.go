package pipeline

import (
	"time"

	"github.com/subpipe/backend/internal/subtitle"
)

// Status is the scheduling state of a single chunk.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusOK         Status = "ok"
	StatusFailed     Status = "failed"
	StatusPaused     Status = "paused"
)

// Terminal reports whether a chunk can make no further progress without an
// explicit retry.
func (s Status) Terminal() bool {
	return s == StatusOK || s == StatusFailed
}

// ChunkStatus is the mutable scheduling/progress record for one chunk.
// ChunkVTT and ContextVTT are the exact payload originally sent and are
// never mutated after creation; retry and manual override replace only the
// output fields.
type ChunkStatus struct {
	Idx            int        `json:"idx"`
	Status         Status     `json:"status"`
	VTT            string     `json:"vtt,omitempty"`
	RawModelOutput string     `json:"raw_model_output,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	ChunkVTT       string     `json:"chunk_vtt"`
	ContextVTT     string     `json:"context_vtt,omitempty"`
	Prompt         string     `json:"prompt,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	TokensEstimate int        `json:"tokens_estimate"`
	ModelName      string     `json:"model_name,omitempty"`
	Temperature    float64    `json:"temperature"`
}

// RunResult is the aggregate view of a run, re-derived in full on every
// chunk completion so readers always see a consistent, if partial, track.
type RunResult struct {
	OK       bool          `json:"ok"`
	Warnings []string      `json:"warnings,omitempty"`
	Chunks   []ChunkStatus `json:"chunks"`
	VTT      string        `json:"vtt,omitempty"`
	SRT      string        `json:"srt,omitempty"`
}

// Config is the validated input to a run. Concurrency is clamped to
// [1, MaxConcurrency] at Start.
type Config struct {
	Cues                []subtitle.Cue `json:"cues"`
	TargetSeconds       float64        `json:"target_seconds"`
	OverlapCount        int            `json:"overlap_count"`
	Concurrency         int            `json:"concurrency"`
	Temperature         float64        `json:"temperature"`
	SafetyOff           bool           `json:"safety_off"`
	UseStructuredOutput bool           `json:"use_structured_output"`
	Model               string         `json:"model"`
	SourceLang          string         `json:"source_lang"`
	TargetLang          string         `json:"target_lang"`
	Preset              string         `json:"preset"`
	CustomPrompt        string         `json:"custom_prompt,omitempty"`
}
