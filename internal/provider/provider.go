package provider

import "context"

// Request is everything the pipeline supplies for one generation call.
// MediaReference is an opaque provider-side handle (e.g. an uploaded file
// URI) for transcription-style calls; text-only translation leaves it empty.
type Request struct {
	SystemPrompt   string  `json:"system_prompt"`
	UserPrompt     string  `json:"user_prompt"`
	Temperature    float64 `json:"temperature"`
	SafetyOff      bool    `json:"safety_off"`
	MediaReference string  `json:"media_reference,omitempty"`
}

// Trace identifies the caller for logging. Providers must not change
// behavior based on it.
type Trace struct {
	Purpose  string `json:"purpose"`
	ChunkIdx int    `json:"chunk_idx"`
	RunID    string `json:"run_id,omitempty"`
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens   int `json:"prompt_tokens,omitempty"`
	ResponseTokens int `json:"response_tokens,omitempty"`
	TotalTokens    int `json:"total_tokens,omitempty"`
}

// Result is the provider's response text plus optional usage numbers.
type Result struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

// Generator is the single capability the pipeline consumes. Any rejection
// is treated upstream as an opaque chunk failure; only the message string is
// extracted.
type Generator interface {
	GenerateContent(ctx context.Context, req Request, trace Trace) (*Result, error)
	Name() string
}
