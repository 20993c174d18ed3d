package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/subpipe/backend/internal/db"
	"github.com/subpipe/backend/internal/pipeline"
	"github.com/subpipe/backend/internal/subtitle"
)

type RunsHandler struct {
	manager *pipeline.Manager
}

func NewRunsHandler(manager *pipeline.Manager) *RunsHandler {
	return &RunsHandler{manager: manager}
}

type createRunRequest struct {
	Provider string `json:"provider"`
	// VTT is the raw source track; it is parsed (with auto-repair) before the
	// run starts. Cues may be supplied directly instead.
	VTT string `json:"vtt,omitempty"`

	Cues                []subtitle.Cue `json:"cues,omitempty"`
	TargetSeconds       float64        `json:"target_seconds,omitempty"`
	OverlapCount        *int           `json:"overlap_count,omitempty"`
	Concurrency         int            `json:"concurrency,omitempty"`
	Temperature         float64        `json:"temperature,omitempty"`
	SafetyOff           bool           `json:"safety_off,omitempty"`
	UseStructuredOutput bool           `json:"use_structured_output,omitempty"`
	Model               string         `json:"model,omitempty"`
	SourceLang          string         `json:"source_lang,omitempty"`
	TargetLang          string         `json:"target_lang,omitempty"`
	Preset              string         `json:"preset,omitempty"`
	CustomPrompt        string         `json:"custom_prompt,omitempty"`
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		jsonError(w, http.StatusBadRequest, "provider is required")
		return
	}

	cues := req.Cues
	if len(cues) == 0 && req.VTT != "" {
		repaired, _ := subtitle.AutoRepair(req.VTT)
		parsed, err := subtitle.Parse(repaired)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "unparseable subtitle input: "+err.Error())
			return
		}
		cues = parsed
	}
	if len(cues) == 0 {
		jsonError(w, http.StatusBadRequest, "no cues to process")
		return
	}

	cfg := pipeline.Config{
		Cues:                cues,
		TargetSeconds:       req.TargetSeconds,
		Concurrency:         req.Concurrency,
		Temperature:         req.Temperature,
		SafetyOff:           req.SafetyOff,
		UseStructuredOutput: req.UseStructuredOutput,
		Model:               req.Model,
		SourceLang:          req.SourceLang,
		TargetLang:          req.TargetLang,
		Preset:              req.Preset,
		CustomPrompt:        req.CustomPrompt,
	}
	if req.OverlapCount != nil {
		cfg.OverlapCount = *req.OverlapCount
	} else {
		cfg.OverlapCount = 2
	}

	runID, err := h.manager.StartRun(req.Provider, cfg)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"run_id": runID})
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.manager.List()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.RunRow{}
	}
	jsonResponse(w, http.StatusOK, runs)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	res, err := h.manager.Get(runID)
	if err != nil {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *RunsHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.manager.Pause)
}

func (h *RunsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.manager.Resume)
}

func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.manager.Cancel)
}

func (h *RunsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.manager.Reset)
}

func (h *RunsHandler) control(w http.ResponseWriter, r *http.Request, op func(string) error) {
	runID := chi.URLParam(r, "id")
	if err := op(runID); err != nil {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RunsHandler) RetryChunk(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid chunk index")
		return
	}
	if err := h.manager.Retry(runID, idx); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "queued"})
}

type overrideRequest struct {
	VTT string `json:"vtt"`
}

func (h *RunsHandler) OverrideChunk(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid chunk index")
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.manager.Override(runID, idx, req.VTT); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
