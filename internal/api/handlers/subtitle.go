package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/subpipe/backend/internal/subtitle"
)

// SubtitleHandler exposes the stateless track operations so clients can
// validate, repair, and merge tracks without starting a run.
type SubtitleHandler struct{}

func NewSubtitleHandler() *SubtitleHandler {
	return &SubtitleHandler{}
}

type trackRequest struct {
	VTT string `json:"vtt"`
}

func (h *SubtitleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	errs, warnings := subtitle.Validate(req.VTT)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"valid":    len(errs) == 0,
		"errors":   errs,
		"warnings": warnings,
	})
}

func (h *SubtitleHandler) Repair(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	repaired, warnings := subtitle.AutoRepair(req.VTT)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"vtt":      repaired,
		"warnings": warnings,
	})
}

func (h *SubtitleHandler) ToSRT(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	srt, err := subtitle.ToSRT(req.VTT)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"srt": srt})
}

type mergeRequest struct {
	Fragments []subtitle.Fragment `json:"fragments"`
}

func (h *SubtitleHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fragments) == 0 {
		jsonError(w, http.StatusBadRequest, "no fragments to merge")
		return
	}
	vtt, srt := subtitle.MergeTimeShifted(req.Fragments)
	jsonResponse(w, http.StatusOK, map[string]string{"vtt": vtt, "srt": srt})
}
