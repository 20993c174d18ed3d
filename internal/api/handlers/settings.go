package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/subpipe/backend/internal/db"
)

type SettingsHandler struct {
	database *db.Database
}

func NewSettingsHandler(database *db.Database) *SettingsHandler {
	return &SettingsHandler{database: database}
}

// settingsKeys are the only keys the API accepts. Keys ending in _api_key are
// masked in responses.
var settingsKeys = []string{
	"gemini_api_key", "gemini_model",
	"openai_api_key", "openai_model",
	"anthropic_api_key", "anthropic_model",
	"ollama_url", "ollama_model",
}

func validKey(key string) bool {
	for _, k := range settingsKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	out := make(map[string]string, len(settingsKeys))
	for _, key := range settingsKeys {
		val := all[key]
		if strings.HasSuffix(key, "_api_key") && val != "" {
			val = maskSecret(val)
		}
		out[key] = val
	}
	jsonResponse(w, http.StatusOK, out)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for key, value := range req {
		if !validKey(key) {
			jsonError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
		// Masked values round-tripped from Get must not clobber the secret
		if strings.HasSuffix(key, "_api_key") && strings.Contains(value, "****") {
			continue
		}
		if err := h.database.SetSetting(key, value); err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to save setting: "+key)
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
