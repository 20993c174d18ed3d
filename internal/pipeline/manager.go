package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/subpipe/backend/internal/db"
	"github.com/subpipe/backend/internal/provider"
)

// Manager owns one controller per run and persists published snapshots, so
// run history survives restarts while active runs stay fully in memory.
type Manager struct {
	database *db.Database
	defaults provider.Settings

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewManager(database *db.Database, defaults provider.Settings) *Manager {
	return &Manager{
		database:    database,
		defaults:    defaults,
		controllers: make(map[string]*Controller),
	}
}

// Settings resolves provider credentials: values saved through the settings
// API win over environment defaults.
func (m *Manager) Settings() provider.Settings {
	s := m.defaults
	if m.database == nil {
		return s
	}
	s.GeminiAPIKey = m.database.GetSetting("gemini_api_key", s.GeminiAPIKey)
	s.GeminiModel = m.database.GetSetting("gemini_model", s.GeminiModel)
	s.OpenAIAPIKey = m.database.GetSetting("openai_api_key", s.OpenAIAPIKey)
	s.OpenAIModel = m.database.GetSetting("openai_model", s.OpenAIModel)
	s.AnthropicAPIKey = m.database.GetSetting("anthropic_api_key", s.AnthropicAPIKey)
	s.AnthropicModel = m.database.GetSetting("anthropic_model", s.AnthropicModel)
	s.OllamaURL = m.database.GetSetting("ollama_url", s.OllamaURL)
	s.OllamaModel = m.database.GetSetting("ollama_model", s.OllamaModel)
	return s
}

// StartRun builds a generator for the named provider and launches a run.
func (m *Manager) StartRun(providerName string, cfg Config) (string, error) {
	settings := m.Settings()
	gen, err := provider.New(providerName, settings)
	if err != nil {
		return "", err
	}
	if cfg.Model == "" {
		cfg.Model = provider.ModelFor(providerName, settings)
	}

	ctrl := NewController(gen, m.persist)
	runID, err := ctrl.Start(context.Background(), cfg)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.controllers[runID] = ctrl
	m.mu.Unlock()

	if m.database != nil {
		params, _ := json.Marshal(struct {
			Provider string `json:"provider"`
			Config
		}{providerName, cfg})
		if err := m.database.InsertRun(runID, providerName, string(params)); err != nil {
			log.Printf("[pipeline] failed to persist run %s: %v", runID, err)
		}
	}
	return runID, nil
}

// Get returns the live snapshot for an active run, falling back to the
// stored result for finished ones.
func (m *Manager) Get(runID string) (RunResult, error) {
	if ctrl := m.controller(runID); ctrl != nil {
		return ctrl.Snapshot(), nil
	}
	if m.database != nil {
		row, err := m.database.GetRun(runID)
		if err != nil {
			return RunResult{}, fmt.Errorf("run not found: %s", runID)
		}
		var res RunResult
		if row.Result != "" {
			if err := json.Unmarshal([]byte(row.Result), &res); err != nil {
				return RunResult{}, fmt.Errorf("stored run %s is unreadable: %w", runID, err)
			}
		}
		return res, nil
	}
	return RunResult{}, fmt.Errorf("run not found: %s", runID)
}

// List returns run history rows, newest first.
func (m *Manager) List() ([]db.RunRow, error) {
	if m.database == nil {
		return nil, nil
	}
	return m.database.ListRuns()
}

func (m *Manager) Pause(runID string) error {
	ctrl := m.controller(runID)
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	ctrl.Pause()
	return nil
}

func (m *Manager) Resume(runID string) error {
	ctrl := m.controller(runID)
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	ctrl.Resume()
	return nil
}

func (m *Manager) Cancel(runID string) error {
	ctrl := m.controller(runID)
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	ctrl.Cancel()
	return nil
}

// Reset discards an active run's session and deregisters it. In-flight work
// completes against a stale token and is thrown away; the stored history row
// keeps its last published snapshot.
func (m *Manager) Reset(runID string) error {
	m.mu.Lock()
	ctrl := m.controllers[runID]
	delete(m.controllers, runID)
	m.mu.Unlock()
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	ctrl.Reset()
	return nil
}

func (m *Manager) Retry(runID string, chunkIdx int) error {
	ctrl := m.controller(runID)
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	return ctrl.Retry(chunkIdx)
}

func (m *Manager) Override(runID string, chunkIdx int, text string) error {
	ctrl := m.controller(runID)
	if ctrl == nil {
		return fmt.Errorf("run not active: %s", runID)
	}
	return ctrl.ManualOverride(chunkIdx, text)
}

func (m *Manager) controller(runID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllers[runID]
}

// persist is the controller's progress sink: every published snapshot
// replaces the stored result row.
func (m *Manager) persist(runID string, res RunResult) {
	if m.database == nil {
		return
	}
	status := "running"
	if allTerminal(res.Chunks) {
		status = "completed"
		if !res.OK {
			status = "finished_with_errors"
		}
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		log.Printf("[pipeline] failed to marshal run %s result: %v", runID, err)
		return
	}
	if err := m.database.UpdateRunResult(runID, status, res.OK, string(resultJSON)); err != nil {
		log.Printf("[pipeline] failed to store run %s snapshot: %v", runID, err)
	}
}

func allTerminal(chunks []ChunkStatus) bool {
	if len(chunks) == 0 {
		return false
	}
	for _, cs := range chunks {
		if !cs.Status.Terminal() {
			return false
		}
	}
	return true
}
