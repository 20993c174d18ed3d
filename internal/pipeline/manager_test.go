package pipeline

import (
	"strings"
	"testing"

	"github.com/subpipe/backend/internal/provider"
)

func TestManagerSettingsWithoutStore(t *testing.T) {
	defaults := provider.Settings{GeminiAPIKey: "env-key", OllamaURL: "http://env:11434"}
	m := NewManager(nil, defaults)
	if got := m.Settings(); got != defaults {
		t.Errorf("Settings() = %+v, want env defaults passed through", got)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	m := NewManager(nil, provider.Settings{})
	if _, err := m.StartRun("acme", testConfig(1, 1)); err == nil {
		t.Fatal("StartRun accepted an unknown provider")
	}
}

func TestManagerInactiveRunErrors(t *testing.T) {
	m := NewManager(nil, provider.Settings{})

	ops := map[string]func() error{
		"Pause":    func() error { return m.Pause("nope") },
		"Resume":   func() error { return m.Resume("nope") },
		"Cancel":   func() error { return m.Cancel("nope") },
		"Reset":    func() error { return m.Reset("nope") },
		"Retry":    func() error { return m.Retry("nope", 0) },
		"Override": func() error { return m.Override("nope", 0, "WEBVTT\n") },
	}
	for name, op := range ops {
		err := op()
		if err == nil || !strings.Contains(err.Error(), "not active") {
			t.Errorf("%s on unknown run: err = %v, want not-active error", name, err)
		}
	}

	if _, err := m.Get("nope"); err == nil {
		t.Error("Get returned a result for an unknown run")
	}
}

func TestAllTerminal(t *testing.T) {
	if allTerminal(nil) {
		t.Error("empty chunk list reported terminal")
	}
	if allTerminal([]ChunkStatus{{Status: StatusOK}, {Status: StatusProcessing}}) {
		t.Error("in-flight chunk reported terminal")
	}
	if !allTerminal([]ChunkStatus{{Status: StatusOK}, {Status: StatusFailed}}) {
		t.Error("ok+failed not reported terminal")
	}
}
