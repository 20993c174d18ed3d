package provider

import "testing"

func TestNewClosedNameSet(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "anthropic", "ollama"} {
		gen, err := New(name, Settings{})
		if err != nil {
			t.Errorf("New(%q) returned error: %v", name, err)
			continue
		}
		if gen.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, gen.Name())
		}
	}
	if _, err := New("acme", Settings{}); err == nil {
		t.Error("New accepted an unknown provider name")
	}
}

func TestModelFor(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     string
	}{
		{"gemini", Settings{}, "gemini-2.0-flash"},
		{"gemini", Settings{GeminiModel: "gemini-2.5-pro"}, "gemini-2.5-pro"},
		{"openai", Settings{}, "gpt-4o-mini"},
		{"anthropic", Settings{}, "claude-3-5-haiku-latest"},
		{"ollama", Settings{OllamaModel: "qwen2.5"}, "qwen2.5"},
		{"nope", Settings{}, ""},
	}
	for _, tt := range tests {
		if got := ModelFor(tt.name, tt.settings); got != tt.want {
			t.Errorf("ModelFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
