package provider

import "fmt"

// Settings carries the credentials and model names for every provider the
// factory can build. Values come from the settings store with env-var
// fallbacks applied at the config layer.
type Settings struct {
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaURL       string
	OllamaModel     string
}

// New builds a Generator by provider name. The name set is closed; anything
// else is a configuration error.
func New(name string, s Settings) (Generator, error) {
	switch name {
	case "gemini":
		return NewGeminiGenerator(s.GeminiAPIKey, s.GeminiModel), nil
	case "openai":
		return NewOpenAIGenerator(s.OpenAIAPIKey, s.OpenAIModel), nil
	case "anthropic":
		return NewAnthropicGenerator(s.AnthropicAPIKey, s.AnthropicModel), nil
	case "ollama":
		return NewOllamaGenerator(s.OllamaURL, s.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// ModelFor returns the effective model name for a provider, mirroring the
// defaults the constructors apply.
func ModelFor(name string, s Settings) string {
	switch name {
	case "gemini":
		if s.GeminiModel != "" {
			return s.GeminiModel
		}
		return "gemini-2.0-flash"
	case "openai":
		if s.OpenAIModel != "" {
			return s.OpenAIModel
		}
		return "gpt-4o-mini"
	case "anthropic":
		if s.AnthropicModel != "" {
			return s.AnthropicModel
		}
		return "claude-3-5-haiku-latest"
	case "ollama":
		if s.OllamaModel != "" {
			return s.OllamaModel
		}
		return "llama3.1"
	}
	return ""
}
