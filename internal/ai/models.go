package ai

// Model metadata used to budget prompt context.

type ModelInfo struct {
	Name          string
	ContextTokens int  // approximate context window
	Vision        bool // accepts image_url content parts
}

// defaultContextTokens is assumed for models missing from the catalog.
const defaultContextTokens = 8192

var models = map[string]ModelInfo{
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		ContextTokens: 128000,
		Vision:        true,
	},
	"gpt-4o": {
		Name:          "gpt-4o",
		ContextTokens: 128000,
		Vision:        true,
	},
	"gpt-4.1-mini": {
		Name:          "gpt-4.1-mini",
		ContextTokens: 1000000,
		Vision:        true,
	},
	"gpt-3.5-turbo": {
		Name:          "gpt-3.5-turbo",
		ContextTokens: 16385,
	},
	// Common local (Ollama) tags
	"llava:latest": {
		Name:          "llava:latest",
		ContextTokens: 4096,
		Vision:        true,
	},
	"llama3.2-vision:latest": {
		Name:          "llama3.2-vision:latest",
		ContextTokens: 128000,
		Vision:        true,
	},
	"llama3.1:8b-instruct": {
		Name:          "llama3.1:8b-instruct",
		ContextTokens: 8192,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ContextTokens returns the model's context window, or a conservative
// default when the model is not in the catalog.
func ContextTokens(name string) int {
	if mi, ok := LookupModel(name); ok && mi.ContextTokens > 0 {
		return mi.ContextTokens
	}
	return defaultContextTokens
}
