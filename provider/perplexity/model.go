package perplexity

import (
	"github.com/casualjim/pplx/internal/registry"
)

// Known Perplexity model identifiers.
const (
	Sonar             = "sonar"
	SonarPro          = "sonar-pro"
	SonarReasoning    = "sonar-reasoning"
	SonarReasoningPro = "sonar-reasoning-pro"
	SonarDeepResearch = "sonar-deep-research"
	R1776             = "r1-1776"
)

// ModelInfo describes what is known about a model. It is informational:
// nothing in the adapter refuses a call because of it.
type ModelInfo struct {
	ID               string
	ContextWindow    int64
	MaxOutputTokens  int64
	Reasoning        bool
	Search           bool
	StructuredOutput bool
}

var catalog = registry.New[ModelInfo]()

func init() {
	for _, info := range []ModelInfo{
		{ID: Sonar, ContextWindow: 128_000, Search: true, StructuredOutput: true},
		{ID: SonarPro, ContextWindow: 200_000, MaxOutputTokens: 8_000, Search: true, StructuredOutput: true},
		{ID: SonarReasoning, ContextWindow: 128_000, Reasoning: true, Search: true, StructuredOutput: true},
		{ID: SonarReasoningPro, ContextWindow: 128_000, Reasoning: true, Search: true, StructuredOutput: true},
		{ID: SonarDeepResearch, ContextWindow: 128_000, Reasoning: true, Search: true, StructuredOutput: true},
		{ID: R1776, ContextWindow: 128_000, Reasoning: true},
	} {
		Register(info)
	}
}

// Register adds or replaces a model in the catalog.
func Register(info ModelInfo) {
	catalog.Add(info.ID, info)
}

// Lookup returns the catalog entry for a model id.
func Lookup(id string) (ModelInfo, bool) {
	return catalog.Get(id)
}

// Models lists the catalog ordered by id.
func Models() []ModelInfo {
	names := catalog.Names()
	result := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		if info, ok := catalog.Get(name); ok {
			result = append(result, info)
		}
	}
	return result
}
