package retrieval

import "github.com/danja/semem/internal/model"

// Mode trades retrieval breadth for latency (§4.3 step 3): it sets the
// local branch's vector-search fan-out (k_local) and the merged context
// size handed to the LLM Service.
type Mode string

const (
	ModeBasic         Mode = "basic"
	ModeStandard      Mode = "standard"
	ModeComprehensive Mode = "comprehensive"
)

func (m Mode) withDefault() Mode {
	if m == "" {
		return ModeStandard
	}
	return m
}

func kLocalFor(mode Mode) int {
	switch mode {
	case ModeBasic:
		return 4
	case ModeComprehensive:
		return 32
	default:
		return 12
	}
}

func kFinalFor(mode Mode) int {
	switch mode {
	case ModeBasic:
		return 3
	case ModeComprehensive:
		return 10
	default:
		return 6
	}
}

// Options controls one ask() call (§4.3 contract).
type Options struct {
	UseContext   bool
	UseHyDE      bool
	UseWikipedia bool
	UseWikidata  bool
	Mode         Mode
}

// ContextItem is one merged candidate handed to the LLM Service, annotated
// with the source class the synthesis template uses to attribute personal
// vs external material.
type ContextItem struct {
	Interaction *model.Interaction
	Source      string // "personal", "factual", or "encyclopedic"
	Weight      float64
}

// Result is the Hybrid Retriever's response to ask() (§4.3 contract).
type Result struct {
	Answer       string
	ContextItems []ContextItem
	SourcesUsed  []string
	TimingsMs    map[string]int64
	CacheHits    map[string]bool
}

const (
	sourcePersonal     = "personal"
	sourceFactual      = "factual"
	sourceEncyclopedic = "encyclopedic"
)

func sourceForProvider(p model.EnhancementProvider) string {
	switch p {
	case model.ProviderFactual:
		return sourceFactual
	case model.ProviderEncyclopedic:
		return sourceEncyclopedic
	default:
		return ""
	}
}
