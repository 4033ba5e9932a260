package dispatch

import (
	"context"
	"time"

	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/retrieval"
)

// handleAsk implements the ask verb (§4.3 / §6.2): the Hybrid Retriever's
// full local+enhancement pipeline. useContext defaults to true since
// retrieving personal context is this verb's whole premise; every
// enhancement flag defaults to false (a caller opts in explicitly).
func (d *Dispatcher) handleAsk(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	question, err := requiredString(args, "question")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	opts := retrieval.Options{
		UseContext:   boolArgDefault(args, "useContext", true),
		UseHyDE:      boolArg(args, "useHyDE"),
		UseWikipedia: boolArg(args, "useWikipedia"),
		UseWikidata:  boolArg(args, "useWikidata"),
		Mode:         retrieval.Mode(optionalString(args, "mode", "")),
	}

	result, err := d.retriever.Ask(ctx, sessionID, question, opts)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	contextItems := make([]map[string]any, 0, len(result.ContextItems))
	for _, item := range result.ContextItems {
		contextItems = append(contextItems, map[string]any{
			"id":      item.Interaction.ID,
			"content": item.Interaction.Content(),
			"source":  item.Source,
			"weight":  item.Weight,
		})
	}

	diag := Diagnostics{
		TimingsMs:   result.TimingsMs,
		SourcesUsed: result.SourcesUsed,
		CacheHits:   result.CacheHits,
	}
	return map[string]any{
		"answer":       result.Answer,
		"contextItems": contextItems,
		"sourcesUsed":  result.SourcesUsed,
	}, diag, nil
}

// handleChat implements the chat verb: a direct LLM Service call with no
// retrieval context.
func (d *Dispatcher) handleChat(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	start := time.Now()
	message, err := requiredString(args, "message")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	text, _, err := d.llmSvc.Chat(ctx, message, nil, llm.ChatOptions{})
	if err != nil {
		return nil, Diagnostics{}, err
	}

	diag := Diagnostics{TimingsMs: map[string]int64{"chat_ms": elapsedMs(start)}}
	return map[string]any{"response": text}, diag, nil
}

// handleChatEnhanced implements the chat-enhanced verb: an ask() call with
// useContext plus whichever of the caller's enabledProviders are
// recognised, returning just the response and sourcesUsed (§6.2).
func (d *Dispatcher) handleChatEnhanced(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	message, err := requiredString(args, "message")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	enabled := stringSliceArg(args, "enabledProviders")
	opts := retrieval.Options{UseContext: true}
	for _, p := range enabled {
		switch model.EnhancementProvider(normalizeLower(p)) {
		case model.ProviderFactual:
			opts.UseWikidata = true
		case model.ProviderEncyclopedic:
			opts.UseWikipedia = true
		case model.ProviderHypothetical:
			opts.UseHyDE = true
		}
	}

	result, err := d.retriever.Ask(ctx, sessionID, message, opts)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	diag := Diagnostics{
		TimingsMs:   result.TimingsMs,
		SourcesUsed: result.SourcesUsed,
		CacheHits:   result.CacheHits,
	}
	return map[string]any{
		"response":    result.Answer,
		"sourcesUsed": result.SourcesUsed,
	}, diag, nil
}
