package dispatch

import (
	"context"
	"time"
)

// handleAugment implements the augment verb (§6.2): a grab-bag of
// secondary analysis operations over a target, which may be the ID of an
// already-stored Interaction or a raw text blob supplied directly.
func (d *Dispatcher) handleAugment(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	start := time.Now()

	target, err := requiredString(args, "target")
	if err != nil {
		return nil, Diagnostics{}, err
	}
	operation := optionalString(args, "operation", "auto")

	text := d.resolveAugmentTarget(ctx, sessionID, target)

	var result any
	switch operation {
	case "process_lazy":
		count, err := d.memory.ProcessLazy(ctx, sessionID, nil)
		if err != nil {
			return nil, Diagnostics{}, err
		}
		result = map[string]any{"processed": count}

	case "chunk_documents":
		chunks := d.chunker.Split(text, target)
		out := make([]map[string]any, 0, len(chunks))
		for _, c := range chunks {
			out = append(out, map[string]any{
				"title":  c.Info.Title,
				"text":   c.Text,
				"offset": c.Info.Offset,
				"length": c.Info.Length,
			})
		}
		result = map[string]any{"chunks": out}

	case "extract_concepts", "concepts":
		result = map[string]any{"concepts": d.llmSvc.ExtractConcepts(ctx, text)}

	case "generate_embedding":
		vec, err := d.embedSvc.Generate(ctx, text)
		if err != nil {
			return nil, Diagnostics{}, err
		}
		result = map[string]any{"embedding": vec, "dimension": len(vec)}

	case "analyze_text", "auto":
		concepts := d.llmSvc.ExtractConcepts(ctx, text)
		dim := 0
		if vec, err := d.embedSvc.Generate(ctx, text); err == nil {
			dim = len(vec)
		}
		result = map[string]any{
			"concepts":  concepts,
			"dimension": dim,
			"length":    len(text),
		}

	case "attributes":
		result = map[string]any{
			"length":    len(text),
			"wordCount": wordCount(text),
			"concepts":  d.llmSvc.ExtractConcepts(ctx, text),
		}

	case "relationships":
		concepts := d.llmSvc.ExtractConcepts(ctx, text)
		result = map[string]any{"relationships": d.relationshipsFor(concepts)}

	case "concept_embeddings":
		concepts := d.llmSvc.ExtractConcepts(ctx, text)
		embeddings := make(map[string][]float32, len(concepts))
		for _, c := range concepts {
			if vec, err := d.embedSvc.Generate(ctx, c); err == nil {
				embeddings[c] = vec
			}
		}
		result = map[string]any{"conceptEmbeddings": embeddings}

	default:
		return nil, Diagnostics{}, validationErrorf("invalid augment operation %q", operation)
	}

	diag := Diagnostics{TimingsMs: map[string]int64{"augment_ms": elapsedMs(start)}}
	return result, diag, nil
}

// resolveAugmentTarget treats target as an Interaction ID when one resolves
// in this session, falling back to treating target itself as raw text.
func (d *Dispatcher) resolveAugmentTarget(ctx context.Context, sessionID, target string) string {
	if target == "" || target == "all" {
		return target
	}
	if interaction, err := d.memory.Get(ctx, sessionID, target); err == nil && interaction != nil {
		return interaction.Prompt
	}
	return target
}

type relationship struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

func (d *Dispatcher) relationshipsFor(concepts []string) []relationship {
	if d.graph == nil {
		return nil
	}
	var out []relationship
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			w := d.graph.EdgeWeight(concepts[i], concepts[j])
			if w > 0 {
				out = append(out, relationship{A: concepts[i], B: concepts[j], Weight: w})
			}
		}
	}
	return out
}

func wordCount(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
