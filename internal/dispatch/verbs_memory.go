package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/danja/semem/internal/memory"
	"github.com/danja/semem/internal/model"
)

// handleTell implements the tell verb (§6.2): stores content as an
// Interaction of the requested kind, chunking it first when it exceeds the
// Chunker's threshold (§4.2). chunks and conceptsExtracted are computed
// independently of memory.Manager's return value, since Store's contract
// reports neither for the chunked path (its children, not its returned
// parent, carry the concepts) — recomputing both here keeps Store's
// existing signature and call sites untouched.
func (d *Dispatcher) handleTell(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	start := time.Now()

	content, err := requiredString(args, "content")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	kind, err := parseTellKind(optionalString(args, "type", "interaction"))
	if err != nil {
		return nil, Diagnostics{}, err
	}

	lazy := boolArg(args, "lazy")
	metadata := parseMetadata(mapArg(args, "metadata"))

	interaction, err := d.memory.Store(ctx, sessionID, kind, content, metadata, lazy)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	result := map[string]any{
		"id":     interaction.ID,
		"stored": true,
	}

	if !lazy {
		result["chunks"] = d.chunkCountFor(content, metadata)
		result["conceptsExtracted"] = d.conceptsExtractedFor(ctx, content)
	}

	diag := Diagnostics{TimingsMs: map[string]int64{"store_ms": elapsedMs(start)}}
	return result, diag, nil
}

func (d *Dispatcher) chunkCountFor(content string, metadata model.Metadata) int {
	if d.chunker == nil || len(content) <= d.chunkThreshold {
		return 1
	}
	title := metadata.Source
	if title == "" {
		title = "untitled"
	}
	return len(d.chunker.Split(content, title))
}

func (d *Dispatcher) conceptsExtractedFor(ctx context.Context, content string) int {
	if d.llmSvc == nil {
		return 0
	}
	return len(d.llmSvc.ExtractConcepts(ctx, content))
}

func parseTellKind(s string) (model.Kind, error) {
	switch s {
	case "interaction", "":
		return model.KindInteraction, nil
	case "concept":
		return model.KindConcept, nil
	case "document":
		return model.KindDocument, nil
	default:
		return "", validationErrorf("invalid tell type %q", s)
	}
}

func parseMetadata(m map[string]any) model.Metadata {
	md := model.Metadata{}
	if m == nil {
		return md
	}
	if t, ok := m["type"].(string); ok {
		md.Type = t
	}
	md.Tags = stringSliceArg(m, "tags")
	if src, ok := m["source"].(string); ok && src != "" {
		md.Source = src
	} else if title, ok := m["title"].(string); ok {
		md.Source = title
	}
	md.Importance = floatArg(m, "importance", 0)
	return md
}

// handleRemember implements the remember verb (§6.2): stores content
// eagerly (non-lazy) with an importance-derived weight and domain/tags
// folded into Metadata.Tags.
func (d *Dispatcher) handleRemember(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	start := time.Now()

	content, err := requiredString(args, "content")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	importance := importanceScore(optionalString(args, "importance", "medium"))
	domain := optionalString(args, "domain", "")
	tags := stringSliceArg(args, "tags")
	noteContext := optionalString(args, "context", "")

	if domain != "" {
		tags = append(tags, domain)
	}

	metadata := model.Metadata{
		Type:       "memory",
		Tags:       tags,
		Importance: importance,
		Source:     noteContext,
	}

	interaction, err := d.memory.Store(ctx, sessionID, model.KindInteraction, content, metadata, false)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	diag := Diagnostics{TimingsMs: map[string]int64{"store_ms": elapsedMs(start)}}
	return map[string]any{"id": interaction.ID}, diag, nil
}

func importanceScore(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return 0.25
	case "high":
		return 0.75
	case "critical":
		return 1.0
	default:
		return 0.5
	}
}

// handleRecall implements the recall verb (§6.2): the Memory Manager's
// pure-read retrieve() path, additionally filtered by domain/tags/
// timeRange and annotated with a blended confidence score (the
// "Confidence scoring on recall" supplemented feature).
func (d *Dispatcher) handleRecall(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	start := time.Now()

	query, err := requiredString(args, "query")
	if err != nil {
		return nil, Diagnostics{}, err
	}

	limit := intArg(args, "limit", 10)
	threshold := floatArg(args, "threshold", 0)
	domain := optionalString(args, "domain", "")
	tags := stringSliceArg(args, "tags")

	var rangeStart, rangeEnd time.Time
	if tr := mapArg(args, "timeRange"); tr != nil {
		rangeStart = parseRFC3339(optionalString(tr, "start", ""))
		rangeEnd = parseRFC3339(optionalString(tr, "end", ""))
	}

	scored, err := d.memory.Retrieve(ctx, sessionID, query, limit, threshold)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	memories := make([]map[string]any, 0, len(scored))
	for _, s := range scored {
		if !matchesRecallFilters(s.Interaction, domain, tags, rangeStart, rangeEnd) {
			continue
		}
		memories = append(memories, map[string]any{
			"id":         s.Interaction.ID,
			"content":    s.Interaction.Prompt,
			"score":      s.Score,
			"confidence": memory.Confidence(s.Interaction.Metadata.Importance, s.Score),
			"tags":       s.Interaction.Metadata.Tags,
		})
	}

	diag := Diagnostics{TimingsMs: map[string]int64{"retrieve_ms": elapsedMs(start)}}
	return map[string]any{"memories": memories}, diag, nil
}

func matchesRecallFilters(i *model.Interaction, domain string, tags []string, start, end time.Time) bool {
	if domain != "" && !containsFold(i.Metadata.Tags, domain) {
		return false
	}
	for _, tag := range tags {
		if !containsFold(i.Metadata.Tags, tag) {
			return false
		}
	}
	if !start.IsZero() && i.Metadata.Created.Before(start) {
		return false
	}
	if !end.IsZero() && i.Metadata.Created.After(end) {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
