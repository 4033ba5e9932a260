package dispatch

import (
	"context"

	"go.uber.org/zap"
)

// handleInspect implements the inspect verb (§6.2): a read-only diagnostic
// report scoped by type. target and includeRecommendations are interpreted
// per type; unrecognised types are a validation error.
func (d *Dispatcher) handleInspect(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	typ, err := requiredString(args, "type")
	if err != nil {
		return nil, Diagnostics{}, err
	}
	target := optionalString(args, "target", "")
	includeRecommendations := boolArg(args, "includeRecommendations")

	var report map[string]any
	switch typ {
	case "system":
		report = d.inspectSystem()
	case "session":
		report = d.inspectSession(sessionID)
	case "concept":
		if target == "" {
			return nil, Diagnostics{}, validationErrorf("inspect type %q requires target", typ)
		}
		report = d.inspectConcept(target)
	case "memory":
		if target == "" {
			return nil, Diagnostics{}, validationErrorf("inspect type %q requires target", typ)
		}
		interaction, err := d.memory.Get(ctx, sessionID, target)
		if err != nil {
			return nil, Diagnostics{}, err
		}
		if interaction == nil {
			return nil, Diagnostics{}, notFoundErrorf("no interaction found for id %q", target)
		}
		report = map[string]any{
			"id":                interaction.ID,
			"kind":              interaction.Kind,
			"prompt":            interaction.Prompt,
			"response":          interaction.Response,
			"concepts":          interaction.Concepts,
			"pendingProcessing": interaction.PendingProcessing,
			"metadata": map[string]any{
				"tags":       interaction.Metadata.Tags,
				"importance": interaction.Metadata.Importance,
				"created":    interaction.Metadata.Created,
			},
		}
		if d.store != nil && !d.store.Degraded() {
			triples, constructErr := d.store.Construct(ctx, "construct-interaction", map[string]string{"subject": target})
			if constructErr != nil {
				d.logger.Warn("inspect: construct failed", zap.Error(constructErr))
			} else {
				report["rawTriples"] = triples
			}
		}
	default:
		return nil, Diagnostics{}, validationErrorf("invalid inspect type %q", typ)
	}

	if includeRecommendations {
		report["recommendations"] = d.recommendationsFor(typ, sessionID)
	}

	return report, Diagnostics{}, nil
}

func (d *Dispatcher) inspectSystem() map[string]any {
	report := map[string]any{
		"pendingInteractions": d.memory.PendingCount(),
	}
	if d.store != nil {
		report["storeDegraded"] = d.store.Degraded()
	}
	if d.graph != nil {
		report["conceptCount"] = len(d.graph.Nodes())
		report["edgeCount"] = d.graph.EdgeCount()
	}
	return report
}

func (d *Dispatcher) inspectSession(sessionID string) map[string]any {
	cache := d.memory.SessionCache(sessionID)
	recent := cache.Recent(10)
	ids := make([]string, 0, len(recent))
	for _, i := range recent {
		ids = append(ids, i.ID)
	}
	state := d.zptMgr.State(sessionID)
	return map[string]any{
		"cachedInteractions": cache.Len(),
		"recentIds":          ids,
		"zptState":           navigationStateResult(state),
	}
}

func (d *Dispatcher) inspectConcept(label string) map[string]any {
	if d.graph == nil {
		return map[string]any{"label": label, "found": false}
	}
	neighbors := d.graph.NeighborWeights(label)
	if len(neighbors) == 0 && d.graph.EdgeWeight(label, label) == 0 {
		return map[string]any{"label": label, "found": false}
	}
	return map[string]any{
		"label":          label,
		"found":          true,
		"neighborWeights": neighbors,
	}
}

// recommendationsFor offers a small set of suggested next actions, derived
// from the same signals inspect itself already gathered (§6.2's optional
// includeRecommendations flag).
func (d *Dispatcher) recommendationsFor(typ, sessionID string) []string {
	var recs []string
	switch typ {
	case "system":
		if d.memory.PendingCount() > 0 {
			recs = append(recs, "run augment with operation=process_lazy to clear pending interactions")
		}
		if d.store != nil && d.store.Degraded() {
			recs = append(recs, "persistent store is degraded; verify the backing endpoint")
		}
	case "session":
		state := d.zptMgr.State(sessionID)
		if state.Zoom == "" {
			recs = append(recs, "call zoom to set a navigation scope before ask/recall")
		}
	case "concept":
		recs = append(recs, "use augment with operation=relationships to see co-occurring concepts")
	case "memory":
		recs = append(recs, "use recall with a related query to find similar memories")
	}
	if len(recs) == 0 {
		recs = []string{"no recommendations"}
	}
	return recs
}
