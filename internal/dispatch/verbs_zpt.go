package dispatch

import (
	"context"

	"github.com/danja/semem/internal/model"
)

// handleState implements the state verb: it reports the session's current
// NavigationState (also carried on every envelope's ZPTState field).
func (d *Dispatcher) handleState(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	state := d.zptMgr.State(sessionID)
	return navigationStateResult(state), Diagnostics{}, nil
}

// handleZoom implements the zoom verb, serialized per-session per §4.1.
func (d *Dispatcher) handleZoom(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	levelStr, err := requiredString(args, "level")
	if err != nil {
		return nil, Diagnostics{}, err
	}
	level, err := parseZoom(levelStr)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	var state model.NavigationState
	d.withSessionWriteLock(sessionID, func() {
		state = d.zptMgr.Zoom(sessionID, level)
	})
	return navigationStateResult(state), Diagnostics{}, nil
}

// handlePan implements the pan verb: every predicate present in args is
// merged additively unless reset=true (§4.9).
func (d *Dispatcher) handlePan(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	partial := model.Pan{
		Domains:    stringSliceArg(args, "domains"),
		Keywords:   stringSliceArg(args, "keywords"),
		Entities:   stringSliceArg(args, "entities"),
		Geographic: optionalString(args, "geographic", ""),
	}
	if temporal := mapArg(args, "temporal"); temporal != nil {
		partial.Temporal = model.TemporalRange{
			Start: parseRFC3339(optionalString(temporal, "start", "")),
			End:   parseRFC3339(optionalString(temporal, "end", "")),
		}
	}
	reset := boolArg(args, "reset")

	var state model.NavigationState
	d.withSessionWriteLock(sessionID, func() {
		state = d.zptMgr.Pan(sessionID, partial, reset)
	})
	return navigationStateResult(state), Diagnostics{}, nil
}

// handleTilt implements the tilt verb, serialized per-session per §4.1.
func (d *Dispatcher) handleTilt(ctx context.Context, sessionID string, args map[string]any) (any, Diagnostics, error) {
	styleStr, err := requiredString(args, "style")
	if err != nil {
		return nil, Diagnostics{}, err
	}
	style, err := parseTilt(styleStr)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	var state model.NavigationState
	d.withSessionWriteLock(sessionID, func() {
		state = d.zptMgr.Tilt(sessionID, style)
	})
	return navigationStateResult(state), Diagnostics{}, nil
}

func parseZoom(s string) (model.Zoom, error) {
	switch model.Zoom(s) {
	case model.ZoomMicro, model.ZoomEntity, model.ZoomUnit, model.ZoomText, model.ZoomCommunity, model.ZoomCorpus:
		return model.Zoom(s), nil
	default:
		return "", validationErrorf("invalid zoom level %q", s)
	}
}

func parseTilt(s string) (model.Tilt, error) {
	switch model.Tilt(s) {
	case model.TiltKeywords, model.TiltEmbedding, model.TiltGraph, model.TiltTemporal:
		return model.Tilt(s), nil
	default:
		return "", validationErrorf("invalid tilt style %q", s)
	}
}

func navigationStateResult(state model.NavigationState) map[string]any {
	return map[string]any{
		"zoom":               state.Zoom,
		"pan":                state.Pan,
		"tilt":               state.Tilt,
		"relevanceThreshold": state.RelevanceThreshold,
	}
}
