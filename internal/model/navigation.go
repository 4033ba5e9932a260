package model

import "time"

// Zoom selects the granularity of candidate kinds a retrieval considers.
type Zoom string

const (
	ZoomMicro     Zoom = "micro"
	ZoomEntity    Zoom = "entity"
	ZoomUnit      Zoom = "unit"
	ZoomText      Zoom = "text"
	ZoomCommunity Zoom = "community"
	ZoomCorpus    Zoom = "corpus"
)

// Tilt selects the primary ranking signal used when merging retrieval
// candidates (§4.3 step 5 / §4.9).
type Tilt string

const (
	TiltKeywords  Tilt = "keywords"
	TiltEmbedding Tilt = "embedding"
	TiltGraph     Tilt = "graph"
	TiltTemporal  Tilt = "temporal"
)

// TemporalRange bounds a pan predicate by time.
type TemporalRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range has no bounds set.
func (t TemporalRange) IsZero() bool {
	return t.Start.IsZero() && t.End.IsZero()
}

// Contains reports whether ts falls within the range (treating a zero Start
// or End as unbounded on that side).
func (t TemporalRange) Contains(ts time.Time) bool {
	if !t.Start.IsZero() && ts.Before(t.Start) {
		return false
	}
	if !t.End.IsZero() && ts.After(t.End) {
		return false
	}
	return true
}

// Pan holds additive filter predicates over candidate metadata. An empty Pan
// matches everything (§4.9).
type Pan struct {
	Domains    []string
	Keywords   []string
	Entities   []string
	Temporal   TemporalRange
	Geographic string
}

// IsEmpty reports whether no predicate is set.
func (p Pan) IsEmpty() bool {
	return len(p.Domains) == 0 && len(p.Keywords) == 0 && len(p.Entities) == 0 &&
		p.Temporal.IsZero() && p.Geographic == ""
}

// Merge additively combines a partial pan update into p, per the "pan is
// additive by default" rule; Reset, if true, replaces instead.
func (p Pan) Merge(partial Pan, reset bool) Pan {
	if reset {
		return partial
	}
	merged := p
	merged.Domains = append(append([]string{}, p.Domains...), partial.Domains...)
	merged.Keywords = append(append([]string{}, p.Keywords...), partial.Keywords...)
	merged.Entities = append(append([]string{}, p.Entities...), partial.Entities...)
	if !partial.Temporal.IsZero() {
		merged.Temporal = partial.Temporal
	}
	if partial.Geographic != "" {
		merged.Geographic = partial.Geographic
	}
	return dedupePan(merged)
}

func dedupePan(p Pan) Pan {
	p.Domains = dedupeStrings(p.Domains)
	p.Keywords = dedupeStrings(p.Keywords)
	p.Entities = dedupeStrings(p.Entities)
	return p
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NavigationState is the per-session three-axis state biasing retrieval
// without mutating stored content.
type NavigationState struct {
	SessionID          string
	Zoom               Zoom
	Pan                Pan
	Tilt               Tilt
	RelevanceThreshold float64
	FadeOut            []string
	UpdatedAt          time.Time
}

// DefaultNavigationState returns the engine's baseline ZPT state for a
// freshly created session.
func DefaultNavigationState(sessionID string) NavigationState {
	return NavigationState{
		SessionID:          sessionID,
		Zoom:               ZoomUnit,
		Tilt:               TiltEmbedding,
		RelevanceThreshold: 0.0,
	}
}
