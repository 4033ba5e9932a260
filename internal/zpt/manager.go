package zpt

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/reranker"
)

// Manager owns every session's NavigationState and implements the
// zoom/pan/tilt/state operations plus applyTo of §4.9. Each session's
// state is guarded by its own lock so concurrent zoom/pan/tilt calls on
// different sessions never contend (§5 shared-resource discipline).
type Manager struct {
	graph      *graph.Graph
	embeddings *embedding.Service
	reranker   reranker.Reranker
	logger     *zap.Logger

	// defaultZoom/defaultTilt/defaultThreshold seed every freshly created
	// session's NavigationState, overriding model.DefaultNavigationState's
	// hardcoded fallback. Left zero-valued they have no effect, so New's
	// existing callers keep the package's original baseline.
	defaultZoom      model.Zoom
	defaultTilt      model.Tilt
	defaultThreshold float64

	communities *communityCache

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu    sync.Mutex
	state model.NavigationState
}

// New constructs a Manager. reranker may be nil, in which case
// tilt=keywords falls back to a trivial substring-overlap score.
func New(g *graph.Graph, embeddings *embedding.Service, rr reranker.Reranker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		graph:       g,
		embeddings:  embeddings,
		reranker:    rr,
		logger:      logger,
		communities: newCommunityCache(),
		sessions:    make(map[string]*sessionState),
	}
}

func (m *Manager) sessionFor(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		state := model.DefaultNavigationState(sessionID)
		if m.defaultZoom != "" {
			state.Zoom = m.defaultZoom
		}
		if m.defaultTilt != "" {
			state.Tilt = m.defaultTilt
		}
		if m.defaultThreshold != 0 {
			state.RelevanceThreshold = m.defaultThreshold
		}
		s = &sessionState{state: state}
		m.sessions[sessionID] = s
	}
	return s
}

// SetSessionDefaults overrides the NavigationState baseline applied to
// every session created after this call (§4.9 / §6.4), reconciling the
// operator's configured ZPT defaults with model.DefaultNavigationState's
// package-level fallback. A zero value for any field leaves that field's
// original fallback in place.
func (m *Manager) SetSessionDefaults(zoom model.Zoom, tilt model.Tilt, threshold float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultZoom = zoom
	m.defaultTilt = tilt
	m.defaultThreshold = threshold
}

// State returns sessionID's current NavigationState, creating a default
// one if this is its first reference.
func (m *Manager) State(sessionID string) model.NavigationState {
	s := m.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Zoom sets sessionID's zoom level.
func (m *Manager) Zoom(sessionID string, level model.Zoom) model.NavigationState {
	s := m.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Zoom = level
	s.state.UpdatedAt = time.Now()
	return s.state
}

// Pan merges partial into sessionID's pan predicates, additively unless
// reset is true.
func (m *Manager) Pan(sessionID string, partial model.Pan, reset bool) model.NavigationState {
	s := m.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pan = s.state.Pan.Merge(partial, reset)
	s.state.UpdatedAt = time.Now()
	return s.state
}

// Tilt sets sessionID's primary ranking signal.
func (m *Manager) Tilt(sessionID string, style model.Tilt) model.NavigationState {
	s := m.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tilt = style
	s.state.UpdatedAt = time.Now()
	return s.state
}

// ApplyTo filters candidates by zoom and pan, scores the survivors by the
// active tilt, and returns them sorted by score descending, dropping any
// candidate below state.RelevanceThreshold.
func (m *Manager) ApplyTo(ctx context.Context, candidates []*model.Interaction, state model.NavigationState, query Query) []ScoredCandidate {
	zoomed := make([]*model.Interaction, 0, len(candidates))
	for _, c := range candidates {
		if zoomMatches(c, state.Zoom) {
			zoomed = append(zoomed, c)
		}
	}

	panned := make([]*model.Interaction, 0, len(zoomed))
	for _, c := range zoomed {
		if panMatches(c, state.Pan) {
			panned = append(panned, c)
		}
	}

	scored := make([]ScoredCandidate, 0, len(panned))
	for _, c := range panned {
		score := m.score(ctx, c, state, query)
		if score < state.RelevanceThreshold {
			continue
		}
		scored = append(scored, ScoredCandidate{Interaction: c, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Interaction.ID < scored[j].Interaction.ID
	})
	return scored
}

// MatchesZoom reports whether c's kind satisfies zoom's candidate-kind
// restriction (§4.9's zoom semantics), exported so callers outside this
// package (the Hybrid Retriever's §4.3.1 zpt_match factor) can test a
// single candidate without going through ApplyTo's full filter+score pass.
func MatchesZoom(c *model.Interaction, zoom model.Zoom) bool {
	return zoomMatches(c, zoom)
}

// MatchesPan reports whether c satisfies every predicate set in pan (§4.9's
// AND semantics), exported for the same reason as MatchesZoom.
func MatchesPan(c *model.Interaction, pan model.Pan) bool {
	return panMatches(c, pan)
}

func zoomMatches(c *model.Interaction, zoom model.Zoom) bool {
	switch zoom {
	case model.ZoomCorpus:
		return true
	case model.ZoomText:
		return c.Kind == model.KindDocument
	case model.ZoomUnit:
		return c.Kind == model.KindDocumentChunk || c.Kind == model.KindConcept
	case model.ZoomEntity:
		return len(c.Concepts) > 0
	case model.ZoomCommunity:
		return c.Kind != model.KindEnhancement
	case model.ZoomMicro:
		return true
	default:
		return true
	}
}

// panMatches evaluates every non-empty Pan predicate as an AND: a
// candidate must satisfy all of them to match. An empty Pan matches
// everything.
func panMatches(c *model.Interaction, pan model.Pan) bool {
	if pan.IsEmpty() {
		return true
	}
	if len(pan.Domains) > 0 && !anyTagMatches(c.Metadata.Tags, pan.Domains) {
		return false
	}
	if len(pan.Keywords) > 0 && !anyKeywordMatches(c, pan.Keywords) {
		return false
	}
	if len(pan.Entities) > 0 && !anyConceptMatches(c.Concepts, pan.Entities) {
		return false
	}
	if !pan.Temporal.IsZero() && !pan.Temporal.Contains(c.Metadata.Created) {
		return false
	}
	return true
}

func anyTagMatches(tags, want []string) bool {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[strings.ToLower(w)]; ok {
			return true
		}
	}
	return false
}

func anyKeywordMatches(c *model.Interaction, keywords []string) bool {
	haystack := strings.ToLower(c.Prompt + " " + c.Response)
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func anyConceptMatches(concepts, want []string) bool {
	set := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		set[strings.ToLower(c)] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[strings.ToLower(w)]; ok {
			return true
		}
	}
	return false
}
