package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/model"
)

// Row is one result binding from a select query, variable name to lexical
// term value (IRIs and literals alike, unquoted).
type Row map[string]string

// Triple is one RDF statement returned from a construct query.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// Mutation is a single named, parameterized update to apply against the
// configured named graph.
type Mutation struct {
	Template string
	Params   map[string]string
}

// Options configures a Store.
type Options struct {
	QueryEndpoint  string
	UpdateEndpoint string
	Graph          string
	TemplateDir    string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	DebounceWindow time.Duration
	LoadCacheCap   int
	ProbeInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	if o.LoadCacheCap <= 0 {
		o.LoadCacheCap = 10000
	}
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.RequestTimeout}
	}
	return o
}

// Store is the Persistent Store: the authoritative RDF triple store behind
// the select/construct/update/ask/batch abstraction of §4.10. It degrades
// to session-cache-only operation when the backing endpoint is unreachable
// (see health.go) and debounces per-session writes (see debounce.go).
type Store struct {
	opts      Options
	templates *templateSet
	logger    *zap.Logger

	health *HealthMonitor
	load   *loadCache

	mu         sync.Mutex
	debouncers map[string]*sessionDebouncer
}

// New constructs a Store. If opts.TemplateDir is empty the built-in
// templates are used; callers that need custom query shapes must configure
// a directory (rule 2: templates are loaded at startup, never concatenated
// at call time).
func New(opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	if opts.Graph == "" {
		return nil, fmt.Errorf("store: named graph must be configured")
	}
	if opts.QueryEndpoint == "" || opts.UpdateEndpoint == "" {
		return nil, fmt.Errorf("store: query and update endpoints must be configured")
	}

	var tmpl *templateSet
	var err error
	if opts.TemplateDir != "" {
		tmpl, err = loadTemplates(opts.TemplateDir)
	} else {
		tmpl, err = loadDefaultTemplates()
	}
	if err != nil {
		return nil, err
	}

	s := &Store{
		opts:       opts,
		templates:  tmpl,
		logger:     logger,
		load:       newLoadCache(opts.LoadCacheCap),
		debouncers: make(map[string]*sessionDebouncer),
	}
	s.health = newHealthMonitor(s, logger, opts.ProbeInterval)
	return s, nil
}

// Start probes liveness once and begins the background health-monitor
// loop. Per rule 4, an unreachable store at startup is not fatal: the
// store enters degraded mode and the caller proceeds with session-cache-
// only behavior.
func (s *Store) Start(ctx context.Context) error {
	s.health.probeOnce(ctx)
	return s.health.Start()
}

// Stop halts the background health monitor and flushes any buffered
// session writes.
func (s *Store) Stop() {
	s.health.Stop()
	s.mu.Lock()
	debouncers := make([]*sessionDebouncer, 0, len(s.debouncers))
	for _, d := range s.debouncers {
		debouncers = append(debouncers, d)
	}
	s.mu.Unlock()
	for _, d := range debouncers {
		d.flush(context.Background())
	}
}

// Degraded reports whether the store currently believes the backing
// endpoint is unreachable.
func (s *Store) Degraded() bool {
	return s.health.Degraded()
}

// Select renders the named template and executes it against the query
// endpoint as a SPARQL SELECT, returning variable bindings.
func (s *Store) Select(ctx context.Context, templateName string, params map[string]string) ([]Row, error) {
	body, err := s.renderWithGraph(templateName, params)
	if err != nil {
		return nil, err
	}
	if s.Degraded() {
		return nil, ErrDegraded
	}
	raw, err := s.postQuery(ctx, body)
	if err != nil {
		return nil, err
	}
	return parseSelectResults(raw)
}

// Construct renders the named template and executes it as a SPARQL
// CONSTRUCT, returning triples.
func (s *Store) Construct(ctx context.Context, templateName string, params map[string]string) ([]Triple, error) {
	body, err := s.renderWithGraph(templateName, params)
	if err != nil {
		return nil, err
	}
	if s.Degraded() {
		return nil, ErrDegraded
	}
	raw, err := s.postQuery(ctx, body)
	if err != nil {
		return nil, err
	}
	return parseTriples(raw)
}

// Ask renders the named template and executes it as a SPARQL ASK, returning
// the boolean result.
func (s *Store) Ask(ctx context.Context, templateName string, params map[string]string) (bool, error) {
	body, err := s.renderWithGraph(templateName, params)
	if err != nil {
		return false, err
	}
	if s.Degraded() {
		return false, ErrDegraded
	}
	raw, err := s.postQuery(ctx, body)
	if err != nil {
		return false, err
	}
	return parseAskResult(raw)
}

// Update applies a single named mutation immediately (bypassing debounce),
// used for administrative writes outside the per-session Memory Manager
// path.
func (s *Store) Update(ctx context.Context, templateName string, params map[string]string) error {
	return s.Batch(ctx, []Mutation{{Template: templateName, Params: params}})
}

// Batch applies mutations as a single SPARQL Update request, targeting the
// configured named graph (rule 1). All mutations in a batch either all
// apply or none do, from the caller's perspective — the endpoint is
// responsible for the underlying transactionality guarantee.
func (s *Store) Batch(ctx context.Context, mutations []Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	if s.Degraded() {
		return ErrDegraded
	}

	var bodies []string
	for _, m := range mutations {
		body, err := s.renderWithGraph(m.Template, m.Params)
		if err != nil {
			return err
		}
		bodies = append(bodies, body)
	}
	combined := strings.Join(bodies, " ; ")
	return s.postUpdate(ctx, combined)
}

func (s *Store) renderWithGraph(templateName string, params map[string]string) (string, error) {
	merged := make(map[string]string, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	if _, ok := merged["graph"]; !ok {
		merged["graph"] = s.opts.Graph
	}
	return s.templates.render(templateName, merged)
}

func (s *Store) postQuery(ctx context.Context, query string) ([]byte, error) {
	return s.post(ctx, s.opts.QueryEndpoint, "query", query, "application/sparql-results+json")
}

func (s *Store) postUpdate(ctx context.Context, update string) error {
	_, err := s.post(ctx, s.opts.UpdateEndpoint, "update", update, "")
	return err
}

func (s *Store) post(ctx context.Context, endpoint, field, body, accept string) ([]byte, error) {
	form := url.Values{}
	form.Set(field, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("store: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: request to %q failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: reading response from %q: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("store: %q returned status %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}

// sparqlResults is the minimal shape of a SPARQL 1.1 JSON results document
// needed for select/ask parsing.
type sparqlResults struct {
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

func parseSelectResults(raw []byte) ([]Row, error) {
	var parsed sparqlResults
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("store: decoding select results: %w", err)
	}
	rows := make([]Row, 0, len(parsed.Results.Bindings))
	for _, binding := range parsed.Results.Bindings {
		row := make(Row, len(binding))
		for k, v := range binding {
			row[k] = v.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseAskResult(raw []byte) (bool, error) {
	var parsed sparqlResults
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return false, fmt.Errorf("store: decoding ask result: %w", err)
	}
	if parsed.Boolean == nil {
		return false, fmt.Errorf("store: ask response missing boolean field")
	}
	return *parsed.Boolean, nil
}

// parseTriples decodes a construct response expressed as SPARQL JSON
// results over the implicit (subject, predicate, object) variables, the
// convention used by endpoints that serialize CONSTRUCT as a table rather
// than raw N-Triples.
func parseTriples(raw []byte) ([]Triple, error) {
	rows, err := parseSelectResults(raw)
	if err != nil {
		return nil, err
	}
	triples := make([]Triple, 0, len(rows))
	for _, row := range rows {
		triples = append(triples, Triple{
			Subject:   row["s"],
			Predicate: row["p"],
			Object:    row["o"],
		})
	}
	return triples, nil
}

// ErrDegraded is returned by every store operation while the backing
// endpoint is believed unreachable (rule 4).
var ErrDegraded = fmt.Errorf("store: degraded, persistent store unreachable")

// FetchInteraction performs the lazy-load path of rule 5: consult the
// in-memory LRU cache first, falling back to a Select against the store
// and populating the cache on a hit.
func (s *Store) FetchInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	if cached, ok := s.load.get(id); ok {
		return cached, nil
	}
	rows, err := s.Select(ctx, "select-by-id", map[string]string{"subject": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	interaction := interactionFromRows(id, rows)
	s.load.put(interaction)
	return interaction, nil
}

// FetchInteractionForSession is FetchInteraction with read-your-writes:
// a mutation sessionID enqueued but not yet flushed is reflected even
// though it hasn't reached the backing store yet (rule 3).
func (s *Store) FetchInteractionForSession(ctx context.Context, sessionID, id string) (*model.Interaction, error) {
	if m, ok := s.pendingOverlay(sessionID, id); ok {
		return interactionFromMutationParams(id, m.Params), nil
	}
	return s.FetchInteraction(ctx, id)
}

func interactionFromMutationParams(id string, params map[string]string) *model.Interaction {
	interaction := &model.Interaction{ID: id}
	if v, ok := params["prompt"]; ok {
		interaction.Prompt = v
	}
	if v, ok := params["response"]; ok {
		interaction.Response = v
	}
	if v, ok := params["kind"]; ok {
		interaction.Kind = model.Kind(v)
	}
	return interaction
}

func interactionFromRows(id string, rows []Row) *model.Interaction {
	interaction := &model.Interaction{ID: id}
	for _, row := range rows {
		switch row["p"] {
		case "http://semem.dev/ns#prompt":
			interaction.Prompt = row["o"]
		case "http://semem.dev/ns#response":
			interaction.Response = row["o"]
		case "http://semem.dev/ns#kind":
			interaction.Kind = model.Kind(row["o"])
		}
	}
	return interaction
}
