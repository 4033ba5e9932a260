package enhancement

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/danja/semem/internal/model"
)

type cacheKey struct {
	provider   model.EnhancementProvider
	normalized string
}

// cache holds EnhancementRecords keyed by (provider, normalized question).
// Entries past their CacheTTL are treated as misses on read and overwritten
// rather than actively swept, matching the demotion-not-deletion rule for
// enhancement records.
type cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*model.Interaction
}

func newCache() *cache {
	return &cache{entries: make(map[cacheKey]*model.Interaction)}
}

func (c *cache) get(provider model.EnhancementProvider, question string, now time.Time) (*model.Interaction, bool) {
	key := cacheKey{provider: provider, normalized: normalizeQuestion(question)}

	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if record.Enhancement != nil && record.Enhancement.Expired(now) {
		return nil, false
	}
	return record, true
}

func (c *cache) put(provider model.EnhancementProvider, question string, record *model.Interaction) {
	key := cacheKey{provider: provider, normalized: normalizeQuestion(question)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = record
}

var (
	punctuationPattern = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// normalizeQuestion lowercases, strips punctuation, and collapses
// whitespace, per §4.4's cache-key normalization rule.
func normalizeQuestion(question string) string {
	lowered := strings.ToLower(question)
	stripped := punctuationPattern.ReplaceAllString(lowered, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
}
