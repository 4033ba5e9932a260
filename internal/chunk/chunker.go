package chunk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danja/semem/internal/model"
)

// Strategy selects how boundaries are sought.
type Strategy string

const (
	StrategySemantic  Strategy = "semantic"
	StrategyCharacter Strategy = "character"
)

// Options configures a Chunker. Zero values are replaced with defaults by
// NewChunker, except Overlap, where only a negative value is replaced and
// zero means no overlap.
type Options struct {
	MaxChunkSize int
	MinChunkSize int
	Overlap      int
	Strategy     Strategy

	// BoundaryWindow (W in the spec) bounds how far back from MaxChunkSize a
	// boundary may be sought before falling back to a hard split.
	BoundaryWindow int
}

// DefaultOptions returns the spec's defaults: 2000/100/100 char max/min/overlap,
// semantic strategy, 200-char boundary window.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:   2000,
		MinChunkSize:   100,
		Overlap:        100,
		Strategy:       StrategySemantic,
		BoundaryWindow: 200,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = d.MaxChunkSize
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = d.MinChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = d.Overlap
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.BoundaryWindow <= 0 {
		o.BoundaryWindow = d.BoundaryWindow
	}
	return o
}

// Chunker deterministically segments text per §4.5 of the specification.
type Chunker struct {
	opts Options
}

// NewChunker constructs a Chunker, applying DefaultOptions for any zero field
// (for Overlap, any negative value).
func NewChunker(opts Options) *Chunker {
	return &Chunker{opts: opts.withDefaults()}
}

// Result is one chunk produced by Split, pairing its text with the
// model.ChunkInfo that records its position in the parent.
type Result struct {
	Text string
	Info model.ChunkInfo
}

var headerLine = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// Split segments content into one or more Results. If content fits within
// MaxChunkSize it returns a single chunk spanning the whole input.
// parentTitle is used to synthesize a title when no Markdown header
// precedes a chunk.
func (c *Chunker) Split(content, parentTitle string) []Result {
	if len(content) <= c.opts.MaxChunkSize {
		return []Result{{
			Text: content,
			Info: model.ChunkInfo{
				Index:       0,
				TotalChunks: 1,
				Title:       titleFor(content, 0, parentTitle, 0, 1),
				Offset:      0,
				Length:      len(content),
			},
		}}
	}

	var boundaries []int // byte offsets, each the end of one raw (non-overlapping) segment
	pos := 0
	for pos < len(content) {
		remaining := len(content) - pos
		if remaining <= c.opts.MaxChunkSize {
			boundaries = append(boundaries, len(content))
			break
		}
		end := c.findBoundary(content, pos)
		boundaries = append(boundaries, end)
		pos = end
	}

	total := len(boundaries)
	results := make([]Result, 0, total)
	start := 0
	for i, end := range boundaries {
		chunkStart := start
		if i > 0 {
			chunkStart = start - c.opts.Overlap
			chunkStart = trimToWhitespaceBoundary(content, chunkStart)
			if chunkStart < 0 {
				chunkStart = 0
			}
		}
		text := content[chunkStart:end]
		results = append(results, Result{
			Text: text,
			Info: model.ChunkInfo{
				Index:       i,
				TotalChunks: total,
				Title:       titleFor(content, chunkStart, parentTitle, i, total),
				Offset:      chunkStart,
				Length:      end - chunkStart,
			},
		})
		start = end
	}
	return results
}

// findBoundary seeks the nearest semantic boundary to pos+MaxChunkSize within
// the trailing window [max-W, max], preferring double newline, then single
// newline, then sentence-end punctuation followed by whitespace, then plain
// whitespace. If none exists in the window it splits exactly at MaxChunkSize.
func (c *Chunker) findBoundary(content string, pos int) int {
	target := pos + c.opts.MaxChunkSize
	if target > len(content) {
		target = len(content)
	}
	windowStart := target - c.opts.BoundaryWindow
	if windowStart < pos {
		windowStart = pos
	}
	window := content[windowStart:target]

	if c.opts.Strategy == StrategyCharacter {
		return target
	}

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return windowStart + idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		return windowStart + idx + 1
	}
	if idx := lastSentenceEnd(window); idx >= 0 {
		return windowStart + idx
	}
	if idx := strings.LastIndexAny(window, " \t"); idx >= 0 {
		return windowStart + idx + 1
	}
	return target
}

var sentenceEndPattern = regexp.MustCompile(`[.!?][ \t\n]`)

func lastSentenceEnd(window string) int {
	matches := sentenceEndPattern.FindAllStringIndex(window, -1)
	if len(matches) == 0 {
		return -1
	}
	last := matches[len(matches)-1]
	return last[0] + 1 // position just after the punctuation, before the whitespace
}

// trimToWhitespaceBoundary nudges a cut point forward to the next whitespace
// run so overlap never starts mid-word.
func trimToWhitespaceBoundary(content string, pos int) int {
	if pos <= 0 {
		return 0
	}
	for pos < len(content) && !isSpace(content[pos-1]) {
		pos++
	}
	return pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// titleFor returns the nearest preceding Markdown header before offset, or a
// synthesized "{parentTitle} — Chunk {i}/{n}" title if none exists (§4.5
// rule 4). index/total are 0-based/1-based respectively for the "{i}/{n}"
// formatting.
func titleFor(content string, offset int, parentTitle string, index, total int) string {
	prefix := content[:offset]
	matches := headerLine.FindAllStringSubmatchIndex(prefix, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		return strings.TrimSpace(prefix[last[2]:last[3]])
	}
	if parentTitle == "" {
		parentTitle = "Untitled"
	}
	return fmt.Sprintf("%s — Chunk %d/%d", parentTitle, index+1, total)
}

// Reconstruct concatenates chunk texts, dropping each chunk's leading overlap
// region (everything before Info.Offset relative to the previous chunk's
// end), to verify the reconstructibility invariant (§4.5 rule 5, §8
// testable property 2). It is intended for tests, not production use.
func Reconstruct(results []Result) string {
	var b strings.Builder
	prevEnd := 0
	for _, r := range results {
		start := r.Info.Offset
		if start < prevEnd {
			start = prevEnd
		}
		relStart := start - r.Info.Offset
		if relStart < 0 || relStart > len(r.Text) {
			relStart = 0
		}
		b.WriteString(r.Text[relStart:])
		prevEnd = r.Info.Offset + r.Info.Length
	}
	return b.String()
}
