package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the variants of Interaction stored by the engine.
type Kind string

const (
	KindInteraction   Kind = "interaction"
	KindConcept       Kind = "concept"
	KindDocument      Kind = "document"
	KindDocumentChunk Kind = "document-chunk"
	KindEnhancement   Kind = "enhancement"
)

// EnhancementProvider names the external-knowledge source behind an
// EnhancementRecord.
type EnhancementProvider string

const (
	ProviderFactual      EnhancementProvider = "factual"
	ProviderEncyclopedic EnhancementProvider = "encyclopedic"
	ProviderHypothetical EnhancementProvider = "hypothetical"
)

// Metadata carries the descriptive fields every Interaction shares.
type Metadata struct {
	Type         string
	Tags         []string
	Created      time.Time
	Source       string
	LastAccessed time.Time
	Importance   float64
}

// ChunkInfo holds the fields specific to a document-chunk Interaction.
// Populated only when Kind == KindDocumentChunk.
type ChunkInfo struct {
	ParentID    string
	Index       int
	TotalChunks int
	Title       string
	Offset      int
	Length      int
}

// EnhancementInfo holds the fields specific to an enhancement Interaction.
// Populated only when Kind == KindEnhancement.
type EnhancementInfo struct {
	SourceQuery       string
	Provider          EnhancementProvider
	CacheTTL          time.Duration
	CachedAt          time.Time
	LinkedPersonalIDs []string
}

// Expired reports whether the enhancement's cache TTL has elapsed as of now.
func (e *EnhancementInfo) Expired(now time.Time) bool {
	if e.CacheTTL <= 0 {
		return false
	}
	return now.After(e.CachedAt.Add(e.CacheTTL))
}

// Interaction is the core durable entity: a prompt/response record, or a
// stored concept/document/chunk/enhancement, per Kind. It is immutable after
// creation except for Metadata.LastAccessed and Metadata.Importance (§3
// invariants of the original specification).
type Interaction struct {
	ID       string
	Prompt   string
	Response string

	// Embedding is nil until the Embedding Service has processed this
	// Interaction. When non-nil its length must equal the configured model
	// dimension (invariant 1).
	Embedding []float32

	Concepts []string
	Metadata Metadata
	Kind     Kind

	// PendingProcessing marks an Interaction stored via lazy=true (or one
	// whose embedding/concept-extraction step failed) awaiting a later
	// processLazy pass.
	PendingProcessing bool

	Chunk      *ChunkInfo
	Enhancement *EnhancementInfo
}

// Content returns the text that grounds retrieval and synthesis for this
// Interaction: Response for enhancement records (the provider's returned
// body) and chat turns, falling back to Prompt for tell-stored content
// where no separate response exists.
func (i *Interaction) Content() string {
	if i.Response != "" {
		return i.Response
	}
	return i.Prompt
}

// ErrEmptyContent is returned when store() is asked to persist blank content.
var ErrEmptyContent = errors.New("model: content cannot be empty")

// NewID derives a stable, content-addressed identifier scoped to kind and an
// optional namespace (used to keep enhancement IDs provider-namespaced per
// invariant 6, so they never collide with user Interaction IDs).
func NewID(kind Kind, namespace, content string) string {
	h := sha256.Sum256([]byte(string(kind) + "|" + namespace + "|" + content))
	return string(kind) + "_" + hex.EncodeToString(h[:])[:24]
}

// NewRandomID returns a fresh random identifier, used for Interactions
// created from equivalent content at different times (e.g. conversational
// turns) that must still be distinguishable.
func NewRandomID(kind Kind) string {
	return string(kind) + "_" + uuid.NewString()
}

// ValidateEmbeddingDimension enforces invariant 1: an embedding, once
// present, must have exactly dim components.
func ValidateEmbeddingDimension(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("model: embedding has %d dimensions, want %d", len(embedding), dim)
	}
	return nil
}

// ValidateChunkReconstruction enforces invariant 3: a chunk's text slice plus
// its declared offset/length must reconstruct a contiguous region of parent.
func ValidateChunkReconstruction(parent string, chunkText string, offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(parent) {
		return fmt.Errorf("model: chunk offset/length %d/%d out of bounds for parent length %d", offset, length, len(parent))
	}
	region := parent[offset : offset+length]
	if region != chunkText {
		return fmt.Errorf("model: chunk text does not match parent region [%d:%d]", offset, offset+length)
	}
	return nil
}

// IsEnhancement reports whether the Interaction is an EnhancementRecord.
func (i *Interaction) IsEnhancement() bool {
	return i.Kind == KindEnhancement
}

// IsChunk reports whether the Interaction is a document-chunk.
func (i *Interaction) IsChunk() bool {
	return i.Kind == KindDocumentChunk
}

// Touch updates LastAccessed; it is the one mutation permitted post-creation
// besides Importance adjustments.
func (i *Interaction) Touch(now time.Time) {
	i.Metadata.LastAccessed = now
}
