// Package dispatch implements the Verb Dispatcher: the stable twelve-verb
// surface (tell, ask, augment, inspect, state, zoom, pan, tilt, remember,
// recall, chat, chat-enhanced) that wraps every other package behind a
// single uniform request/response envelope.
package dispatch

import (
	"time"

	"github.com/danja/semem/internal/model"
)

// Verb names the twelve operations the dispatcher exposes.
type Verb string

const (
	VerbTell          Verb = "tell"
	VerbAsk           Verb = "ask"
	VerbAugment       Verb = "augment"
	VerbInspect       Verb = "inspect"
	VerbState         Verb = "state"
	VerbZoom          Verb = "zoom"
	VerbPan           Verb = "pan"
	VerbTilt          Verb = "tilt"
	VerbRemember      Verb = "remember"
	VerbRecall        Verb = "recall"
	VerbChat          Verb = "chat"
	VerbChatEnhanced  Verb = "chat-enhanced"
)

// Request is one call into the dispatcher.
type Request struct {
	Verb      Verb
	SessionID string
	Args      map[string]any
}

// ErrorKind is the typed error taxonomy of §7: the dispatcher classifies
// every internal package error into one of these at the edge, so the
// transport never sees a raw Go error or a stack trace.
type ErrorKind string

const (
	ErrorKindValidation          ErrorKind = "validation"
	ErrorKindDimension           ErrorKind = "dimension"
	ErrorKindProviderUnavailable ErrorKind = "providerUnavailable"
	ErrorKindProviderTimeout     ErrorKind = "providerTimeout"
	ErrorKindStoreUnavailable    ErrorKind = "storeUnavailable"
	ErrorKindNotFound            ErrorKind = "notFound"
	ErrorKindConflict            ErrorKind = "conflict"
	ErrorKindDeadlineExceeded    ErrorKind = "deadlineExceeded"
	ErrorKindCancelled           ErrorKind = "cancelled"
	ErrorKindInternal            ErrorKind = "internal"
)

// Diagnostics carries per-call timing and provenance information, surfaced
// alongside every envelope regardless of success (§4.1 step 5).
type Diagnostics struct {
	TimingsMs   map[string]int64
	SourcesUsed []string
	CacheHits   map[string]bool
}

// Envelope is the uniform response shape every verb returns (§6.1): a
// successful call carries Result and ZPTState; a failed one carries
// ErrorKind and ErrorMessage instead. The transport never sees a raw error.
type Envelope struct {
	Success      bool
	Verb         Verb
	Result       any
	ZPTState     model.NavigationState
	Diagnostics  Diagnostics
	ErrorKind    ErrorKind
	ErrorMessage string
}

func successEnvelope(verb Verb, result any, state model.NavigationState, diag Diagnostics) Envelope {
	return Envelope{
		Success:     true,
		Verb:        verb,
		Result:      result,
		ZPTState:    state,
		Diagnostics: diag,
	}
}

func errorEnvelope(verb Verb, state model.NavigationState, kind ErrorKind, message string) Envelope {
	return Envelope{
		Success:      false,
		Verb:         verb,
		ZPTState:     state,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

// elapsedMs is a small helper so every handler reports its own timing the
// same way.
func elapsedMs(since time.Time) int64 {
	return time.Since(since).Milliseconds()
}
