package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/store"
)

// dispatchError carries a pre-classified ErrorKind through the handler call
// chain, so classifyError doesn't have to guess at validation failures
// raised directly by a verb handler.
type dispatchError struct {
	kind    ErrorKind
	message string
}

func (e *dispatchError) Error() string { return e.message }

func validationErrorf(format string, args ...any) error {
	return &dispatchError{kind: ErrorKindValidation, message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...any) error {
	return &dispatchError{kind: ErrorKindNotFound, message: fmt.Sprintf(format, args...)}
}

// classifyError maps an internal package error to the §7 taxonomy. Errors
// that already carry a dispatchError (raised by argument validation) pass
// through unchanged; everything else is matched against the sentinel
// errors exported by the packages the dispatcher composes, falling back to
// ErrorKindInternal.
func classifyError(err error) (ErrorKind, string) {
	var de *dispatchError
	if errors.As(err, &de) {
		return de.kind, de.message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindDeadlineExceeded, "operation exceeded its deadline"
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCancelled, "operation was cancelled"
	}
	if errors.Is(err, store.ErrDegraded) {
		return ErrorKindStoreUnavailable, "persistent store is unreachable"
	}
	if errors.Is(err, embedding.ErrDimensionMismatch) {
		return ErrorKindDimension, err.Error()
	}
	if errors.Is(err, embedding.ErrLengthMismatch) {
		return ErrorKindDimension, err.Error()
	}
	if errors.Is(err, model.ErrEmptyContent) {
		return ErrorKindValidation, err.Error()
	}
	if errors.Is(err, llm.ErrNoProviders) || errors.Is(err, llm.ErrAllProvidersFailed) {
		return ErrorKindProviderUnavailable, err.Error()
	}
	return ErrorKindInternal, err.Error()
}
