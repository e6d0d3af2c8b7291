// Package ocr is the boundary with the external vision model that reads
// document photos. It returns weakly-typed field mappings which callers must
// pass through the records normalizers before use.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the type of document in an image
type Kind string

const (
	KindIdentity       Kind = "dni"
	KindTechnicalSheet Kind = "ficha"
)

// ParseKind validates a document kind name
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIdentity, KindTechnicalSheet:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported document kind: %q", s)
	}
}

// RawFields is the untyped mapping returned by the vision model
type RawFields map[string]any

var (
	// ErrUnreachable means the recognition service could not be called
	ErrUnreachable = errors.New("recognition service unreachable")
	// ErrEmptyResponse means the service answered without content
	ErrEmptyResponse = errors.New("empty recognition response")
	// ErrMalformedResponse means the answer is not a JSON object
	ErrMalformedResponse = errors.New("malformed recognition response")
)

// Recognizer reads the fields of a document image
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, kind Kind) (RawFields, error)
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, image []byte, kind Kind) (RawFields, error)

// Recognize calls f
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, kind Kind) (RawFields, error) {
	return f(ctx, image, kind)
}

// Unavailable returns a recognizer that fails every call with ErrUnreachable.
// It stands in when the vision client cannot be built, so the rest of the
// service keeps working.
func Unavailable(cause error) Recognizer {
	return RecognizerFunc(func(context.Context, []byte, Kind) (RawFields, error) {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, cause)
	})
}

// preview shortens model output for error messages
func preview(s string) string {
	const limit = 500
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
