// Package review abstracts the external review-hosting platform. The
// workflow submits a set of file edits and gets back a reference to the
// opened review request; everything about branches, commits, and pull
// requests stays behind the Gateway interface.
package review

import (
	"context"
	"errors"
	"fmt"
)

// FileEdit is one file's desired new contents in the content repository.
type FileEdit struct {
	Path    string
	Content string
}

// ReviewRef identifies an opened review request on the external platform.
type ReviewRef struct {
	URL string
	ID  string
}

// Gateway opens a review request for a set of file edits. Implementations
// embed no retry policy; retries are the workflow's responsibility.
type Gateway interface {
	Submit(ctx context.Context, title string, edits []FileEdit) (ReviewRef, error)
}

// GatewayError classifies a failed submission. Transient failures (network
// timeouts, rate limiting, 5xx responses) may be retried by the caller;
// permanent ones (auth failures, conflicting branch) must not be.
type GatewayError struct {
	Transient bool
	Status    int
	Message   string
	cause     error
}

func (e *GatewayError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("review gateway: %s (%s, status %d)", e.Message, kind, e.Status)
	}
	return fmt.Sprintf("review gateway: %s (%s)", e.Message, kind)
}

func (e *GatewayError) Unwrap() error { return e.cause }

// IsTransient reports whether err is a retryable gateway failure.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Transient
}
