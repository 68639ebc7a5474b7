package submission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/princekumarofficial/submission-service/internal/backend"
	"github.com/princekumarofficial/submission-service/internal/types"
)

var (
	ErrNoSession            = errors.New("you must be signed in to submit")
	ErrUnknownKind          = errors.New("unknown content kind")
	ErrSubmissionInProgress = errors.New("an identical submission is still being processed")
	ErrTierUnavailable      = errors.New("tier is not configured")
)

// PreconditionError blocks a submission before any network call.
type PreconditionError struct {
	Field string
	Err   error
}

func (e *PreconditionError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// TierFailure is one creation tier's error.
type TierFailure struct {
	Tier string
	Err  error
}

func (f TierFailure) Error() string {
	return fmt.Sprintf("%s tier: %s", f.Tier, f.Err)
}

func (f TierFailure) Unwrap() error {
	return f.Err
}

// AggregateError is returned when every tier failed. Failures are kept in
// tier order.
type AggregateError struct {
	Kind     types.ContentKind
	Failures []TierFailure
}

// Message is the most specific reason available, preferring earlier tiers.
func (e *AggregateError) Message() string {
	for _, f := range e.Failures {
		if r := reason(f.Err); !isGeneric(r) {
			return r
		}
	}
	if len(e.Failures) > 0 {
		if r := reason(e.Failures[0].Err); r != "" {
			return r
		}
	}
	return "unknown error"
}

func (e *AggregateError) Error() string {
	primary := e.Message()

	var b strings.Builder
	fmt.Fprintf(&b, "could not create %s: %s", kindLabel(e.Kind), primary)

	var others []string
	for _, f := range e.Failures {
		if r := reason(f.Err); r != primary {
			others = append(others, fmt.Sprintf("%s: %s", f.Tier, r))
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(&b, " (also %s)", strings.Join(others, "; "))
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// LinkWarning is a non-fatal failure while attaching media to an existing
// record.
type LinkWarning struct {
	Step string
	Err  error
}

func (w LinkWarning) Error() string {
	return fmt.Sprintf("link %s: %s", w.Step, w.Err)
}

func (w LinkWarning) Unwrap() error {
	return w.Err
}

var genericReasons = map[string]bool{
	"":                      true,
	"error":                 true,
	"unknown error":         true,
	"internal server error": true,
	"internal error":        true,
	"bad request":           true,
	"request failed":        true,
	"network error":         true,
	"failed to fetch":       true,
	"something went wrong":  true,
}

func reason(err error) string {
	if err == nil || errors.Is(err, ErrTierUnavailable) {
		return ""
	}
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return ""
	}
	return err.Error()
}

func isGeneric(r string) bool {
	return genericReasons[strings.ToLower(strings.TrimSpace(r))]
}

func kindLabel(k types.ContentKind) string {
	if k == "" {
		return "content"
	}
	return strings.ReplaceAll(string(k), "_", " ")
}
