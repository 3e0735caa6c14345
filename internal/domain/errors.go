package domain

import (
	"errors"
	"fmt"
)

// ErrResolutionMiss marks a catalog lookup that found nothing. It is a valid outcome scoped to one item.
var ErrResolutionMiss = errors.New("catalog resolution miss")

// FetchError reports an unreachable source list or a non-success status.
type FetchError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d body: %s", e.URL, e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that the expected structured data block was missing or unreadable.
type ParseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExclusionFetchError reports a failed exclusion page. Partial pages are discarded.
type ExclusionFetchError struct {
	Service string
	Page    int
	Status  int
	Body    string
	Err     error
}

func (e *ExclusionFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exclusions %s page %d: %v", e.Service, e.Page, e.Err)
	}
	return fmt.Sprintf("exclusions %s page %d: status %d body: %s", e.Service, e.Page, e.Status, e.Body)
}

func (e *ExclusionFetchError) Unwrap() error { return e.Err }

// SubmissionError reports a downstream creation failure other than a duplicate.
type SubmissionError struct {
	Title  string
	Stage  string
	Status int
	Body   string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit %q (%s): %v", e.Title, e.Stage, e.Err)
	}
	return fmt.Sprintf("submit %q (%s): status %d body: %s", e.Title, e.Stage, e.Status, e.Body)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsRunFatal reports whether err aborts the whole run for a media kind.
// Item-scoped failures (SubmissionError, ErrResolutionMiss) never do.
func IsRunFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		fetchErr *FetchError
		parseErr *ParseError
		exclErr  *ExclusionFetchError
	)
	return errors.As(err, &fetchErr) || errors.As(err, &parseErr) || errors.As(err, &exclErr)
}
