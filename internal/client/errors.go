package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotLoggedIn is returned by protected calls before any request is
	// sent when no token is stored.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrUnauthorized means the server rejected the stored token.  The token
	// has been removed from the store.
	ErrUnauthorized = errors.New("session expired or invalid, log in again")
	ErrForbidden    = errors.New("not allowed for this role")
	ErrNotFound     = errors.New("not found")
)

// APIError carries the server's error body.  Is matches the sentinels above
// by status code.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Status, e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", k, e.Fields[k])
		}
	}
	return b.String()
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
