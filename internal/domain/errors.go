package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidShop          = errors.New("invalid shop domain")
	ErrInvalidState         = errors.New("invalid or expired oauth state")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMissingParams        = errors.New("missing required parameters")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrNoSession            = errors.New("no active session for shop")
	ErrUpstream             = errors.New("shopify request failed")
)

// ValidationError collects field level problems.
type ValidationError struct {
	Fields map[string]string
}

// Add records a problem for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no problems were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
