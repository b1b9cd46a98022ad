package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrCacheMiss        = errors.New("cache miss")
	ErrCorruptEntry     = errors.New("corrupt cache entry")
	ErrNotLazy          = errors.New("component is not lazy")
)

// ConfigurationError reports a missing or mis-typed component. It is fatal
// before a run starts.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// Configf builds a ConfigurationError with a formatted reason.
func Configf(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// CacheError reports a missing or corrupt cache entry for a lazy component.
type CacheError struct {
	Component string
	DocID     string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s/%s: %v", e.Component, e.DocID, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// OffsetError is raised when a candidate is asked to record an occurrence
// it already holds.
type OffsetError struct {
	Form     string
	Sentence int
	Position int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("candidate %q: duplicate occurrence (%d, %d)", e.Form, e.Sentence, e.Position)
}

func (e *OffsetError) Unwrap() error { return ErrDuplicate }

// ClusterError is raised when a cluster receives a duplicate member or a
// centroid that is not one of its members.
type ClusterError struct {
	Form   string
	Reason string
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("cluster: %s: %q", e.Reason, e.Form)
}

func (e *ClusterError) Unwrap() error { return ErrInvalidInput }

// LazyComponentError is raised when a non-lazy component is asked to load
// its output from the cache. It always indicates a programming error.
type LazyComponentError struct {
	Component string
}

func (e *LazyComponentError) Error() string {
	return fmt.Sprintf("component %s is not lazy and cannot load from cache", e.Component)
}

func (e *LazyComponentError) Unwrap() error { return ErrNotLazy }
