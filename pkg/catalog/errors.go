package catalog

import "errors"

// Catalog errors. Every error returned by this package, and by data sources
// for a missing graph, wraps one of these; test with errors.Is.
var (
	// ErrDuplicateNamespace is returned when registering a namespace that is
	// already registered. Deregister it first.
	ErrDuplicateNamespace = errors.New("namespace already registered")

	// ErrProtectedNamespace is returned when deregistering the session namespace.
	ErrProtectedNamespace = errors.New("session namespace cannot be deregistered")

	// ErrUnknownNamespace is returned when a namespace is not registered.
	ErrUnknownNamespace = errors.New("unknown namespace")

	// ErrUnknownGraph is returned by data sources for a graph they do not hold.
	ErrUnknownGraph = errors.New("unknown graph")

	// ErrInvalidGraphName is returned for malformed qualified graph names.
	ErrInvalidGraphName = errors.New("invalid graph name")

	// ErrReadOnly is returned by data sources that cannot store or delete graphs.
	ErrReadOnly = errors.New("data source is read-only")
)
