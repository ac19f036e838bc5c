package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Namespace identifies one registered data source.
type Namespace string

// GraphName is the name of a graph local to its namespace.
type GraphName string

// QualifiedGraphName names a graph across namespaces.
//
// Its text form is "<namespace>.<graph>". The first "." splits, so the graph
// part may itself contain dots:
//
//	archive.people        -> (archive, people)
//	archive.2024.people   -> (archive, 2024.people)
//	people                -> (<session namespace>, people)
//
// Both parts are NFC-normalized, so visually identical names written with
// different Unicode compositions resolve to the same graph.
type QualifiedGraphName struct {
	Namespace Namespace
	GraphName GraphName
}

// NewQualifiedGraphName validates and normalizes ns and name.
func NewQualifiedGraphName(ns Namespace, name GraphName) (QualifiedGraphName, error) {
	q := QualifiedGraphName{
		Namespace: Namespace(norm.NFC.String(strings.TrimSpace(string(ns)))),
		GraphName: GraphName(norm.NFC.String(strings.TrimSpace(string(name)))),
	}
	if q.Namespace == "" {
		return QualifiedGraphName{}, fmt.Errorf("%w: empty namespace", ErrInvalidGraphName)
	}
	if strings.Contains(string(q.Namespace), ".") {
		return QualifiedGraphName{}, fmt.Errorf("%w: namespace %q contains '.'", ErrInvalidGraphName, q.Namespace)
	}
	if q.GraphName == "" {
		return QualifiedGraphName{}, fmt.Errorf("%w: empty graph name in namespace %q", ErrInvalidGraphName, q.Namespace)
	}
	return q, nil
}

// NormalizeNamespace returns ns in the form the registry keys it by: trimmed
// and NFC-normalized. It fails for names NewQualifiedGraphName rejects.
func NormalizeNamespace(ns Namespace) (Namespace, error) {
	q, err := NewQualifiedGraphName(ns, "_")
	if err != nil {
		return "", err
	}
	return q.Namespace, nil
}

// MustQualifiedGraphName is like NewQualifiedGraphName but panics on error.
func MustQualifiedGraphName(ns Namespace, name GraphName) QualifiedGraphName {
	q, err := NewQualifiedGraphName(ns, name)
	if err != nil {
		panic(err)
	}
	return q
}

// ParseQualifiedGraphName parses "<namespace>.<graph>". A name without "."
// belongs to sessionNS.
func ParseQualifiedGraphName(s string, sessionNS Namespace) (QualifiedGraphName, error) {
	s = strings.TrimSpace(s)
	if ns, name, ok := strings.Cut(s, "."); ok {
		return NewQualifiedGraphName(Namespace(ns), GraphName(name))
	}
	return NewQualifiedGraphName(sessionNS, GraphName(s))
}

// String returns the text form accepted by ParseQualifiedGraphName.
func (q QualifiedGraphName) String() string {
	return string(q.Namespace) + "." + string(q.GraphName)
}
