// # internal/engine/parser/types.go
package parser

import (
	"time"
)

// File is the analyzable content of one source file.
type File struct {
	Path     string
	Language string
	Units    []Unit
	Types    []Symbol
	Calls    []Call
	ParsedAt time.Time
}

// Unit is one executable unit: a function, method or constructor.
type Unit struct {
	Name       string
	Kind       UnitKind
	Exported   bool
	Cyclomatic int
	Markers    []string // decorators, annotations and attributes as written
	Location   Location
}

type Symbol struct {
	Name     string
	Exported bool
	Location Location
}

// Call is one call site. Qualifier holds the receiver or package
// expression for member calls and is empty for plain calls.
type Call struct {
	Qualifier string
	Name      string
	Location  Location
}

type UnitKind string

const (
	UnitFunction    UnitKind = "function"
	UnitMethod      UnitKind = "method"
	UnitConstructor UnitKind = "constructor"
)

// MarkerHandlerFunc is reported for Go functions with an HTTP handler
// signature.
const MarkerHandlerFunc = "HandlerFunc"

type Location struct {
	File   string
	Line   int
	Column int
}
