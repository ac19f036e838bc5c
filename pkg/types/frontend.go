package types

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFrontendType is returned when the query-language frontend hands us a
// type we have no internal representation for. It signals version skew between the
// frontend and this core: callers must surface it, never default it away.
var ErrUnsupportedFrontendType = errors.New("unsupported frontend type")

// FrontendType is the type representation produced by the query-language frontend
// after semantic analysis. Name is the frontend's type constructor (for example
// "INTEGER" or "LIST"); Inner is set only for LIST.
type FrontendType struct {
	Name     string
	Nullable bool
	Inner    *FrontendType
}

// FrontendList builds the frontend representation of LIST<inner>.
func FrontendList(inner FrontendType) FrontendType {
	return FrontendType{Name: FrontendListName, Inner: &inner}
}

// FrontendListName is the frontend's list type constructor.
const FrontendListName = "LIST"

// frontendTable is the closed translation table. It must stay total over the set of
// types the frontend can produce; anything missing here is a fatal mismatch.
var frontendTable = map[string]CypherType{
	"ANY":          Any,
	"NULL":         Null,
	"BOOLEAN":      Boolean,
	"STRING":       String,
	"NUMBER":       Number,
	"INTEGER":      Integer,
	"FLOAT":        Float,
	"MAP":          Map,
	"NODE":         Node,
	"RELATIONSHIP": Relationship,
	"PATH":         Path,
}

// FromFrontend translates a frontend type into its CypherType.
//
// LIST maps recursively over its inner type. Names outside the table (POINT, DATE,
// DURATION, ...) fail with ErrUnsupportedFrontendType.
//
// Example:
//
//	t, err := types.FromFrontend(types.FrontendList(types.FrontendType{Name: "INTEGER"}))
//	// t == LIST<INTEGER>
func FromFrontend(ft FrontendType) (CypherType, error) {
	var t CypherType
	if ft.Name == FrontendListName {
		if ft.Inner == nil {
			return CypherType{}, fmt.Errorf("%w: LIST without element type", ErrUnsupportedFrontendType)
		}
		inner, err := FromFrontend(*ft.Inner)
		if err != nil {
			return CypherType{}, err
		}
		t = ListOf(inner)
	} else {
		mapped, ok := frontendTable[ft.Name]
		if !ok {
			return CypherType{}, fmt.Errorf("%w: %q", ErrUnsupportedFrontendType, ft.Name)
		}
		t = mapped
	}

	if ft.Nullable {
		t = t.Nullable()
	}
	return t, nil
}

// MustFromFrontend is like FromFrontend but panics on error.
func MustFromFrontend(ft FrontendType) CypherType {
	t, err := FromFrontend(ft)
	if err != nil {
		panic(err)
	}
	return t
}
