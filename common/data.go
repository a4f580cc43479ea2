package common

import (
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// DataDef represents a user-declared algebraic data type.
type DataDef struct {
	// The name of the type.
	Name string

	// The span of the `data` declaration.
	DefSpan *report.TextSpan

	// The nominal type introduced by the declaration.
	Type *typing.ConType

	// The constructors of the type in declaration order.
	Ctors []*DataCtor
}

// DataCtor is a single constructor of an algebraic data type.
type DataCtor struct {
	// The name of the constructor.
	Name string

	// The data type the constructor belongs to.
	Parent *DataDef

	// The position of the constructor within its declaration: this index
	// becomes the runtime tag of values built with the constructor.
	Index int

	// The types of the constructor's fields.  Empty for nullary constructors.
	FieldTypes []typing.DataType
}
