package common

// Intrinsic describes one of the built-in arithmetic or comparison
// operations.  These are polymorphic at the surface but carry no bodies: each
// specialization resolves to the runtime primitive matching its fully
// resolved operand type (`add` at Int64 becomes the extern `add_int64`).
type Intrinsic struct {
	// Name is the surface name of the operation.
	Name string

	// Compare marks the comparison operations, which yield Bool instead of
	// the operand type.
	Compare bool
}

// Intrinsics enumerates the built-in operations by surface name.
var Intrinsics = map[string]Intrinsic{
	"add": {Name: "add"},
	"sub": {Name: "sub"},
	"mul": {Name: "mul"},
	"div": {Name: "div"},

	"eq":   {Name: "eq", Compare: true},
	"neq":  {Name: "neq", Compare: true},
	"gt":   {Name: "gt", Compare: true},
	"gteq": {Name: "gteq", Compare: true},
	"lt":   {Name: "lt", Compare: true},
	"lteq": {Name: "lteq", Compare: true},
}
