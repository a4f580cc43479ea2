package codegen

import (
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"

	"github.com/llir/llvm/ir/types"
)

// convType converts a Kvasir type to its LLVM representation.
func (g *Generator) convType(typ typing.DataType) types.Type {
	ct, ok := typing.Resolve(typ).(*typing.ConType)
	if !ok {
		report.ReportICE("non-ground type reached code generation: `%s`", typ.Repr())
	}

	switch ct.Name {
	case "Int8", "UInt8":
		return types.I8
	case "Int16", "UInt16":
		return types.I16
	case "Int32", "UInt32":
		return types.I32
	case "Int64", "UInt64":
		return types.I64
	case "Float32":
		return types.Float
	case "Float64":
		return types.Double
	case "Bool":
		return types.I1
	case "Nil", "RealWorld":
		// Zero-sized at the ABI level.
		return types.NewStruct()
	case typing.ConPtr:
		return types.NewPointer(g.convType(ct.Args[0]))
	case typing.ConCons:
		return types.NewStruct(g.convType(ct.Args[0]), g.convType(ct.Args[1]))
	case typing.ConFunc:
		// A closure: a pair of the function pointer and its environment.
		return types.NewStruct(g.convFnPtrType(ct), types.I8Ptr)
	}

	if dt, ok := g.dataTypes[ct.Name]; ok {
		return dt
	}

	report.ReportICE("no LLVM representation for type `%s`", ct.Repr())
	return nil
}

// convFnPtrType converts a `->` type to the pointer type of its implementing
// function: the environment pointer followed by the single argument.
func (g *Generator) convFnPtrType(ft *typing.ConType) types.Type {
	return types.NewPointer(types.NewFunc(
		g.convType(ft.Args[1]),
		types.I8Ptr,
		g.convType(ft.Args[0]),
	))
}

// -----------------------------------------------------------------------------

// sizeOf conservatively computes the byte size of an LLVM type for heap
// allocation.  Aggregate fields are padded to word size, which over-allocates
// slightly but never under-allocates.
func sizeOf(t types.Type) int64 {
	switch v := t.(type) {
	case *types.IntType:
		size := int64(v.BitSize) / 8
		if size == 0 {
			size = 1
		}

		return size
	case *types.FloatType:
		if v.Kind == types.FloatKindFloat {
			return 4
		}

		return 8
	case *types.PointerType:
		return 8
	case *types.StructType:
		var size int64
		for _, field := range v.Fields {
			fieldSize := sizeOf(field)
			if rem := fieldSize % 8; rem != 0 {
				fieldSize += 8 - rem
			}

			size += fieldSize
		}

		return size
	}

	return 8
}
