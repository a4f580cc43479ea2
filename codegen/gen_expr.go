package codegen

import (
	"strconv"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/mir"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genExpr generates an expression into the current block, returning its
// value.  Generation may move the current block (conditionals do).
func (g *Generator) genExpr(expr mir.Expr) value.Value {
	switch v := expr.(type) {
	case *mir.Const:
		return g.genConst(v)
	case *mir.LocalRef:
		val, ok := g.locals[v.Name]
		if !ok {
			report.ReportICE("undefined local `%s` during code generation", v.Name)
		}

		return val
	case *mir.GlobalRef:
		if v.Extern {
			// An extern referenced as a value gets a closure wrapper.
			return g.genExternValue(v)
		}

		return g.block.NewLoad(g.convType(v.RefType), g.globals[v.Name])
	case *mir.Call:
		return g.genCall(v)
	case *mir.If:
		return g.genIf(v)
	case *mir.Let:
		g.locals[v.Name] = g.genExpr(v.Value)
		return g.genExpr(v.Body)
	case *mir.MakeClosure:
		return g.genMakeClosure(v)
	case *mir.MakePair:
		pair := g.convType(v.PairType)
		agg := g.block.NewInsertValue(constant.NewUndef(pair), g.genExpr(v.Head), 0)
		return g.block.NewInsertValue(agg, g.genExpr(v.Tail), 1)
	case *mir.PairHead:
		return g.block.NewExtractValue(g.genExpr(v.Pair), 0)
	case *mir.PairTail:
		return g.block.NewExtractValue(g.genExpr(v.Pair), 1)
	case *mir.Alloc:
		elem := g.convType(v.ElemType)
		raw := g.block.NewCall(g.mallocFn, constant.NewInt(types.I64, sizeOf(elem)))
		return g.block.NewBitCast(raw, types.NewPointer(elem))
	case *mir.Load:
		ptr := g.genExpr(v.Ptr)
		return g.block.NewLoad(ptr.Type().(*types.PointerType).ElemType, ptr)
	case *mir.Store:
		g.block.NewStore(g.genExpr(v.Value), g.genExpr(v.Ptr))
		return constant.NewStruct(types.NewStruct())
	case *mir.Tag:
		return g.genTag(v)
	case *mir.TagIs:
		tag := g.block.NewExtractValue(g.genExpr(v.Value), 0)
		return g.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I32, int64(v.CtorIndex)))
	case *mir.GetTag:
		return g.block.NewExtractValue(g.genExpr(v.Value), 0)
	case *mir.GetPayload:
		return g.genGetPayload(v)
	}

	report.ReportICE("code generation encountered an unknown MIR node")
	return nil
}

// -----------------------------------------------------------------------------

// genConst generates a literal constant.
func (g *Generator) genConst(c *mir.Const) value.Value {
	switch c.Kind {
	case ast.LitInt:
		x, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			report.ReportICE("malformed integer literal `%s` reached code generation", c.Value)
		}

		return constant.NewInt(g.convType(c.ConstType).(*types.IntType), x)
	case ast.LitUInt:
		x, err := strconv.ParseUint(c.Value, 10, 64)
		if err != nil {
			report.ReportICE("malformed unsigned literal `%s` reached code generation", c.Value)
		}

		return constant.NewInt(g.convType(c.ConstType).(*types.IntType), int64(x))
	case ast.LitFloat:
		x, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			report.ReportICE("malformed float literal `%s` reached code generation", c.Value)
		}

		return constant.NewFloat(g.convType(c.ConstType).(*types.FloatType), x)
	case ast.LitBool:
		return constant.NewBool(c.Value == "true")
	case ast.LitNil:
		return constant.NewStruct(g.convType(c.ConstType).(*types.StructType))
	case ast.LitString:
		return g.genStringLiteral(c.Value)
	}

	// unreachable
	return nil
}

// genStringLiteral builds a `String` list value from the back forward:
// `String` is `Empty | Cons UInt8 String`.
func (g *Generator) genStringLiteral(s string) value.Value {
	strType := g.dataTypes["String"].(*types.StructType)

	// The empty tail.
	var acc value.Value = constant.NewStruct(
		strType,
		constant.NewInt(types.I32, 0),
		constant.NewNull(types.I8Ptr),
	)

	payloadType := types.NewStruct(types.I8, strType)

	bytes := []byte(s)
	for i := len(bytes) - 1; i >= 0; i-- {
		raw := g.block.NewCall(g.mallocFn, constant.NewInt(types.I64, sizeOf(payloadType)))
		ptr := g.block.NewBitCast(raw, types.NewPointer(payloadType))

		cell := g.block.NewInsertValue(constant.NewUndef(payloadType), constant.NewInt(types.I8, int64(bytes[i])), 0)
		cell = g.block.NewInsertValue(cell, acc, 1)
		g.block.NewStore(cell, ptr)
		g.block.NewCall(g.retainFn, raw)

		next := g.block.NewInsertValue(constant.NewUndef(strType), constant.NewInt(types.I32, 1), 0)
		acc = g.block.NewInsertValue(next, raw, 1)
	}

	return acc
}

// -----------------------------------------------------------------------------

// genCall generates an application.  Known callees (direct closures of named
// functions and extern references) call their targets directly; anything else
// goes through the closure's function pointer.
func (g *Generator) genCall(call *mir.Call) value.Value {
	switch callee := call.Callee.(type) {
	case *mir.GlobalRef:
		if callee.Extern {
			return g.block.NewCall(g.externs[callee.Name], g.genExpr(call.Arg))
		}
	case *mir.MakeClosure:
		env := g.genClosureEnv(callee)
		return g.block.NewCall(g.funcs[callee.FnName], env, g.genExpr(call.Arg))
	}

	closure := g.genExpr(call.Callee)
	fnPtr := g.block.NewExtractValue(closure, 0)
	env := g.block.NewExtractValue(closure, 1)

	return g.block.NewCall(fnPtr, env, g.genExpr(call.Arg))
}

// genIf generates a conditional, accumulating the branch results into a phi
// node.
func (g *Generator) genIf(ifExpr *mir.If) value.Value {
	thenBlock := g.appendBlock()
	elseBlock := g.appendBlock()
	endBlock := g.appendBlock()

	cond := g.genExpr(ifExpr.Cond)
	g.block.NewCondBr(cond, thenBlock, elseBlock)

	g.block = thenBlock
	thenVal := g.genExpr(ifExpr.Then)
	thenIncoming := ir.NewIncoming(thenVal, g.block)
	g.block.NewBr(endBlock)

	g.block = elseBlock
	elseVal := g.genExpr(ifExpr.Else)
	elseIncoming := ir.NewIncoming(elseVal, g.block)
	g.block.NewBr(endBlock)

	g.block = endBlock
	return g.block.NewPhi(thenIncoming, elseIncoming)
}

// appendBlock appends a new anonymous block to the enclosing function.
func (g *Generator) appendBlock() *ir.Block {
	return g.enclosingFunc.NewBlock("")
}

// -----------------------------------------------------------------------------

// genMakeClosure allocates a closure value.
func (g *Generator) genMakeClosure(mc *mir.MakeClosure) value.Value {
	closureType := g.convType(mc.ClosureType).(*types.StructType)

	fn := g.funcs[mc.FnName]
	env := g.genClosureEnv(mc)

	agg := g.block.NewInsertValue(constant.NewUndef(closureType), fn, 0)
	return g.block.NewInsertValue(agg, env, 1)
}

// genClosureEnv builds the environment of a closure: null for empty capture
// sets, otherwise a heap-allocated struct of the captured values.
func (g *Generator) genClosureEnv(mc *mir.MakeClosure) value.Value {
	if len(mc.Captured) == 0 {
		return constant.NewNull(types.I8Ptr)
	}

	var capVals []value.Value
	var capTypes []types.Type
	for _, cap := range mc.Captured {
		val := g.genExpr(cap)
		capVals = append(capVals, val)
		capTypes = append(capTypes, val.Type())
	}

	envType := types.NewStruct(capTypes...)
	raw := g.block.NewCall(g.mallocFn, constant.NewInt(types.I64, sizeOf(envType)))
	envPtr := g.block.NewBitCast(raw, types.NewPointer(envType))

	for i, val := range capVals {
		fieldPtr := g.block.NewGetElementPtr(
			envType, envPtr,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)),
		)
		g.block.NewStore(val, fieldPtr)
	}

	// The environment is a heap value held past its defining scope.
	g.block.NewCall(g.retainFn, raw)

	return raw
}

// genExternValue wraps an extern in a closure so it can flow as a value: the
// wrapper has the uniform (environment, argument) signature and forwards to
// the C symbol.
func (g *Generator) genExternValue(ref *mir.GlobalRef) value.Value {
	wrapper, ok := g.externWrappers[ref.Name]
	if !ok {
		ft := typing.Resolve(ref.RefType).(*typing.ConType)

		wrapper = g.mod.NewFunc(
			globalPrefix+ref.Name+".clo",
			g.convType(ft.Args[1]),
			ir.NewParam("env", types.I8Ptr),
			ir.NewParam("arg", g.convType(ft.Args[0])),
		)
		wrapper.Linkage = enum.LinkageInternal

		entry := wrapper.NewBlock("entry")
		entry.NewRet(entry.NewCall(g.externs[ref.Name], wrapper.Params[1]))

		g.externWrappers[ref.Name] = wrapper
	}

	closureType := g.convType(ref.RefType).(*types.StructType)
	agg := g.block.NewInsertValue(constant.NewUndef(closureType), wrapper, 0)
	return g.block.NewInsertValue(agg, constant.NewNull(types.I8Ptr), 1)
}

// -----------------------------------------------------------------------------

// genTag builds a sum-type value from a constructor index and its payload.
func (g *Generator) genTag(tag *mir.Tag) value.Value {
	sumType := g.convType(tag.SumType).(*types.StructType)

	var payload value.Value = constant.NewNull(types.I8Ptr)
	if tag.Payload != nil {
		ptr := g.genExpr(tag.Payload)
		payload = g.block.NewBitCast(ptr, types.I8Ptr)
		g.block.NewCall(g.retainFn, payload)
	}

	agg := g.block.NewInsertValue(constant.NewUndef(sumType), constant.NewInt(types.I32, int64(tag.CtorIndex)), 0)
	return g.block.NewInsertValue(agg, payload, 1)
}

// genGetPayload projects one field out of a sum value built by a known
// constructor.  Multi-field payloads are right-nested pairs.
func (g *Generator) genGetPayload(gp *mir.GetPayload) value.Value {
	sumName := typing.Resolve(gp.Value.Type()).(*typing.ConType).Name
	ctor := g.bundle.DataDefs[sumName].Ctors[gp.CtorIndex]

	// Rebuild the payload type: the single field, or the pair chain.
	payloadType := g.convType(ctor.FieldTypes[len(ctor.FieldTypes)-1])
	for i := len(ctor.FieldTypes) - 2; i >= 0; i-- {
		payloadType = types.NewStruct(g.convType(ctor.FieldTypes[i]), payloadType)
	}

	raw := g.block.NewExtractValue(g.genExpr(gp.Value), 1)
	ptr := g.block.NewBitCast(raw, types.NewPointer(payloadType))
	loaded := g.block.NewLoad(payloadType, ptr)

	var result value.Value = loaded
	for i := 0; i < gp.FieldIndex; i++ {
		result = g.block.NewExtractValue(result, 1)
	}

	if gp.FieldIndex < len(ctor.FieldTypes)-1 {
		result = g.block.NewExtractValue(result, 0)
	}

	return result
}
