package mir

import (
	"fmt"
	"strings"
)

// Repr renders a bundle in a compact textual form for debugging and tests.
func (b *Bundle) Repr() string {
	sb := &strings.Builder{}

	for _, ext := range b.Externals {
		fmt.Fprintf(sb, "extern $%s: %s\n", ext.Name, ext.Type.Repr())
	}

	for _, fn := range b.Functions {
		sb.WriteString(fn.Repr())
		sb.WriteRune('\n')
	}

	return sb.String()
}

// Repr renders a single function implementation.
func (fn *FuncImpl) Repr() string {
	sb := &strings.Builder{}

	sb.WriteString("func $")
	sb.WriteString(fn.Name)

	if len(fn.EnvCaptures) > 0 {
		sb.WriteRune('[')
		for i, cap := range fn.EnvCaptures {
			fmt.Fprintf(sb, "$%s: %s", cap.Name, cap.Type.Repr())

			if i < len(fn.EnvCaptures)-1 {
				sb.WriteString(", ")
			}
		}
		sb.WriteRune(']')
	}

	sb.WriteRune('(')
	for i, param := range fn.Params {
		fmt.Fprintf(sb, "$%s: %s", param.Name, param.Type.Repr())

		if i < len(fn.Params)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString(") ")
	sb.WriteString(fn.ReturnType.Repr())

	sb.WriteString(" =\n  ")
	writeExpr(sb, fn.Body, 1)
	sb.WriteRune('\n')

	return sb.String()
}

func writeExpr(sb *strings.Builder, expr Expr, depth int) {
	indent := strings.Repeat("  ", depth+1)

	switch v := expr.(type) {
	case *Const:
		sb.WriteString(v.Value)
	case *LocalRef:
		fmt.Fprintf(sb, "$%s", v.Name)
	case *GlobalRef:
		fmt.Fprintf(sb, "@%s", v.Name)
	case *Call:
		sb.WriteString("call ")
		writeExpr(sb, v.Callee, depth)
		sb.WriteRune('(')
		writeExpr(sb, v.Arg, depth)
		sb.WriteRune(')')
	case *If:
		sb.WriteString("if ")
		writeExpr(sb, v.Cond, depth)
		sb.WriteString("\n" + indent + "then ")
		writeExpr(sb, v.Then, depth+1)
		sb.WriteString("\n" + indent + "else ")
		writeExpr(sb, v.Else, depth+1)
	case *Let:
		fmt.Fprintf(sb, "let $%s = ", v.Name)
		writeExpr(sb, v.Value, depth)
		sb.WriteString("\n" + indent + "in ")
		writeExpr(sb, v.Body, depth+1)
	case *MakeClosure:
		fmt.Fprintf(sb, "closure @%s [", v.FnName)
		for i, cap := range v.Captured {
			writeExpr(sb, cap, depth)

			if i < len(v.Captured)-1 {
				sb.WriteString(", ")
			}
		}
		sb.WriteRune(']')
	case *MakePair:
		sb.WriteString("pair(")
		writeExpr(sb, v.Head, depth)
		sb.WriteString(", ")
		writeExpr(sb, v.Tail, depth)
		sb.WriteRune(')')
	case *PairHead:
		sb.WriteString("head ")
		writeExpr(sb, v.Pair, depth)
	case *PairTail:
		sb.WriteString("tail ")
		writeExpr(sb, v.Pair, depth)
	case *Alloc:
		fmt.Fprintf(sb, "alloc %s", v.ElemType.Repr())
	case *Load:
		sb.WriteString("load ")
		writeExpr(sb, v.Ptr, depth)
	case *Store:
		sb.WriteString("store ")
		writeExpr(sb, v.Ptr, depth)
		sb.WriteString(" <- ")
		writeExpr(sb, v.Value, depth)
	case *Tag:
		fmt.Fprintf(sb, "tag %d ", v.CtorIndex)
		if v.Payload != nil {
			writeExpr(sb, v.Payload, depth)
		} else {
			sb.WriteString("_")
		}
	case *TagIs:
		fmt.Fprintf(sb, "tag? %d ", v.CtorIndex)
		writeExpr(sb, v.Value, depth)
	case *GetTag:
		sb.WriteString("gettag ")
		writeExpr(sb, v.Value, depth)
	case *GetPayload:
		fmt.Fprintf(sb, "payload[%d.%d] ", v.CtorIndex, v.FieldIndex)
		writeExpr(sb, v.Value, depth)
	}
}
