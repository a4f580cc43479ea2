package syntax

import (
	"strconv"
	"strings"
)

// PrintSexpr renders an s-expression back to surface syntax.  Reading the
// printed form yields a structurally identical tree, which is what error
// messages and the reader round-trip tests rely on.
func PrintSexpr(expr Sexpr) string {
	sb := &strings.Builder{}
	printSexpr(sb, expr)
	return sb.String()
}

func printSexpr(sb *strings.Builder, expr Sexpr) {
	switch v := expr.(type) {
	case *Atom:
		switch v.Tok.Kind {
		case TOK_STRINGLIT:
			sb.WriteString(strconv.Quote(v.Tok.Value))
		case TOK_UINTLIT:
			sb.WriteString(v.Tok.Value)
			sb.WriteRune('u')
		default:
			sb.WriteString(v.Tok.Value)
		}
	case *List:
		open, close := "(", ")"
		if v.Bracketed {
			open, close = "[", "]"
		}

		sb.WriteString(open)
		for i, item := range v.Items {
			printSexpr(sb, item)

			if i < len(v.Items)-1 {
				sb.WriteRune(' ')
			}
		}
		sb.WriteString(close)
	}
}
