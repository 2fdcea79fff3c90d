package formula

// ToTree renders a node as a JSON-friendly tree. The server and the CLI
// both emit this shape, so editors see one AST encoding.
func ToTree(n Node) map[string]any {
	out := map[string]any{
		"kind":     n.Kind(),
		"position": n.Pos(),
	}
	switch node := n.(type) {
	case *Literal:
		out["type"] = string(node.DataType)
		out["value"] = node.Raw
	case *FieldRef:
		out["field"] = node.Field
	case *UnaryOp:
		out["operator"] = node.Op.String()
		out["operand"] = ToTree(node.Operand)
	case *BinaryOp:
		out["operator"] = node.Op.String()
		out["left"] = ToTree(node.Left)
		out["right"] = ToTree(node.Right)
	case *FunctionCall:
		out["name"] = node.Name
		args := make([]map[string]any, 0, len(node.Args))
		for _, arg := range node.Args {
			args = append(args, ToTree(arg))
		}
		out["args"] = args
		if len(node.NamedArgs) > 0 {
			named := make(map[string]any, len(node.NamedArgs))
			for key, val := range node.NamedArgs {
				named[key] = ToTree(val)
			}
			out["named_args"] = named
		}
	}
	return out
}
