package expr

type comparison uint8

const (
	cmpEqual comparison = iota
	cmpNotEqual
	cmpGreaterThan
	cmpGreaterThanOrEqualTo
	cmpLessThan
	cmpLessThanOrEqualTo
)

// comparisonNode covers the six binary comparison kinds. Both operands are
// evaluated eagerly; a nil operand makes the result false for every operator,
// including Equal, so two missing properties never accidentally match an
// access rule. Ordering operators additionally require numeric operands.
type comparisonNode struct {
	name  string
	op    comparison
	left  Node
	right Node
}

func (n comparisonNode) Evaluate(ctx Context) (any, error) {
	left, err := n.left.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	right, err := n.right.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	if left == nil || right == nil {
		return false, nil
	}

	switch n.op {
	case cmpEqual:
		return StrictEqual(left, right), nil
	case cmpNotEqual:
		return !StrictEqual(left, right), nil
	}

	lf, lok := numeric(left)
	rf, rok := numeric(right)
	if !lok || !rok {
		return false, nil
	}

	switch n.op {
	case cmpGreaterThan:
		return lf > rf, nil
	case cmpGreaterThanOrEqualTo:
		return lf >= rf, nil
	case cmpLessThan:
		return lf < rf, nil
	case cmpLessThanOrEqualTo:
		return lf <= rf, nil
	}
	return false, nil
}

func (n comparisonNode) Value() any            { return wrapValue(n.name, n.left, n.right) }
func (n comparisonNode) Equal(other Node) bool { return nodesEqual(n, other) }

func comparisonBuilder(name string, op comparison) BuildFunc {
	return func(args []Node) (Node, error) {
		if err := exactArgs(name, args, 2); err != nil {
			return nil, err
		}
		return comparisonNode{name: name, op: op, left: args[0], right: args[1]}, nil
	}
}
