package expr

// DataSet resolves reference ids to the values computed for them.
type DataSet interface {
	Lookup(id ReferenceID) (Value, bool)
}

// MapDataSet is a DataSet over a plain map.
type MapDataSet map[ReferenceID]Value

func (m MapDataSet) Lookup(id ReferenceID) (Value, bool) {
	v, ok := m[id]
	return v, ok
}

// Evaluate computes e against data. Operands are evaluated left to right and
// the first error aborts the evaluation. data may be nil when e holds no
// references.
func Evaluate(e Expression, data DataSet) (Value, error) {
	switch n := e.(type) {
	case Constant:
		return n.Value, nil
	case NamedConstant:
		return n.Value, nil
	case Reference:
		if data == nil {
			return Value{}, NewUnresolvedReferenceError(n.ID)
		}
		v, ok := data.Lookup(n.ID)
		if !ok {
			return Value{}, NewUnresolvedReferenceError(n.ID)
		}
		return v, nil
	case Unary:
		v, err := Evaluate(n.Operand, data)
		if err != nil {
			return Value{}, err
		}
		return n.Op.Apply(v)
	case Binary:
		l, err := Evaluate(n.Left, data)
		if err != nil {
			return Value{}, err
		}
		r, err := Evaluate(n.Right, data)
		if err != nil {
			return Value{}, err
		}
		return n.Op.Apply(l, r)
	case Call:
		if !n.Func.Arity.Accepts(len(n.Args)) {
			return Value{}, evalErr(ErrParameterCountMismatch, "%s: got %d arguments", n.Func.Name, len(n.Args))
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := Evaluate(a, data)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return n.Func.Apply(args)
	case nil:
		return Value{}, evalErr(ErrTypeMismatch, "nil expression")
	}
	return Value{}, evalErr(ErrTypeMismatch, "unsupported expression %T", e)
}

// EvaluateString parses and evaluates src with the default table.
func EvaluateString(src string) (Value, error) {
	e, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return Evaluate(e, nil)
}
