package expr

func (n *numberLit) Eval(_ *Env) Value {
	return Number(n.val)
}

func (n *identNode) Eval(env *Env) Value {
	if v, ok := env.Lookup(n.name); ok {
		return v
	}
	return Undefined
}

func (n *unaryNode) Eval(env *Env) Value {
	v := n.x.Eval(env)
	if v.IsUndefined() {
		return Undefined
	}
	switch n.op {
	case tokNot:
		return Boolean(!v.IsTrue())
	case tokMinus:
		if v.Kind != KindNumber {
			return Undefined
		}
		return Number(-v.Num)
	}
	return Undefined
}

func (n *binaryNode) Eval(env *Env) Value {
	// and/or short-circuit so a data-starved right side cannot poison an
	// already decided condition.
	switch n.op {
	case tokAnd:
		l := n.l.Eval(env)
		if l.IsUndefined() {
			return Undefined
		}
		if !l.IsTrue() {
			return Boolean(false)
		}
		r := n.r.Eval(env)
		if r.IsUndefined() {
			return Undefined
		}
		return Boolean(r.IsTrue())
	case tokOr:
		l := n.l.Eval(env)
		if !l.IsUndefined() && l.IsTrue() {
			return Boolean(true)
		}
		r := n.r.Eval(env)
		if !r.IsUndefined() && r.IsTrue() {
			return Boolean(true)
		}
		if l.IsUndefined() || r.IsUndefined() {
			return Undefined
		}
		return Boolean(false)
	}

	l := n.l.Eval(env)
	r := n.r.Eval(env)
	if l.IsUndefined() || r.IsUndefined() {
		return Undefined
	}

	switch n.op {
	case tokEQ:
		return equal(l, r)
	case tokNE:
		v := equal(l, r)
		if v.IsUndefined() {
			return Undefined
		}
		return Boolean(!v.Bool)
	}

	if l.Kind != KindNumber || r.Kind != KindNumber {
		return Undefined
	}
	switch n.op {
	case tokLT:
		return Boolean(l.Num < r.Num)
	case tokLE:
		return Boolean(l.Num <= r.Num)
	case tokGT:
		return Boolean(l.Num > r.Num)
	case tokGE:
		return Boolean(l.Num >= r.Num)
	case tokPlus:
		return Number(l.Num + r.Num)
	case tokMinus:
		return Number(l.Num - r.Num)
	case tokStar:
		return Number(l.Num * r.Num)
	case tokSlash:
		if r.Num == 0 {
			return Undefined
		}
		return Number(l.Num / r.Num)
	}
	return Undefined
}

func equal(l, r Value) Value {
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return Boolean(l.Num == r.Num)
	case l.Kind == KindString && r.Kind == KindString:
		return Boolean(l.Str == r.Str)
	case l.Kind == KindBool && r.Kind == KindBool:
		return Boolean(l.Bool == r.Bool)
	default:
		return Undefined
	}
}
