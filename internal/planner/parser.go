package planner

import "strings"

// parser is a recursive-descent parser over the token stream produced by
// lexer, implementing spec.md §4.1's grammar and precedence:
// or < and < not < comparison < additive < multiplicative < call/primary.
type parser struct {
	tokens       []token
	pos          int
	raw          string
	measureNames map[string]bool
}

// ParseExpr parses a filter, post_expr, or formula string into an Expr.
// measureNames is the set of measure names defined on the table the
// expression belongs to — a bare identifier matching one of them
// resolves to a MeasureRef, otherwise to a Column (spec.md §4.1).
// measureNames may be nil when parsing a context with no measures in
// scope (e.g. a dimension expression), in which case every bare
// identifier resolves to a Column.
func ParseExpr(input string, measureNames map[string]bool) (Expr, error) {
	l := newLexer(input)
	tokens, lexErr := l.tokenize()
	if lexErr != nil {
		return nil, lexErr
	}
	p := &parser{tokens: tokens, raw: input, measureNames: measureNames}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, newErr(ParseError, "unexpected token %q at offset %d in %q", p.peek().text, p.peek().offset, input)
	}
	return expr, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, *Error) {
	if p.peek().kind != kind {
		return token{}, newErr(ParseError, "expected %s at offset %d in %q, found %q", what, p.peek().offset, p.raw, p.peek().text)
	}
	return p.advance(), nil
}

func (p *parser) parseOr() (Expr, *Error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, *Error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

// parseNot implements unary `not`, which binds looser than comparison but
// tighter than `and`/`or` (spec.md §4.1; SPEC_FULL.md §13.3 resolves the
// ambiguity the source docs left open).
func (p *parser) parseNot() (Expr, *Error) {
	if p.peek().kind == tokNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Call{Func: FnNot, Args: []Expr{operand}}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, *Error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var op BinaryOp
	switch p.peek().kind {
	case tokEq:
		op = OpEq
	case tokNeq:
		op = OpNeq
	case tokGt:
		op = OpGt
	case tokGte:
		op = OpGte
	case tokLt:
		op = OpLt
	case tokLte:
		op = OpLte
	default:
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (Expr, *Error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokPlus:
			op = OpAdd
		case tokMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, *Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		case tokPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, *Error) {
	if p.peek().kind == tokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: OpMul, Left: Literal{Value: int64(-1)}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, *Error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.advance()
		if tok.num == float64(int64(tok.num)) && !strings.Contains(tok.text, ".") {
			return Literal{Value: int64(tok.num)}, nil
		}
		return Literal{Value: tok.num}, nil
	case tokString:
		p.advance()
		return Literal{Value: tok.text}, nil
	case tokNull:
		p.advance()
		return Literal{Value: nil}, nil
	case tokTrue:
		p.advance()
		return Literal{Value: true}, nil
	case tokFalse:
		p.advance()
		return Literal{Value: false}, nil
	case tokLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case tokIdent:
		p.advance()
		if p.peek().kind == tokLParen {
			return p.parseCall(tok.text)
		}
		return p.resolveIdent(tok.text), nil
	default:
		return nil, newErr(ParseError, "unexpected token %q at offset %d in %q", tok.text, tok.offset, p.raw)
	}
}

// resolveIdent implements spec.md §4.1's rule: a qualified identifier
// (contains a dot) is always a Column; a bare identifier is a MeasureRef
// when it names a measure on the table, else a Column.
func (p *parser) resolveIdent(name string) Expr {
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		return Column{Table: parts[0], Name: parts[1]}
	}
	if p.measureNames != nil && p.measureNames[name] {
		return MeasureRef{Name: name}
	}
	return Column{Name: name}
}

func (p *parser) parseCall(name string) (Expr, *Error) {
	p.advance() // consume '('
	var args []Expr
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	if agg, ok := aggregationNames[strings.ToLower(name)]; ok {
		if len(args) != 1 {
			return nil, newErr(ParseError, "aggregation %q requires exactly 1 argument, got %d", name, len(args))
		}
		return AggregateExpr{Agg: agg, Expr: args[0]}, nil
	}

	fn, ok := knownFunctions[strings.ToLower(name)]
	if !ok {
		return nil, newErr(ParseError, "unknown function %q at offset %d in %q", name, p.tokens[p.pos].offset, p.raw)
	}
	return Call{Func: fn, Args: args}, nil
}

// aggregationNames lets the expression parser recognize sum(...),
// count(...), etc. inside a formula measure (SPEC_FULL.md §12.1) the
// same way the teacher's base-measure YAML `agg` field does.
var aggregationNames = map[string]Aggregation{
	"sum": AggSum, "count": AggCount, "count_distinct": AggCountDistinct,
	"min": AggMin, "max": AggMax, "avg": AggAvg,
	"approx_count_distinct": AggApproxCountDistinct, "median": AggMedian,
	"stddev": AggStddev, "stddev_samp": AggStddevSamp,
	"variance": AggVariance, "variance_samp": AggVarianceSamp,
	"string_agg": AggStringAgg, "array_agg": AggArrayAgg,
	"first": AggFirst, "last": AggLast,
}
