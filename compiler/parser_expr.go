package compiler

import "strconv"

// ---------------------------------------------------------------------------
// Expression parsing (binding powers)
// ---------------------------------------------------------------------------

// Binding powers. Higher binds tighter. Every infix operator has a right
// power one above its left power, which makes equal-precedence chains group
// to the left.
const (
	bpNone  = 0
	bpMinus = 51  // prefix -
	bpNot   = 101 // prefix not
)

// PrefixBindingPower returns the binding power of a prefix operator.
func PrefixBindingPower(kind TokenKind) (int, bool) {
	switch kind {
	case TokenMinus:
		return bpMinus, true
	case TokenNot:
		return bpNot, true
	}
	return 0, false
}

// InfixBindingPower returns the left and right binding powers of an infix
// operator.
func InfixBindingPower(kind TokenKind) (left, right int, ok bool) {
	switch kind {
	case TokenOr:
		return 1, 2, true
	case TokenAnd:
		return 3, 4, true
	case TokenEq, TokenNotEq:
		return 5, 6, true
	case TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
		return 7, 8, true
	case TokenPlus, TokenMinus:
		return 9, 10, true
	case TokenStar, TokenSlash:
		return 11, 12, true
	}
	return 0, 0, false
}

// isOperator reports whether kind may follow a complete operand.
func isOperator(kind TokenKind) bool {
	switch kind {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash,
		TokenAnd, TokenOr, TokenNot,
		TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq,
		TokenNotEq, TokenEq:
		return true
	}
	return false
}

// ParseExpression parses a single expression at the lowest binding power.
func (p *Parser) ParseExpression() (Expr, error) {
	return p.parseExpr(bpNone)
}

// parseExpr parses an expression whose infix operators all bind at least
// as tightly as minBP.
func (p *Parser) parseExpr(minBP int) (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		switch {
		case isOperator(tok.Kind):
		case tok.Kind == TokenEOF, tok.Kind == TokenRParen, tok.Kind == TokenNewline:
			return lhs, nil
		default:
			return nil, p.unexpected("operator or terminator", p.next())
		}

		left, right, ok := InfixBindingPower(tok.Kind)
		if !ok || left < minBP {
			return lhs, nil
		}
		p.next()

		rhs, err := p.parseExpr(right)
		if err != nil {
			return nil, err
		}
		lhs = &BinaryOp{
			SpanVal: Span{lhs.Span().Start, rhs.Span().End},
			Op:      tok.Kind,
			Lhs:     lhs,
			Rhs:     rhs,
		}
	}
}

// parsePrimary parses an operand: identifier, pop, literal, parenthesized
// expression, or prefix operator application.
func (p *Parser) parsePrimary() (Expr, error) {
	switch tok := p.peek(); tok.Kind {
	case TokenIdent:
		p.next()
		return &Identifier{SpanVal: tok.Span, Name: p.text(tok)}, nil
	case TokenPop:
		p.next()
		return &PopExpr{SpanVal: tok.Span}, nil
	case TokenInt, TokenFloat, TokenString, TokenTrue, TokenFalse:
		return p.parseLiteral()
	case TokenLParen:
		return p.parseGrouping()
	case TokenMinus, TokenNot:
		return p.parsePrefix()
	case TokenEOF:
		return nil, p.eof("expression")
	default:
		return nil, p.unexpected("expression", p.next())
	}
}

// parseLiteral parses an int, float, string or boolean literal. Malformed
// numeric text is reported here rather than at evaluation time.
func (p *Parser) parseLiteral() (Expr, error) {
	tok := p.next()
	text := p.text(tok)

	switch tok.Kind {
	case TokenInt:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &ParseError{Kind: ErrInvalidNumber, Found: tok.Kind, Text: text, Span: tok.Span}
		}
		return &IntLiteral{SpanVal: tok.Span, Value: v}, nil
	case TokenFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &ParseError{Kind: ErrInvalidNumber, Found: tok.Kind, Text: text, Span: tok.Span}
		}
		return &FloatLiteral{SpanVal: tok.Span, Value: v}, nil
	case TokenString:
		if len(text) < 2 {
			return nil, p.unexpected("string literal", tok)
		}
		return &StringLiteral{SpanVal: tok.Span, Value: text[1 : len(text)-1]}, nil
	case TokenTrue:
		return &BoolLiteral{SpanVal: tok.Span, Value: true}, nil
	default:
		return &BoolLiteral{SpanVal: tok.Span, Value: false}, nil
	}
}

// parsePrefix parses - or not applied at its own binding power.
func (p *Parser) parsePrefix() (Expr, error) {
	tok := p.next()
	bp, _ := PrefixBindingPower(tok.Kind)

	operand, err := p.parseExpr(bp)
	if err != nil {
		return nil, err
	}
	return &UnaryOp{
		SpanVal: Span{tok.Span.Start, operand.Span().End},
		Op:      tok.Kind,
		Operand: operand,
	}, nil
}

// parseGrouping parses ( <expr> ).
func (p *Parser) parseGrouping() (Expr, error) {
	p.next() // consume (
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return expr, nil
}
