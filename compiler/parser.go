package compiler

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for stacc statements
// ---------------------------------------------------------------------------

// Parser turns a token stream into statements. It keeps the source text so
// identifier and literal text can be recovered from token spans.
type Parser struct {
	input  string
	tokens TokenSource

	peeked    Token
	hasPeeked bool
	done      bool // token source is exhausted
}

// NewParser creates a parser that lexes input with the default Lexer.
func NewParser(input string) *Parser {
	return NewParserFromTokens(input, NewLexer(input))
}

// NewParserFromTokens creates a parser over an arbitrary token source whose
// spans index into input.
func NewParserFromTokens(input string, tokens TokenSource) *Parser {
	return &Parser{input: input, tokens: tokens}
}

// Parse parses src into a sequence of statements.
func Parse(src string) ([]Stmt, error) {
	return NewParser(src).Parse()
}

// peek returns the lookahead token without consuming it. Once the source is
// exhausted it keeps returning an EOF token positioned at end of input.
func (p *Parser) peek() Token {
	if !p.hasPeeked {
		tok, ok := Token{}, false
		if !p.done {
			tok, ok = p.tokens.Next()
		}
		if !ok {
			p.done = true
			tok = Token{Kind: TokenEOF, Span: Span{len(p.input), len(p.input)}}
		}
		p.peeked = tok
		p.hasPeeked = true
	}
	return p.peeked
}

// at reports whether the lookahead token has the given kind.
func (p *Parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

// next consumes and returns the lookahead token.
func (p *Parser) next() Token {
	tok := p.peek()
	p.hasPeeked = false
	return tok
}

// text returns the source text of a token.
func (p *Parser) text(tok Token) string {
	return tok.Span.Text(p.input)
}

// expect consumes the next token and checks that it has the given kind.
func (p *Parser) expect(kind TokenKind) (Token, error) {
	tok := p.next()
	if tok.Kind != kind {
		return tok, p.unexpected(kind.String(), tok)
	}
	return tok, nil
}

// unexpected builds the error for a token that is not what was required.
func (p *Parser) unexpected(expected string, tok Token) *ParseError {
	return &ParseError{
		Kind:     ErrUnexpectedToken,
		Expected: expected,
		Found:    tok.Kind,
		Text:     p.text(tok),
		Span:     tok.Span,
	}
}

func (p *Parser) eof(expected string) *ParseError {
	tok := p.peek()
	return &ParseError{Kind: ErrUnexpectedEOF, Expected: expected, Found: TokenEOF, Span: tok.Span}
}

func (p *Parser) skipNewlines() {
	for p.at(TokenNewline) {
		p.next()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses statements until end of input. Reaching end of input between
// statements ends the program; running out of input inside a statement is an
// error.
func (p *Parser) Parse() ([]Stmt, error) {
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.at(TokenEOF) {
			return stmts, nil
		}
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

// ParseStatement parses a single newline-terminated statement. Leading
// newlines are skipped. At end of input it fails with ErrUnexpectedEOF.
func (p *Parser) ParseStatement() (Stmt, error) {
	switch tok := p.peek(); tok.Kind {
	case TokenSet:
		return p.parseSet()
	case TokenPush:
		return p.parsePush()
	case TokenPop:
		return p.parsePopStmt()
	case TokenPrint:
		return p.parsePrint()
	case TokenCall:
		return p.parseCall()
	case TokenBegin:
		return p.parseFunctionDef()
	case TokenNewline:
		p.skipNewlines()
		return p.ParseStatement()
	case TokenEOF:
		return nil, p.eof("statement")
	default:
		return nil, p.unexpected("statement", p.next())
	}
}

// atStatementStart reports whether the lookahead can begin a statement.
func (p *Parser) atStatementStart() bool {
	switch p.peek().Kind {
	case TokenSet, TokenPush, TokenPop, TokenPrint, TokenBegin, TokenCall:
		return true
	}
	return false
}

// ident consumes an identifier and returns its text.
func (p *Parser) ident(expected string) (string, error) {
	tok := p.next()
	if tok.Kind != TokenIdent {
		return "", p.unexpected(expected, tok)
	}
	return p.text(tok), nil
}

// terminate consumes the newline ending a statement and returns the end
// offset of the statement proper.
func (p *Parser) terminate(end int) (Span, error) {
	if _, err := p.expect(TokenNewline); err != nil {
		return Span{}, err
	}
	return Span{End: end}, nil
}

// parseSet parses: set <ident> <expr> NEWLINE
func (p *Parser) parseSet() (Stmt, error) {
	start := p.next().Span.Start
	name, err := p.ident("identifier")
	if err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	span, err := p.terminate(value.Span().End)
	if err != nil {
		return nil, err
	}
	span.Start = start
	return &Assign{SpanVal: span, Name: name, Value: value}, nil
}

// parsePush parses: push <expr> NEWLINE
func (p *Parser) parsePush() (Stmt, error) {
	start := p.next().Span.Start
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	span, err := p.terminate(value.Span().End)
	if err != nil {
		return nil, err
	}
	span.Start = start
	return &Push{SpanVal: span, Value: value}, nil
}

// parsePopStmt parses: pop NEWLINE
func (p *Parser) parsePopStmt() (Stmt, error) {
	tok := p.next()
	span, err := p.terminate(tok.Span.End)
	if err != nil {
		return nil, err
	}
	span.Start = tok.Span.Start
	return &PopStmt{SpanVal: span}, nil
}

// parsePrint parses: print <expr> NEWLINE
func (p *Parser) parsePrint() (Stmt, error) {
	start := p.next().Span.Start
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	span, err := p.terminate(value.Span().End)
	if err != nil {
		return nil, err
	}
	span.Start = start
	return &Print{SpanVal: span, Value: value}, nil
}

// parseCall parses: call <ident> NEWLINE
func (p *Parser) parseCall() (Stmt, error) {
	start := p.next().Span.Start
	nameTok := p.next()
	if nameTok.Kind != TokenIdent {
		return nil, p.unexpected("function identifier", nameTok)
	}
	span, err := p.terminate(nameTok.Span.End)
	if err != nil {
		return nil, err
	}
	span.Start = start
	return &Call{SpanVal: span, Name: p.text(nameTok)}, nil
}

// parseFunctionDef parses:
//
//	begin <ident> : <param>* NEWLINE <stmt>+ end [NEWLINE]
func (p *Parser) parseFunctionDef() (Stmt, error) {
	start := p.next().Span.Start
	name, err := p.ident("identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}

	var params []string
	for p.at(TokenIdent) {
		params = append(params, p.text(p.next()))
	}
	if _, err := p.expect(TokenNewline); err != nil {
		return nil, err
	}

	var body []Stmt
	for {
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)

		p.skipNewlines()
		if p.at(TokenEnd) {
			break
		}
		if !p.atStatementStart() {
			return nil, p.unexpected("statement or 'end'", p.next())
		}
	}
	end := p.next().Span.End

	// A newline after `end` belongs to the definition so that definitions
	// can nest inside bodies.
	if p.at(TokenNewline) {
		p.next()
	}

	return &FunctionDef{
		SpanVal: Span{start, end},
		Name:    name,
		Params:  params,
		Body:    body,
	}, nil
}
