package compiler

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for stacc source text
// ---------------------------------------------------------------------------

// Lexer tokenizes stacc source code. It implements TokenSource.
type Lexer struct {
	input        string
	pos          int  // current byte offset
	keepComments bool // emit TokenComment instead of skipping
	sawNewline   bool // last emitted token was a newline (or nothing yet)
	emitted      bool // at least one significant token was emitted
	eof          bool // TokenEOF has been delivered
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, sawNewline: true}
}

// KeepComments makes the lexer emit comment tokens instead of skipping them.
// The parser never sees comments; this is for tooling such as `stacc tokens`.
func (l *Lexer) KeepComments() *Lexer {
	l.keepComments = true
	return l
}

// Tokenize collects every token of src, including the final TokenEOF.
func Tokenize(src string) []Token {
	return collect(NewLexer(src))
}

// TokenizeWithComments is Tokenize with comment tokens retained.
func TokenizeWithComments(src string) []Token {
	return collect(NewLexer(src).KeepComments())
}

func collect(l *Lexer) []Token {
	var toks []Token
	for {
		tok, ok := l.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

// Next returns the next token. After TokenEOF has been returned once, ok is
// false.
func (l *Lexer) Next() (Token, bool) {
	if l.eof {
		return Token{}, false
	}

	l.skipBlanks()

	start := l.pos
	if l.pos >= len(l.input) {
		// Terminate a trailing statement that has no newline.
		if l.emitted && !l.sawNewline {
			l.sawNewline = true
			return Token{Kind: TokenNewline, Span: Span{start, start}}, true
		}
		l.eof = true
		return Token{Kind: TokenEOF, Span: Span{start, start}}, true
	}

	ch := l.input[l.pos]
	switch {
	case ch == '\n':
		return l.emit(l.readNewlines(start)), true
	case ch == '{':
		tok := l.readComment(start)
		if tok.Kind == TokenComment && !l.keepComments {
			return l.Next()
		}
		return l.emit(tok), true
	case ch == '"':
		return l.emit(l.readString(start)), true
	case isDigit(ch) || (ch == '.' && l.peekIsDigit(1)):
		return l.emit(l.readNumber(start)), true
	case isIdentStart(ch):
		return l.emit(l.readIdentifier(start)), true
	}

	l.pos++
	kind := TokenError
	switch ch {
	case ':':
		kind = TokenColon
	case '[':
		kind = TokenLBracket
	case ']':
		kind = TokenRBracket
	case '(':
		kind = TokenLParen
	case ')':
		kind = TokenRParen
	case '+':
		kind = TokenPlus
	case '-':
		kind = TokenMinus
	case '*':
		kind = TokenStar
	case '/':
		kind = TokenSlash
	case '<':
		kind = l.ifNext('=', TokenLessEq, TokenLess)
	case '>':
		kind = l.ifNext('=', TokenGreaterEq, TokenGreater)
	case '=':
		kind = l.ifNext('=', TokenEq, TokenError)
	case '!':
		kind = l.ifNext('=', TokenNotEq, TokenError)
	}
	return l.emit(Token{Kind: kind, Span: Span{start, l.pos}}), true
}

// emit records bookkeeping for the synthetic trailing newline.
func (l *Lexer) emit(tok Token) Token {
	if tok.Kind == TokenComment {
		return tok
	}
	l.emitted = true
	l.sawNewline = tok.Kind == TokenNewline
	return tok
}

// skipBlanks skips spaces, tabs, form feeds and carriage returns.
func (l *Lexer) skipBlanks() {
	for l.pos < len(l.input) && isBlank(l.input[l.pos]) {
		l.pos++
	}
}

// readNewlines consumes a run of newlines, collapsing blank lines and any
// comments or whitespace between them into a single token.
func (l *Lexer) readNewlines(start int) Token {
	end := start
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; {
		case ch == '\n':
			l.pos++
			end = l.pos
		case isBlank(ch):
			l.pos++
		case ch == '{' && !l.keepComments:
			save := l.pos
			if tok := l.readComment(l.pos); tok.Kind == TokenError {
				l.pos = save
				return Token{Kind: TokenNewline, Span: Span{start, end}}
			}
		default:
			return Token{Kind: TokenNewline, Span: Span{start, end}}
		}
	}
	return Token{Kind: TokenNewline, Span: Span{start, end}}
}

// readComment reads a {...} comment. Comments do not nest.
func (l *Lexer) readComment(start int) Token {
	l.pos++ // consume {
	for l.pos < len(l.input) && l.input[l.pos] != '}' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Kind: TokenError, Span: Span{start, l.pos}}
	}
	l.pos++ // consume }
	return Token{Kind: TokenComment, Span: Span{start, l.pos}}
}

// readString reads a double-quoted string. Only \" and \\ are valid
// escapes; the text is kept raw.
func (l *Lexer) readString(start int) Token {
	l.pos++ // consume opening quote
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '"':
			l.pos++
			return Token{Kind: TokenString, Span: Span{start, l.pos}}
		case '\\':
			if l.pos+1 < len(l.input) && (l.input[l.pos+1] == '"' || l.input[l.pos+1] == '\\') {
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: TokenError, Span: Span{start, l.pos}}
		default:
			l.pos++
		}
	}
	return Token{Kind: TokenError, Span: Span{start, l.pos}}
}

// readNumber reads an integer or float literal:
// (\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?
func (l *Lexer) readNumber(start int) Token {
	kind := TokenInt
	l.readDigits()
	if l.pos < len(l.input) && l.input[l.pos] == '.' && l.peekIsDigit(1) {
		kind = TokenFloat
		l.pos++
		l.readDigits()
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		off := 1
		if l.pos+1 < len(l.input) && (l.input[l.pos+1] == '+' || l.input[l.pos+1] == '-') {
			off = 2
		}
		if l.peekIsDigit(off) {
			kind = TokenFloat
			l.pos += off
			l.readDigits()
		}
	}
	return Token{Kind: kind, Span: Span{start, l.pos}}
}

func (l *Lexer) readDigits() {
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(start int) Token {
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: LookupKeyword(l.input[start:l.pos]), Span: Span{start, l.pos}}
}

// ifNext consumes want and returns yes if it is the next byte, else no.
func (l *Lexer) ifNext(want byte, yes, no TokenKind) TokenKind {
	if l.pos < len(l.input) && l.input[l.pos] == want {
		l.pos++
		return yes
	}
	return no
}

func (l *Lexer) peekIsDigit(off int) bool {
	return l.pos+off < len(l.input) && isDigit(l.input[l.pos+off])
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isBlank(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\f' || ch == '\r' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
