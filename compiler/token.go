package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds for the stacc lexer
// ---------------------------------------------------------------------------

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	// Special tokens
	TokenEOF TokenKind = iota
	TokenError
	TokenNewline
	TokenComment

	// Statement keywords
	TokenSet
	TokenPush
	TokenPop
	TokenPrint
	TokenCall
	TokenBegin
	TokenEnd

	// Literals
	TokenIdent
	TokenInt
	TokenFloat
	TokenString
	TokenTrue
	TokenFalse

	// Logical operators
	TokenAnd
	TokenOr
	TokenNot

	// Punctuation
	TokenColon
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen

	// Arithmetic and relational operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLess
	TokenGreater
	TokenLessEq
	TokenGreaterEq
	TokenNotEq
	TokenEq
)

var tokenNames = map[TokenKind]string{
	TokenEOF:       "EOF",
	TokenError:     "error",
	TokenNewline:   "newline",
	TokenComment:   "comment",
	TokenSet:       "set",
	TokenPush:      "push",
	TokenPop:       "pop",
	TokenPrint:     "print",
	TokenCall:      "call",
	TokenBegin:     "begin",
	TokenEnd:       "'end'",
	TokenIdent:     "identifier",
	TokenInt:       "integer literal",
	TokenFloat:     "float literal",
	TokenString:    "string literal",
	TokenTrue:      "true",
	TokenFalse:     "false",
	TokenAnd:       "and",
	TokenOr:        "or",
	TokenNot:       "not",
	TokenColon:     "colon",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenLess:      "<",
	TokenGreater:   ">",
	TokenLessEq:    "<=",
	TokenGreaterEq: ">=",
	TokenNotEq:     "!=",
	TokenEq:        "==",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(k))
}

// Symbol returns the operator text for operator kinds, as used in AST
// rendering. Other kinds fall back to String.
func (k TokenKind) Symbol() string {
	if k == TokenEnd {
		return "end"
	}
	return k.String()
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Text slices the span out of src. Out-of-range spans are clamped.
func (s Span) Text(src string) string {
	start, end := s.Start, s.End
	if start > len(src) {
		start = len(src)
	}
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		return ""
	}
	return src[start:end]
}

// Token is a single lexical token. Its text is recovered from the source
// through its span.
type Token struct {
	Kind TokenKind
	Span Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s (%d, %d)", t.Kind, t.Span.Start, t.Span.End)
}

// TokenSource is the stream the parser consumes. Next yields one token per
// call and must produce exactly one TokenEOF; after that ok is false.
type TokenSource interface {
	Next() (tok Token, ok bool)
}

// Reserved words mapped to their token kinds.
var keywords = map[string]TokenKind{
	"set":   TokenSet,
	"push":  TokenPush,
	"pop":   TokenPop,
	"print": TokenPrint,
	"call":  TokenCall,
	"begin": TokenBegin,
	"end":   TokenEnd,
	"true":  TokenTrue,
	"false": TokenFalse,
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
}

// LookupKeyword returns the keyword kind for word, or TokenIdent.
func LookupKeyword(word string) TokenKind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	return TokenIdent
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Keywords returns the reserved words in declaration order.
func Keywords() []string {
	return []string{"set", "push", "pop", "print", "call", "begin", "end", "true", "false", "and", "or", "not"}
}

// LineColumn returns the 0-based line and column of offset in src, found by
// scanning bytes and counting newlines.
func LineColumn(src string, offset int) (line, column int) {
	if offset > len(src) {
		offset = len(src)
	}
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			column = 0
			continue
		}
		column++
	}
	return line, column
}
