package sim

import "unicode"

type tokenType int

const (
	tokEOF tokenType = iota
	tokIllegal
	tokIdent
	tokInt
	tokFloat
	tokStar     // *
	tokAmp      // &
	tokMinus    // -
	tokDot      // .
	tokArrow    // ->
	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
)

type exprToken struct {
	typ     tokenType
	literal string
	column  int
}

type exprLexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	column       int
}

func newExprLexer(input string) *exprLexer {
	l := &exprLexer{input: input}
	l.readChar()
	return l
}

func (l *exprLexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *exprLexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *exprLexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *exprLexer) NextToken() exprToken {
	l.skipWhitespace()

	tok := exprToken{column: l.column, literal: string(l.ch)}

	switch l.ch {
	case 0:
		tok.typ = tokEOF
		tok.literal = ""
		return tok
	case '*':
		tok.typ = tokStar
	case '&':
		tok.typ = tokAmp
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok.typ = tokArrow
			tok.literal = "->"
		} else {
			tok.typ = tokMinus
		}
	case '.':
		tok.typ = tokDot
	case '(':
		tok.typ = tokLParen
	case ')':
		tok.typ = tokRParen
	case '[':
		tok.typ = tokLBracket
	case ']':
		tok.typ = tokRBracket
	default:
		if isIdentStart(l.ch) {
			tok.literal = l.readIdentifier()
			tok.typ = tokIdent
			return tok
		}
		if isDigit(l.ch) {
			tok.literal, tok.typ = l.readNumber()
			return tok
		}
		tok.typ = tokIllegal
	}

	l.readChar()
	return tok
}

func (l *exprLexer) readIdentifier() string {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *exprLexer) readNumber() (string, tokenType) {
	start := l.position
	typ := tokInt
	for isDigit(l.ch) || l.ch == 'x' || l.ch == 'X' ||
		(typ == tokInt && isHexDigit(l.ch)) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = tokFloat
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position], typ
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
