package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokSep           // newline or ;
	tokIdent
	tokNumber
	tokString
	tokAssign // =
	tokPipe   // |
	tokLParen
	tokRParen
	tokComma
	tokOp // == != > >= < <=
)

type token struct {
	kind tokenKind
	text string
	num  float64
	line int
}

type lexer struct {
	src  []rune
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '\n', c == ';':
			l.pos++
			if c == '\n' {
				l.line++
			}
			return token{kind: tokSep, line: l.line}, nil
		case c == ' ', c == '\t', c == '\r':
			l.pos++
		case c == '|':
			l.pos++
			return token{kind: tokPipe, text: "|", line: l.line}, nil
		case c == '(':
			l.pos++
			return token{kind: tokLParen, text: "(", line: l.line}, nil
		case c == ')':
			l.pos++
			return token{kind: tokRParen, text: ")", line: l.line}, nil
		case c == ',':
			l.pos++
			return token{kind: tokComma, text: ",", line: l.line}, nil
		case c == '=':
			if l.peekAt(1) == '=' {
				l.pos += 2
				return token{kind: tokOp, text: "==", line: l.line}, nil
			}
			l.pos++
			return token{kind: tokAssign, text: "=", line: l.line}, nil
		case c == '!':
			if l.peekAt(1) == '=' {
				l.pos += 2
				return token{kind: tokOp, text: "!=", line: l.line}, nil
			}
			return token{}, fmt.Errorf("line %d: unexpected %q", l.line, string(c))
		case c == '>', c == '<':
			op := string(c)
			l.pos++
			if l.peekAt(0) == '=' {
				op += "="
				l.pos++
			}
			return token{kind: tokOp, text: op, line: l.line}, nil
		case c == '"', c == '\'':
			return l.scanString(c)
		case unicode.IsDigit(c), c == '-' && unicode.IsDigit(l.peekAt(1)):
			return l.scanNumber()
		case unicode.IsLetter(c), c == '_':
			return l.scanIdent()
		default:
			return token{}, fmt.Errorf("line %d: unexpected %q", l.line, string(c))
		}
	}
	return token{kind: tokEOF, line: l.line}, nil
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) scanString(quote rune) (token, error) {
	start := l.line
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tokString, text: sb.String(), line: start}, nil
		}
		if c == '\n' {
			break
		}
		sb.WriteRune(c)
		l.pos++
	}
	return token{}, fmt.Errorf("line %d: unterminated string", start)
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("line %d: bad number %q", l.line, text)
	}
	return token{kind: tokNumber, text: text, num: n, line: l.line}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	return token{kind: tokIdent, text: string(l.src[start:l.pos]), line: l.line}, nil
}
