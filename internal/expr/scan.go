package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLT
	tokLE
	tokGT
	tokGE
	tokEQ
	tokNE
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// scan tokenizes an expression. The and/or/not keywords are matched
// case-insensitively since condition-tree link words arrive upper-cased.
func scan(input string) ([]token, error) {
	var toks []token
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case c == '/':
			toks = append(toks, token{tokSlash, "/", i})
			i++
		case c == '<':
			if i+1 < n && input[i+1] == '=' {
				toks = append(toks, token{tokLE, "<=", i})
				i += 2
			} else {
				toks = append(toks, token{tokLT, "<", i})
				i++
			}
		case c == '>':
			if i+1 < n && input[i+1] == '=' {
				toks = append(toks, token{tokGE, ">=", i})
				i += 2
			} else {
				toks = append(toks, token{tokGT, ">", i})
				i++
			}
		case c == '=':
			if i+1 < n && input[i+1] == '=' {
				toks = append(toks, token{tokEQ, "==", i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '=' at %d (use '==')", i)
			}
		case c == '!':
			if i+1 < n && input[i+1] == '=' {
				toks = append(toks, token{tokNE, "!=", i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '!' at %d (use '!=')", i)
			}
		case c >= '0' && c <= '9' || c == '.':
			start := i
			seenDot := false
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				if input[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("malformed number at %d", start)
					}
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{tokNumber, input[start:i], start})
		case isIdentStart(rune(c)):
			start := i
			for i < n && isIdentPart(rune(input[i])) {
				i++
			}
			word := input[start:i]
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, token{tokAnd, word, start})
			case "or":
				toks = append(toks, token{tokOr, word, start})
			case "not":
				toks = append(toks, token{tokNot, word, start})
			default:
				toks = append(toks, token{tokIdent, word, start})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	toks = append(toks, token{tokEOF, "", n})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
