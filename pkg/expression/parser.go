package expression

import (
	"fmt"
	"strconv"
)

// maxNestingDepth bounds parser recursion so that deeply nested
// parenthesization cannot exhaust the stack. The length cap already bounds
// total work; this bounds depth specifically.
const maxNestingDepth = 64

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokBool
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex tokenizes a validated expression. The validator has already rejected
// quotes, semicolons, and assignment syntax, so any leftover unknown
// character is a plain syntax error.
func lex(expr string) ([]token, error) {
	runes := []rune(expr)
	n := len(runes)
	toks := make([]token, 0, n/2+1)

	for i := 0; i < n; {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9' || c == '.':
			start := i
			seenDot := false
			for i < n && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				if runes[i] == '.' {
					if seenDot {
						return nil, &ParseError{Pos: i, Message: "malformed number"}
					}
					seenDot = true
				}
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Message: fmt.Sprintf("malformed number %q", text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			if text == "true" || text == "false" {
				toks = append(toks, token{kind: tokBool, text: text, pos: start})
			} else {
				toks = append(toks, token{kind: tokIdent, text: text, pos: start})
			}

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++

		case c == '&' || c == '|':
			if i+1 >= n || runes[i+1] != c {
				return nil, &ParseError{Pos: i, Message: fmt.Sprintf("unexpected character %q", string(c))}
			}
			toks = append(toks, token{kind: tokOp, text: string([]rune{c, c}), pos: i})
			i += 2

		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < n && runes[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: string(c) + "=", pos: i})
				i += 2
			} else if c == '=' {
				return nil, &ParseError{Pos: i, Message: "unexpected character \"=\""}
			} else {
				toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
				i++
			}

		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%' || c == '^':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		default:
			return nil, &ParseError{Pos: i, Message: fmt.Sprintf("unexpected character %q", string(c))}
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}

// parser is a recursive-descent parser for the closed condition grammar.
// Precedence, loosest first: || > && > equality > relational > additive >
// multiplicative > power (right-associative) > unary > primary.
type parser struct {
	toks  []token
	pos   int
	depth int
}

// parse builds an expression tree from a validated string.
func parse(expr string) (Node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Pos: tok.pos, Message: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return node, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNestingDepth {
		return &SecurityError{Reason: "expression nesting too deep"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseOr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("||")
		if !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("&&")
		if !ok {
			return left, nil
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseEquality() (Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("==", "!=")
		if !ok {
			return left, nil
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseRelational() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("<", ">", "<=", ">=")
		if !ok {
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parsePower() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	op, ok := p.acceptOp("^")
	if !ok {
		return left, nil
	}
	// Right-associative: 2 ^ 3 ^ 2 parses as 2 ^ (3 ^ 2).
	right, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseUnary() (Node, error) {
	if op, ok := p.acceptOp("!", "-"); ok {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return NumberLit{Value: tok.num}, nil

	case tokBool:
		return BoolLit{Value: tok.text == "true"}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			p.next()
			return p.parseCallArgs(tok)
		}
		return Ident{Name: tok.text}, nil

	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &ParseError{Pos: closing.pos, Message: "expected closing parenthesis"}
		}
		return inner, nil

	case tokEOF:
		return nil, &ParseError{Pos: tok.pos, Message: "unexpected end of expression"}

	default:
		return nil, &ParseError{Pos: tok.pos, Message: fmt.Sprintf("unexpected %q", tok.text)}
	}
}

func (p *parser) parseCallArgs(name token) (Node, error) {
	// Defense in depth: the validator already rejected unauthorized call
	// syntax, but the parser refuses to build a Call node for a name
	// outside the whitelist regardless.
	if _, ok := funcWhitelist[name.text]; !ok {
		return nil, &SecurityError{Reason: fmt.Sprintf("call to unauthorized function %q", name.text)}
	}

	var args []Node
	if p.peek().kind == tokRParen {
		p.next()
		return Call{Name: name.text, Args: args}, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return Call{Name: name.text, Args: args}, nil
		default:
			return nil, &ParseError{Pos: tok.pos, Message: "expected ',' or ')' in argument list"}
		}
	}
}
