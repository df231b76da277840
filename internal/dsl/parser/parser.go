// Package parser implements a recursive-descent, Pratt-style parser for the
// pipeline definition language: it turns a token stream into the untyped
// builder tree defined by internal/dsl/ast. No column, function, aggregation
// or lookup-source name is resolved here — that happens in the Resolve
// phase, when each builder's Build method is called against a threaded
// schema and a BuildContext.
package parser

import (
	"fmt"
	"strconv"

	"github.com/correlator-io/featurepipe/internal/dsl/ast"
	"github.com/correlator-io/featurepipe/internal/dsl/lexer"
	"github.com/correlator-io/featurepipe/internal/dsl/token"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

const (
	_ int = iota
	lowest
	or
	and
	compare
	sum
	product
	prefix
	call
	index
)

var precedences = map[token.Type]int{
	token.OR: or, token.AND: and,
	token.EQ: compare, token.NEQ: compare, token.LT: compare, token.GT: compare,
	token.LTE: compare, token.GTE: compare,
	token.PLUS: sum, token.MINUS: sum,
	token.ASTERISK: product, token.SLASH: product, token.PERCENT: product,
	token.LBRACKET: index, token.DOT: index,
}

type prefixParseFn func() (ast.ExprNode, error)
type infixParseFn func(ast.ExprNode) (ast.ExprNode, error)

// Parser consumes a token stream two tokens at a time (current + peek).
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	errs []string

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

// New constructs a Parser ready to parse pipeline declarations from src.
func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}

	p.prefixFns = map[token.Type]prefixParseFn{
		token.IDENT:    p.parseIdentOrCall,
		token.INT:      p.parseIntLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.NULL:     p.parseNullLiteral,
		token.TRUE:     p.parseBoolLiteral,
		token.FALSE:    p.parseBoolLiteral,
		token.MINUS:    p.parsePrefix,
		token.PLUS:     p.parsePrefix,
		token.NOT:      p.parsePrefix,
		token.BANG:     p.parsePrefix,
		token.LPAREN:   p.parseGrouped,
		token.LBRACKET: p.parseArrayLiteral,
	}

	p.infixFns = map[token.Type]infixParseFn{
		token.PLUS: p.parseInfix, token.MINUS: p.parseInfix, token.ASTERISK: p.parseInfix,
		token.SLASH: p.parseInfix, token.PERCENT: p.parseInfix,
		token.EQ: p.parseInfix, token.NEQ: p.parseInfix, token.LT: p.parseInfix,
		token.GT: p.parseInfix, token.LTE: p.parseInfix, token.GTE: p.parseInfix,
		token.AND: p.parseInfix, token.OR: p.parseInfix,
		token.LBRACKET: p.parseIndexAccess,
		token.DOT:      p.parseFieldAccess,
	}

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) error {
	if !p.peekIs(t) {
		return p.syntaxErrorf("expected %s, got %s (%q)", t, p.peek.Type, p.peek.Literal)
	}

	p.nextToken()

	return nil
}

func (p *Parser) syntaxErrorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	return piperr.New(piperr.SyntaxError, msg+" at line "+itoa(p.cur.Line)+", column "+itoa(p.cur.Column))
}

// ParsePipelines parses every `name(input_schema) | transformation | ... ;`
// declaration in the source text, in order.
func (p *Parser) ParsePipelines() ([]ast.PipelineNode, error) {
	var out []ast.PipelineNode

	for !p.curIs(token.EOF) {
		pn, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}

		out = append(out, pn)

		if p.curIs(token.SEMICOLON) {
			p.nextToken()
		}
	}

	return out, nil
}

func (p *Parser) parsePipeline() (ast.PipelineNode, error) {
	if !p.curIs(token.IDENT) {
		return ast.PipelineNode{}, p.syntaxErrorf("expected pipeline name, got %s", p.cur.Type)
	}

	name := p.cur.Literal

	if err := p.expect(token.LPAREN); err != nil {
		return ast.PipelineNode{}, err
	}

	schema, err := p.parseInputSchema()
	if err != nil {
		return ast.PipelineNode{}, err
	}

	var transforms []ast.TransformNode

	for p.peekIs(token.PIPE) {
		p.nextToken() // consume '|'
		p.nextToken() // move to transformation name

		tn, err := p.parseTransformation()
		if err != nil {
			return ast.PipelineNode{}, err
		}

		transforms = append(transforms, tn)
	}

	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}

	p.nextToken()

	return ast.PipelineNode{Name: name, InputSchema: schema, Transforms: transforms}, nil
}

func (p *Parser) parseInputSchema() ([]ast.ColumnDecl, error) {
	var cols []ast.ColumnDecl

	if p.peekIs(token.RPAREN) {
		p.nextToken()

		return cols, nil
	}

	for {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		name := p.cur.Literal

		if err := p.expect(token.COLON); err != nil {
			return nil, err
		}

		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		cols = append(cols, ast.ColumnDecl{Name: name, Type: p.cur.Literal})

		if p.peekIs(token.COMMA) {
			p.nextToken()

			continue
		}

		break
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return cols, nil
}

// parseExpression implements the core Pratt loop: parse a prefix expression,
// then keep absorbing infix operators whose precedence exceeds minPrec.
func (p *Parser) parseExpression(minPrec int) (ast.ExprNode, error) {
	prefixFn, ok := p.prefixFns[p.cur.Type]
	if !ok {
		return nil, p.syntaxErrorf("unexpected token in expression: %s (%q)", p.cur.Type, p.cur.Literal)
	}

	left, err := prefixFn()
	if err != nil {
		return nil, err
	}

	for !p.peekIs(token.SEMICOLON) && minPrec < p.peekPrecedence() {
		infixFn, ok := p.infixFns[p.peek.Type]
		if !ok {
			return left, nil
		}

		p.nextToken()

		left, err = infixFn(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}

	return lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}

	return lowest
}

func (p *Parser) parseIdentOrCall() (ast.ExprNode, error) {
	name := p.cur.Literal

	if !p.peekIs(token.LPAREN) {
		return ast.ColumnNode{Name: name}, nil
	}

	p.nextToken() // consume '('

	args, err := p.parseExprList(token.RPAREN)
	if err != nil {
		return nil, err
	}

	return ast.CallNode{Name: name, Args: args}, nil
}

// parseExprList parses a comma-separated list of expressions up to and
// including the closing token (assumed already positioned on the opening
// delimiter).
func (p *Parser) parseExprList(end token.Type) ([]ast.ExprNode, error) {
	var args []ast.ExprNode

	if p.peekIs(end) {
		p.nextToken()

		return args, nil
	}

	p.nextToken()

	for {
		e, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}

		args = append(args, e)

		if p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()

			continue
		}

		break
	}

	if err := p.expect(end); err != nil {
		return nil, err
	}

	return args, nil
}

func (p *Parser) parseIntLiteral() (ast.ExprNode, error) {
	v, err := ast.ParseIntLiteral(p.cur.Literal)
	if err != nil {
		return nil, err
	}

	return ast.LiteralNode{Value: v}, nil
}

func (p *Parser) parseFloatLiteral() (ast.ExprNode, error) {
	v, err := ast.ParseFloatLiteral(p.cur.Literal)
	if err != nil {
		return nil, err
	}

	return ast.LiteralNode{Value: v}, nil
}

func (p *Parser) parseStringLiteral() (ast.ExprNode, error) {
	return ast.LiteralNode{Value: value.NewString(p.cur.Literal)}, nil
}

func (p *Parser) parseNullLiteral() (ast.ExprNode, error) {
	return ast.LiteralNode{Value: value.Null}, nil
}

func (p *Parser) parseBoolLiteral() (ast.ExprNode, error) {
	return ast.LiteralNode{Value: value.NewBool(p.curIs(token.TRUE))}, nil
}

func (p *Parser) parsePrefix() (ast.ExprNode, error) {
	op := p.cur.Type

	p.nextToken()

	operand, err := p.parseExpression(prefix)
	if err != nil {
		return nil, err
	}

	return ast.UnaryNode{Op: op, Operand: operand}, nil
}

func (p *Parser) parseGrouped() (ast.ExprNode, error) {
	p.nextToken()

	e, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return e, nil
}

func (p *Parser) parseArrayLiteral() (ast.ExprNode, error) {
	elements, err := p.parseExprList(token.RBRACKET)
	if err != nil {
		return nil, err
	}

	return ast.ArrayLiteralNode{Elements: elements}, nil
}

func (p *Parser) parseInfix(left ast.ExprNode) (ast.ExprNode, error) {
	op := p.cur.Type
	prec := p.curPrecedence()

	p.nextToken()

	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}

	return ast.BinaryNode{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseIndexAccess(left ast.ExprNode) (ast.ExprNode, error) {
	p.nextToken()

	idx, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	return ast.IndexNode{Array: left, Index: idx}, nil
}

func (p *Parser) parseFieldAccess(left ast.ExprNode) (ast.ExprNode, error) {
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}

	return ast.FieldNode{Object: left, Field: p.cur.Literal}, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
