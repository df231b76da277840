package parser

import (
	"strconv"

	"github.com/correlator-io/featurepipe/internal/dsl/ast"
	"github.com/correlator-io/featurepipe/internal/dsl/token"
)

var joinKindTokens = map[token.Type]bool{
	token.LEFT_OUTER: true, token.INNER: true, token.LEFT_SEMI: true,
	token.LEFT_ANTI: true, token.CROSS: true,
}

// parseTransformation parses one `Name(args...)` pipe stage. p.cur is
// positioned on the transformation's name identifier on entry.
func (p *Parser) parseTransformation() (ast.TransformNode, error) {
	name := p.cur.Literal

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	switch name {
	case "Project":
		return p.parseProject()
	case "ProjectRename":
		return p.parseProjectRename()
	case "ProjectKeep":
		return p.parseNameList(func(names []string) ast.TransformNode { return ast.ProjectKeepNode{Names: names} })
	case "ProjectRemove":
		return p.parseNameList(func(names []string) ast.TransformNode { return ast.ProjectRemoveNode{Names: names} })
	case "Where":
		return p.parseWhere()
	case "Take":
		return p.parseTake()
	case "Top":
		return p.parseTop()
	case "Explode":
		return p.parseExplode()
	case "Distinct":
		return p.parseDistinct()
	case "Summarize":
		return p.parseSummarize()
	case "Lookup":
		return p.parseLookup()
	case "IgnoreError":
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}

		return ast.IgnoreErrorNode{}, nil
	default:
		return nil, p.syntaxErrorf("unknown transformation: %s", name)
	}
}

func (p *Parser) parseProject() (ast.TransformNode, error) {
	var fields []ast.ProjectFieldNode

	if p.peekIs(token.RPAREN) {
		p.nextToken()

		return ast.ProjectNode{Fields: fields}, nil
	}

	for {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		fname := p.cur.Literal

		if err := p.expect(token.COLON); err != nil {
			return nil, err
		}

		p.nextToken()

		e, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}

		fields = append(fields, ast.ProjectFieldNode{Name: fname, Expr: e})

		if p.peekIs(token.COMMA) {
			p.nextToken()
			continue
		}

		break
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.ProjectNode{Fields: fields}, nil
}

func (p *Parser) parseProjectRename() (ast.TransformNode, error) {
	renames := make(map[string]string)

	if p.peekIs(token.RPAREN) {
		p.nextToken()

		return ast.ProjectRenameNode{Renames: renames}, nil
	}

	for {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		from := p.cur.Literal

		if err := p.expect(token.COLON); err != nil {
			return nil, err
		}

		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		renames[from] = p.cur.Literal

		if p.peekIs(token.COMMA) {
			p.nextToken()
			continue
		}

		break
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.ProjectRenameNode{Renames: renames}, nil
}

// parseIdentList parses a bare comma-separated list of identifiers up to
// and including the closing token (cur must be positioned just before the
// first identifier, i.e. on the opening delimiter).
func (p *Parser) parseIdentList(end token.Type) ([]string, error) {
	var names []string

	if p.peekIs(end) {
		p.nextToken()

		return names, nil
	}

	for {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}

		names = append(names, p.cur.Literal)

		if p.peekIs(token.COMMA) {
			p.nextToken()
			continue
		}

		break
	}

	if err := p.expect(end); err != nil {
		return nil, err
	}

	return names, nil
}

func (p *Parser) parseNameList(build func([]string) ast.TransformNode) (ast.TransformNode, error) {
	names, err := p.parseIdentList(token.RPAREN)
	if err != nil {
		return nil, err
	}

	return build(names), nil
}

func (p *Parser) parseWhere() (ast.TransformNode, error) {
	p.nextToken()

	e, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.WhereNode{Predicate: e}, nil
}

func (p *Parser) parseIntArg() (int, error) {
	if err := p.expect(token.INT); err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(p.cur.Literal)
	if err != nil {
		return 0, p.syntaxErrorf("invalid integer literal: %s", p.cur.Literal)
	}

	return n, nil
}

func (p *Parser) parseTake() (ast.TransformNode, error) {
	n, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.TakeNode{N: n}, nil
}

func (p *Parser) parseTop() (ast.TransformNode, error) {
	n, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.COMMA); err != nil {
		return nil, err
	}

	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}

	var keys []ast.SortKeyNode

	if !p.peekIs(token.RBRACKET) {
		for {
			p.nextToken()

			e, err := p.parseExpression(lowest)
			if err != nil {
				return nil, err
			}

			key := ast.SortKeyNode{Expr: e, Order: token.ASC, NullPos: token.LAST}

			if p.peekIs(token.ASC) || p.peekIs(token.DESC) {
				p.nextToken()
				key.Order = p.cur.Type
			}

			if p.peekIs(token.FIRST) || p.peekIs(token.LAST) {
				p.nextToken()
				key.NullPos = p.cur.Type
			}

			keys = append(keys, key)

			if p.peekIs(token.COMMA) {
				p.nextToken()
				continue
			}

			break
		}
	}

	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.TopNode{N: n, Keys: keys}, nil
}

func (p *Parser) parseExplode() (ast.TransformNode, error) {
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}

	col := p.cur.Literal

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.ExplodeNode{Column: col}, nil
}

func (p *Parser) parseDistinct() (ast.TransformNode, error) {
	exprs, err := p.parseExprList(token.RPAREN)
	if err != nil {
		return nil, err
	}

	return ast.DistinctNode{Keys: exprs}, nil
}

func (p *Parser) parseSummarize() (ast.TransformNode, error) {
	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}

	var groupBy []ast.GroupByNode

	if !p.peekIs(token.RBRACKET) {
		for {
			if err := p.expect(token.IDENT); err != nil {
				return nil, err
			}

			gname := p.cur.Literal

			if err := p.expect(token.COLON); err != nil {
				return nil, err
			}

			p.nextToken()

			e, err := p.parseExpression(lowest)
			if err != nil {
				return nil, err
			}

			groupBy = append(groupBy, ast.GroupByNode{Name: gname, Expr: e})

			if p.peekIs(token.COMMA) {
				p.nextToken()
				continue
			}

			break
		}
	}

	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	if err := p.expect(token.COMMA); err != nil {
		return nil, err
	}

	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}

	var aggs []ast.AggNode

	if !p.peekIs(token.RBRACKET) {
		for {
			if err := p.expect(token.IDENT); err != nil {
				return nil, err
			}

			aname := p.cur.Literal

			if err := p.expect(token.COLON); err != nil {
				return nil, err
			}

			if err := p.expect(token.IDENT); err != nil {
				return nil, err
			}

			aggName := p.cur.Literal

			if err := p.expect(token.LPAREN); err != nil {
				return nil, err
			}

			args, err := p.parseExprList(token.RPAREN)
			if err != nil {
				return nil, err
			}

			aggs = append(aggs, ast.AggNode{Name: aname, AggName: aggName, Args: args})

			if p.peekIs(token.COMMA) {
				p.nextToken()
				continue
			}

			break
		}
	}

	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.SummarizeNode{GroupBy: groupBy, Aggs: aggs}, nil
}

func (p *Parser) parseLookup() (ast.TransformNode, error) {
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}

	sourceName := p.cur.Literal

	if err := p.expect(token.COMMA); err != nil {
		return nil, err
	}

	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}

	keys, err := p.parseExprListInsideBrackets()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.COMMA); err != nil {
		return nil, err
	}

	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}

	fields, err := p.parseIdentListInsideBrackets()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.COMMA); err != nil {
		return nil, err
	}

	p.nextToken()

	if !joinKindTokens[p.cur.Type] {
		return nil, p.syntaxErrorf("expected a join kind, got %s", p.cur.Type)
	}

	join := p.cur.Type

	if p.peekIs(token.COMMA) {
		p.nextToken()

		if err := p.expect(token.LBRACKET); err != nil {
			return nil, err
		}

		as, err := p.parseIdentListInsideBrackets()
		if err != nil {
			return nil, err
		}

		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}

		return ast.LookupNode{SourceName: sourceName, Keys: keys, Fields: fields, As: as, Join: join}, nil
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	return ast.LookupNode{SourceName: sourceName, Keys: keys, Fields: fields, Join: join}, nil
}

// parseExprListInsideBrackets parses elements of a `[...]` list already
// positioned with cur on the opening '['.
func (p *Parser) parseExprListInsideBrackets() ([]ast.ExprNode, error) {
	var out []ast.ExprNode

	if p.peekIs(token.RBRACKET) {
		p.nextToken()

		return out, nil
	}

	p.nextToken()

	for {
		e, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}

		out = append(out, e)

		if p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}

		break
	}

	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	return out, nil
}

func (p *Parser) parseIdentListInsideBrackets() ([]string, error) {
	return p.parseIdentList(token.RBRACKET)
}

