package analysis

import "fmt"

const (
	maxStatements = 50
	maxStages     = 16
	maxArgs       = 8
)

type statement struct {
	name string
	expr expression
	line int
}

type expression interface{ exprNode() }

type numberExpr struct{ val float64 }
type stringExpr struct{ val string }
type identExpr struct{ name string }

// pipelineExpr is `source | stage(...) | stage(...)`.
type pipelineExpr struct {
	source expression
	stages []stageCall
}

type stageCall struct {
	name string
	args []stageArg
	line int
}

// stageArg is either a plain expression or a column comparison (filter only).
type stageArg struct {
	cmp  *comparison
	expr expression
}

type comparison struct {
	col string
	op  string
	lit expression // numberExpr or stringExpr
}

func (numberExpr) exprNode()   {}
func (stringExpr) exprNode()   {}
func (identExpr) exprNode()    {}
func (pipelineExpr) exprNode() {}

type parser struct {
	lex *lexer
	tok token
}

func parse(src string) ([]statement, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var stmts []statement
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokSep {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if len(stmts) > maxStatements {
			return nil, fmt.Errorf("too many statements (max %d)", maxStatements)
		}
		if p.tok.kind != tokSep && p.tok.kind != tokEOF {
			return nil, fmt.Errorf("line %d: expected end of statement, got %q", p.tok.line, p.tok.text)
		}
	}
	return stmts, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseStatement() (statement, error) {
	if p.tok.kind != tokIdent {
		return statement{}, fmt.Errorf("line %d: expected assignment, got %q", p.tok.line, p.tok.text)
	}
	name := p.tok.text
	line := p.tok.line
	if err := p.advance(); err != nil {
		return statement{}, err
	}
	if p.tok.kind != tokAssign {
		return statement{}, fmt.Errorf("line %d: expected '=' after %q", line, name)
	}
	if err := p.advance(); err != nil {
		return statement{}, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return statement{}, err
	}
	return statement{name: name, expr: expr, line: line}, nil
}

func (p *parser) parseExpression() (expression, error) {
	source, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokPipe {
		return source, nil
	}

	pipe := pipelineExpr{source: source}
	for p.tok.kind == tokPipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		stage, err := p.parseStage()
		if err != nil {
			return nil, err
		}
		pipe.stages = append(pipe.stages, stage)
		if len(pipe.stages) > maxStages {
			return nil, fmt.Errorf("too many pipeline stages (max %d)", maxStages)
		}
	}
	return pipe, nil
}

func (p *parser) parsePrimary() (expression, error) {
	switch p.tok.kind {
	case tokNumber:
		e := numberExpr{val: p.tok.num}
		return e, p.advance()
	case tokString:
		e := stringExpr{val: p.tok.text}
		return e, p.advance()
	case tokIdent:
		e := identExpr{name: p.tok.text}
		return e, p.advance()
	default:
		return nil, fmt.Errorf("line %d: expected value, got %q", p.tok.line, p.tok.text)
	}
}

func (p *parser) parseStage() (stageCall, error) {
	if p.tok.kind != tokIdent {
		return stageCall{}, fmt.Errorf("line %d: expected stage name, got %q", p.tok.line, p.tok.text)
	}
	call := stageCall{name: p.tok.text, line: p.tok.line}
	if err := p.advance(); err != nil {
		return stageCall{}, err
	}
	if p.tok.kind != tokLParen {
		return stageCall{}, fmt.Errorf("line %d: expected '(' after %s", call.line, call.name)
	}
	if err := p.advance(); err != nil {
		return stageCall{}, err
	}

	for p.tok.kind != tokRParen {
		arg, err := p.parseStageArg()
		if err != nil {
			return stageCall{}, err
		}
		call.args = append(call.args, arg)
		if len(call.args) > maxArgs {
			return stageCall{}, fmt.Errorf("line %d: too many arguments to %s", call.line, call.name)
		}
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return stageCall{}, err
			}
			continue
		}
		if p.tok.kind != tokRParen {
			return stageCall{}, fmt.Errorf("line %d: expected ',' or ')' in %s(...)", call.line, call.name)
		}
	}
	return call, p.advance() // consume ')'
}

func (p *parser) parseStageArg() (stageArg, error) {
	if p.tok.kind == tokIdent {
		name := p.tok.text
		if err := p.advance(); err != nil {
			return stageArg{}, err
		}
		if p.tok.kind != tokOp {
			return stageArg{expr: identExpr{name: name}}, nil
		}
		op := p.tok.text
		if err := p.advance(); err != nil {
			return stageArg{}, err
		}
		lit, err := p.parsePrimary()
		if err != nil {
			return stageArg{}, err
		}
		switch lit.(type) {
		case numberExpr, stringExpr:
		default:
			return stageArg{}, fmt.Errorf("comparison against %v is not supported", lit)
		}
		return stageArg{cmp: &comparison{col: name, op: op, lit: lit}}, nil
	}
	expr, err := p.parsePrimary()
	if err != nil {
		return stageArg{}, err
	}
	return stageArg{expr: expr}, nil
}
