package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taules/taules/internal/domain/query"
)

// ParseError reports where and why a client expression could not be parsed.
type ParseError struct {
	Input   string
	Pos     int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("cannot parse [%s] at position [%d]: %s", e.Input, e.Pos, e.Message)
}

// ParseFilter parses a $filter expression into a Condition. The grammar is
// the comparison subset shared by both dialects; only the substring
// function differs: substringof('x', field) in the old generation,
// contains(field, 'x') in the new one.
func ParseFilter(dialect Dialect, input string) (query.Condition, error) {
	p := &filterParser{
		lexer: lexer{input: input, dialect: dialect},
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	condition, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.kind != tokenEOF {
		return nil, p.errorf("unexpected [%s]", p.current.text)
	}
	return condition, nil
}

// ParseOrderBy parses a $orderby expression: a comma list of fields, each
// optionally followed by asc or desc.
func ParseOrderBy(input string) ([]query.Sort, error) {
	var clauses []query.Sort
	for _, clause := range strings.Split(input, ",") {
		parts := strings.Fields(clause)
		switch len(parts) {
		case 1:
			clauses = append(clauses, query.Sort{Field: parts[0]})
		case 2:
			switch strings.ToLower(parts[1]) {
			case "asc":
				clauses = append(clauses, query.Sort{Field: parts[0]})
			case "desc":
				clauses = append(clauses, query.Sort{Field: parts[0], Descending: true})
			default:
				return nil, ParseError{Input: input, Message: fmt.Sprintf("direction must be [asc] or [desc], got [%s]", parts[1])}
			}
		default:
			return nil, ParseError{Input: input, Message: fmt.Sprintf("bad orderby clause [%s]", strings.TrimSpace(clause))}
		}
	}
	return clauses, nil
}

var comparisonOps = map[string]query.Operator{
	"eq": query.Equals,
	"ne": query.NotEquals,
	"gt": query.GreaterThan,
	"ge": query.GreaterThanOrEqual,
	"lt": query.LessThan,
	"le": query.LessThanOrEqual,
}

type filterParser struct {
	lexer   lexer
	current token
}

func (p *filterParser) advance() error {
	next, err := p.lexer.next()
	if err != nil {
		return err
	}
	p.current = next
	return nil
}

func (p *filterParser) errorf(format string, args ...interface{}) error {
	return ParseError{Input: p.lexer.input, Pos: p.current.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *filterParser) parseOr() (query.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	conditions := []query.Condition{left}
	for p.current.kind == tokenIdent && p.current.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, right)
	}
	if len(conditions) == 1 {
		return left, nil
	}
	return query.Or(conditions...), nil
}

func (p *filterParser) parseAnd() (query.Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	conditions := []query.Condition{left}
	for p.current.kind == tokenIdent && p.current.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, right)
	}
	if len(conditions) == 1 {
		return left, nil
	}
	return query.And(conditions...), nil
}

func (p *filterParser) parseUnary() (query.Condition, error) {
	if p.current.kind == tokenIdent && p.current.text == "not" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return query.Not(inner), nil
	}
	if p.current.kind == tokenLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.kind != tokenRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parsePrimary()
}

func (p *filterParser) parsePrimary() (query.Condition, error) {
	if p.current.kind != tokenIdent {
		return nil, p.errorf("expected a field or function, got [%s]", p.current.text)
	}
	name := p.current.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.current.kind == tokenLParen {
		return p.parseFunction(name)
	}

	// plain comparison: field op literal
	if p.current.kind != tokenIdent {
		return nil, p.errorf("expected a comparison operator after [%s]", name)
	}
	op, known := comparisonOps[p.current.text]
	if !known {
		return nil, p.errorf("unknown operator [%s]", p.current.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return query.Where(name, op, value), nil
}

func (p *filterParser) parseFunction(name string) (query.Condition, error) {
	// consume the opening parenthesis
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch {
	case name == "startswith" || name == "endswith":
		field, text, err := p.parseFieldTextArgs()
		if err != nil {
			return nil, err
		}
		if name == "startswith" {
			return query.StartsWith(field, text), nil
		}
		return query.EndsWith(field, text), nil
	case name == "contains" && p.lexer.dialect == DialectV3:
		field, text, err := p.parseFieldTextArgs()
		if err != nil {
			return nil, err
		}
		return query.Contains(field, text), nil
	case name == "substringof" && p.lexer.dialect == DialectV2:
		// argument order is reversed relative to contains
		text, field, err := p.parseTextFieldArgs()
		if err != nil {
			return nil, err
		}
		return query.Contains(field, text), nil
	default:
		return nil, p.errorf("unknown function [%s]", name)
	}
}

func (p *filterParser) parseFieldTextArgs() (string, string, error) {
	field, err := p.expectIdent()
	if err != nil {
		return "", "", err
	}
	if err := p.expectComma(); err != nil {
		return "", "", err
	}
	text, err := p.expectString()
	if err != nil {
		return "", "", err
	}
	if err := p.expectRParen(); err != nil {
		return "", "", err
	}
	return field, text, nil
}

func (p *filterParser) parseTextFieldArgs() (string, string, error) {
	text, err := p.expectString()
	if err != nil {
		return "", "", err
	}
	if err := p.expectComma(); err != nil {
		return "", "", err
	}
	field, err := p.expectIdent()
	if err != nil {
		return "", "", err
	}
	if err := p.expectRParen(); err != nil {
		return "", "", err
	}
	return text, field, nil
}

func (p *filterParser) parseLiteral() (interface{}, error) {
	switch p.current.kind {
	case tokenString:
		value := p.current.text
		return value, p.advance()
	case tokenNumber:
		value := p.current.number
		return value, p.advance()
	case tokenDateTime:
		value := p.current.time
		return value, p.advance()
	case tokenIdent:
		switch p.current.text {
		case "true":
			return true, p.advance()
		case "false":
			return false, p.advance()
		case "null":
			return nil, p.advance()
		default:
			return nil, p.errorf("expected a literal, got [%s]", p.current.text)
		}
	default:
		return nil, p.errorf("expected a literal, got [%s]", p.current.text)
	}
}

func (p *filterParser) expectIdent() (string, error) {
	if p.current.kind != tokenIdent {
		return "", p.errorf("expected a field name, got [%s]", p.current.text)
	}
	text := p.current.text
	return text, p.advance()
}

func (p *filterParser) expectString() (string, error) {
	if p.current.kind != tokenString {
		return "", p.errorf("expected a string literal, got [%s]", p.current.text)
	}
	text := p.current.text
	return text, p.advance()
}

func (p *filterParser) expectComma() error {
	if p.current.kind != tokenComma {
		return p.errorf("expected a comma, got [%s]", p.current.text)
	}
	return p.advance()
}

func (p *filterParser) expectRParen() error {
	if p.current.kind != tokenRParen {
		return p.errorf("expected a closing parenthesis, got [%s]", p.current.text)
	}
	return p.advance()
}

type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenDateTime
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind   tokenKind
	text   string
	number float64
	time   time.Time
	pos    int
}

type lexer struct {
	input   string
	pos     int
	dialect Dialect
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil
	case c == '\'':
		return l.lexString()
	case c >= '0' && c <= '9', c == '-':
		return l.lexNumberOrDateTime()
	case isIdentStart(c):
		return l.lexIdent()
	default:
		return token{}, ParseError{Input: l.input, Pos: start, Message: fmt.Sprintf("unexpected character [%c]", c)}
	}
}

// lexString scans a single-quoted literal; a doubled quote escapes itself.
func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++
	var builder strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
				builder.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokenString, text: builder.String(), pos: start}, nil
		}
		builder.WriteByte(c)
		l.pos++
	}
	return token{}, ParseError{Input: l.input, Pos: start, Message: "unterminated string literal"}
}

// lexNumberOrDateTime scans a run of literal characters. The new dialect
// writes timestamps bare (2026-03-14T09:00:00Z), so anything that parses as
// RFC3339 becomes a datetime and the rest must be a number.
func (l *lexer) lexNumberOrDateTime() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isLiteralChar(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return token{kind: tokenDateTime, text: text, time: parsed, pos: start}, nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, ParseError{Input: l.input, Pos: start, Message: fmt.Sprintf("bad literal [%s]", text)}
	}
	return token{kind: tokenNumber, text: text, number: number, pos: start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]

	// the old dialect quotes timestamps as datetime'...'
	if text == "datetime" && l.dialect == DialectV2 && l.pos < len(l.input) && l.input[l.pos] == '\'' {
		literal, err := l.lexString()
		if err != nil {
			return token{}, err
		}
		parsed, parseErr := parseV2DateTime(literal.text)
		if parseErr != nil {
			return token{}, ParseError{Input: l.input, Pos: start, Message: fmt.Sprintf("bad datetime [%s]", literal.text)}
		}
		return token{kind: tokenDateTime, text: literal.text, time: parsed, pos: start}, nil
	}

	return token{kind: tokenIdent, text: text, pos: start}, nil
}

func parseV2DateTime(text string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return parsed, nil
	}
	// timezone-less timestamps are taken as UTC
	return time.Parse("2006-01-02T15:04:05", text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isLiteralChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '+' || c == ':':
		return true
	case c == 'T' || c == 'Z' || c == 'e' || c == 'E':
		return true
	default:
		return false
	}
}
