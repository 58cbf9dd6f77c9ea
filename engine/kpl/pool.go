// Package kpl is a pure-Go engine for text kernels (KPL architecture):
// leap seconds, frame definitions, text planetary constants, clock and
// instrument kernels. Binary DAF/DAS kernels need the native toolkit and
// are reported as engine errors.
package kpl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ValueKind tags a pool value.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindString
	KindDate
)

// Value is one element of a variable's value list.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string // string contents or the date text after '@'
}

// Pool holds the variables assigned in the data sections of a text kernel.
type Pool struct {
	vars  map[string][]Value
	order []string
}

// Names returns variable names in first-assignment order.
func (p *Pool) Names() []string { return append([]string(nil), p.order...) }

// Get returns the values of name.
func (p *Pool) Get(name string) ([]Value, bool) {
	v, ok := p.vars[name]
	return v, ok
}

// Strings returns the string values of name.
func (p *Pool) Strings(name string) []string {
	var out []string
	for _, v := range p.vars[name] {
		if v.Kind == KindString {
			out = append(out, v.Text)
		}
	}
	return out
}

// Numbers returns the numeric values of name.
func (p *Pool) Numbers(name string) []float64 {
	var out []float64
	for _, v := range p.vars[name] {
		if v.Kind == KindNumber {
			out = append(out, v.Num)
		}
	}
	return out
}

func (p *Pool) assign(name string, vals []Value, appendTo bool) {
	if _, ok := p.vars[name]; !ok {
		p.order = append(p.order, name)
	}
	if appendTo {
		p.vars[name] = append(p.vars[name], vals...)
		return
	}
	p.vars[name] = vals
}

// Parse reads a text kernel. Only lines between \begindata and \begintext
// markers are interpreted; everything else is commentary.
func Parse(r io.Reader) (*Pool, error) {
	var data strings.Builder
	inData := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch strings.TrimSpace(line) {
		case `\begindata`:
			inData = true
			continue
		case `\begintext`:
			inData = false
			continue
		}
		if inData {
			data.WriteString(line)
			data.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read text kernel: %w", err)
	}

	p := &Pool{vars: make(map[string][]Value)}
	lx := &lexer{src: data.String()}
	for {
		lx.skipSpace()
		if lx.eof() {
			return p, nil
		}
		name := lx.name()
		if name == "" {
			return nil, lx.errorf("expected variable name")
		}
		lx.skipSpace()
		appendTo := false
		switch {
		case lx.consume("+="):
			appendTo = true
		case lx.consume("="):
		default:
			return nil, lx.errorf("expected '=' or '+=' after %s", name)
		}
		vals, err := lx.values()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.assign(name, vals, appendTo)
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) eof() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() byte { return l.src[l.pos] }

func (l *lexer) errorf(format string, args ...any) error {
	line := strings.Count(l.src[:min(l.pos, len(l.src))], "\n") + 1
	return fmt.Errorf("data line %d: %s", line, fmt.Sprintf(format, args...))
}

func (l *lexer) skipSpace() {
	for !l.eof() && isSpace(l.peek()) {
		l.pos++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func (l *lexer) consume(tok string) bool {
	if strings.HasPrefix(l.src[l.pos:], tok) {
		l.pos += len(tok)
		return true
	}
	return false
}

func (l *lexer) name() string {
	start := l.pos
	for !l.eof() {
		c := l.peek()
		if isSpace(c) || c == '=' || (c == '+' && strings.HasPrefix(l.src[l.pos:], "+=")) {
			break
		}
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) values() ([]Value, error) {
	l.skipSpace()
	if l.eof() {
		return nil, l.errorf("missing value")
	}
	if !l.consume("(") {
		v, err := l.value()
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}
	var out []Value
	for {
		l.skipSeparators()
		if l.eof() {
			return nil, l.errorf("unterminated value list")
		}
		if l.consume(")") {
			return out, nil
		}
		v, err := l.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (l *lexer) skipSeparators() {
	for !l.eof() && (isSpace(l.peek()) || l.peek() == ',') {
		l.pos++
	}
}

func (l *lexer) value() (Value, error) {
	switch l.peek() {
	case '\'':
		return l.quoted()
	case '@':
		l.pos++
		return Value{Kind: KindDate, Text: l.word()}, nil
	}
	w := l.word()
	n, err := parseNumber(w)
	if err != nil {
		return Value{}, l.errorf("bad number %q", w)
	}
	return Value{Kind: KindNumber, Num: n}, nil
}

func (l *lexer) word() string {
	start := l.pos
	for !l.eof() {
		c := l.peek()
		if isSpace(c) || c == ',' || c == ')' {
			break
		}
		l.pos++
	}
	return l.src[start:l.pos]
}

// quoted reads a '...' string; a doubled quote is a literal quote.
func (l *lexer) quoted() (Value, error) {
	l.pos++
	var b strings.Builder
	for !l.eof() {
		c := l.peek()
		l.pos++
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if !l.eof() && l.peek() == '\'' {
			b.WriteByte('\'')
			l.pos++
			continue
		}
		return Value{Kind: KindString, Text: b.String()}, nil
	}
	return Value{}, l.errorf("unterminated string")
}

// parseNumber accepts Fortran-style exponents such as 1.657D-3.
func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, 64)
}
