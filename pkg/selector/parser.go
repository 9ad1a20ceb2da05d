package selector

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
)

// Parse parses a selector list. An empty or all-whitespace selector is the
// universal selector.
func Parse(src string) (*Selector, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.eof() {
		return &Selector{src: src, list: []*complexSel{{compounds: []*compound{{universal: true}}}}}, nil
	}

	list, err := p.parseList(false)
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.errorf("unexpected token")
	}
	return &Selector{src: src, list: list}, nil
}

// MustParse is like Parse but panics on error. It is intended for selectors
// known at compile time.
func MustParse(src string) *Selector {
	s, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// skipSpace advances past whitespace and reports whether any was consumed.
func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		p.pos += size
	}
	return p.pos > start
}

func (p *parser) errorf(msg string) *SyntaxError {
	return p.errorAt(p.pos, msg)
}

func (p *parser) errorAt(pos int, msg string) *SyntaxError {
	tok := "EOF"
	if pos < len(p.src) {
		end := pos + 1
		for end < len(p.src) && isIdentByte(p.src[end]) {
			end++
		}
		tok = p.src[pos:end]
	}
	return &SyntaxError{Pos: pos, Token: tok, Msg: msg}
}

// parseList parses comma-separated complex selectors up to EOF or, when
// nested, up to the closing parenthesis (which is left unconsumed).
func (p *parser) parseList(relative bool) ([]*complexSel, error) {
	var list []*complexSel
	for {
		c, err := p.parseComplex(relative)
		if err != nil {
			return nil, err
		}
		list = append(list, c)

		p.skipSpace()
		if p.peek() != ',' {
			return list, nil
		}
		p.pos++
		p.skipSpace()
	}
}

func (p *parser) parseComplex(relative bool) (*complexSel, error) {
	c := &complexSel{}
	p.skipSpace()

	if relative {
		switch p.peek() {
		case '>', '~':
			c.lead = Combinator(p.peek())
			p.pos++
			p.skipSpace()
		default:
			c.lead = Descendant
		}
	}

	first, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, p.errorf("expected selector")
	}
	c.compounds = append(c.compounds, first)

	for {
		sawSpace := p.skipSpace()
		if p.eof() || p.peek() == ',' || p.peek() == ')' {
			return c, nil
		}

		var comb Combinator
		switch ch := p.peek(); {
		case ch == '>' || ch == '~':
			comb = Combinator(ch)
			p.pos++
			p.skipSpace()
		case ch == '+':
			return nil, p.errorf("unsupported combinator")
		case sawSpace:
			comb = Descendant
		default:
			return nil, p.errorf("unexpected token")
		}

		next, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		if next == nil {
			if p.eof() {
				return nil, p.errorf("dangling combinator")
			}
			return nil, p.errorf("invalid combinator")
		}
		c.combinators = append(c.combinators, comb)
		c.compounds = append(c.compounds, next)
	}
}

// parseCompound returns nil when no simple selector starts at the current
// position.
func (p *parser) parseCompound() (*compound, error) {
	c := &compound{}
	empty := true

	for !p.eof() {
		switch p.peek() {
		case '*':
			p.pos++
			c.universal = true
		case '#':
			id, err := p.parseID()
			if err != nil {
				return nil, err
			}
			c.id = id
		case '[':
			f, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			c.filters = append(c.filters, f)
		case '.':
			f, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			c.filters = append(c.filters, f)
		case ':':
			f, err := p.parsePseudo()
			if err != nil {
				return nil, err
			}
			if f.name == "root" {
				c.root = true
			}
			c.filters = append(c.filters, f)
		case ']':
			return nil, p.errorf("unbalanced brackets")
		default:
			if empty {
				return nil, nil
			}
			return c, nil
		}
		empty = false
	}
	if empty {
		return nil, nil
	}
	return c, nil
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

// isIDByte accepts package names, scopes and the version ranges that may
// follow "@". '>' and '~' are combinators and cannot appear.
func isIDByte(b byte) bool {
	return isIdentByte(b) || strings.IndexByte(".@/^*+=<|", b) >= 0
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) parseID() (*idSel, error) {
	start := p.pos
	p.pos++ // '#'
	begin := p.pos
	for !p.eof() && isIDByte(p.peek()) {
		p.pos++
	}
	raw := p.src[begin:p.pos]
	if raw == "" {
		return nil, p.errorAt(start, "expected package name after #")
	}

	id := &idSel{name: raw}
	if at := strings.LastIndexByte(raw, '@'); at > 0 {
		id.name = raw[:at]
		c, err := semver.NewConstraint(raw[at+1:])
		if err != nil {
			return nil, p.errorAt(begin+at+1, "invalid version range")
		}
		id.version = c
	}
	return id, nil
}

func (p *parser) parseAttr() (filter, error) {
	open := p.pos
	p.pos++ // '['
	p.skipSpace()

	key := p.ident()
	if key == "" {
		if p.eof() {
			return nil, p.errorAt(open, "unbalanced brackets")
		}
		return nil, p.errorf("expected attribute name")
	}
	p.skipSpace()

	f := attrFilter{key: key}
	if p.peek() == ']' {
		p.pos++
		return f, nil
	}

	switch {
	case p.peek() == '=':
		f.op = opEquals
		p.pos++
	case strings.HasPrefix(p.src[p.pos:], "^="), strings.HasPrefix(p.src[p.pos:], "$="),
		strings.HasPrefix(p.src[p.pos:], "*="), strings.HasPrefix(p.src[p.pos:], "~="),
		strings.HasPrefix(p.src[p.pos:], "|="):
		f.op = attrOp(p.src[p.pos : p.pos+2])
		p.pos += 2
	case p.eof():
		return nil, p.errorAt(open, "unbalanced brackets")
	default:
		return nil, p.errorf("invalid attribute operator")
	}
	p.skipSpace()

	value, err := p.attrValue(open)
	if err != nil {
		return nil, err
	}
	f.value = value
	p.skipSpace()

	if p.peek() != ']' {
		if p.eof() {
			return nil, p.errorAt(open, "unbalanced brackets")
		}
		return nil, p.errorf("expected ]")
	}
	p.pos++
	return f, nil
}

func (p *parser) attrValue(open int) (string, error) {
	q := p.peek()
	if q != '"' && q != '\'' {
		start := p.pos
		for !p.eof() && p.peek() != ']' && !unicode.IsSpace(rune(p.peek())) {
			p.pos++
		}
		if p.pos == start {
			if p.eof() {
				return "", p.errorAt(open, "unbalanced brackets")
			}
			return "", p.errorf("expected attribute value")
		}
		return p.src[start:p.pos], nil
	}

	quote := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		ch := p.peek()
		switch {
		case ch == '\\' && p.pos+1 < len(p.src):
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case ch == q:
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(ch)
			p.pos++
		}
	}
	return "", p.errorAt(quote, "unterminated string")
}

func (p *parser) parseClass() (filter, error) {
	start := p.pos
	p.pos++ // '.'
	name := p.ident()
	if !classes[name] {
		return nil, p.errorAt(start, "unknown class")
	}
	return classFilter{class: name}, nil
}

func (p *parser) parsePseudo() (*pseudoFilter, error) {
	start := p.pos
	p.pos++ // ':'
	name := p.ident()
	if !pseudos[name] {
		return nil, p.errorAt(start, "unknown pseudo-class")
	}
	f := &pseudoFilter{name: name}

	switch name {
	case "not", "is", "has":
		if p.peek() != '(' {
			return nil, p.errorf("expected (")
		}
		open := p.pos
		p.pos++
		args, err := p.parseList(name == "has")
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			if p.eof() {
				return nil, p.errorAt(open, "unbalanced parentheses")
			}
			return nil, p.errorf("expected )")
		}
		p.pos++
		f.args = args
	case "semver":
		if p.peek() != '(' {
			return nil, p.errorf("expected (")
		}
		open := p.pos
		end := strings.IndexByte(p.src[open:], ')')
		if end < 0 {
			return nil, p.errorAt(open, "unbalanced parentheses")
		}
		raw := strings.Trim(strings.TrimSpace(p.src[open+1:open+end]), `"'`)
		c, err := semver.NewConstraint(raw)
		if err != nil {
			return nil, p.errorAt(open+1, "invalid version range")
		}
		f.constraint = c
		p.pos = open + end + 1
	default:
		if p.peek() == '(' {
			return nil, p.errorf("unexpected argument")
		}
	}
	return f, nil
}
