package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Selector is a compiled path predicate over the definition tree. It
// understands the subset of XPath that rule files use:
//
//	ld:global-type[@type-name="unit"]/ld:field[@name="id"]
//	//ld:field[re:test(@name, '^unk_')]
//	/ld:data-definition/*[not(@export)]
//
// Relative selectors start at the children of the document root.
type Selector struct {
	src      string
	absolute bool
	steps    []step
}

type axis int

const (
	axisChild axis = iota
	axisDescendant
)

type step struct {
	axis  axis
	name  string
	preds []pred
}

type pred interface {
	eval(n *typetree.Node) bool
}

type attrPred struct {
	name     string
	value    string
	hasValue bool
	negate   bool
}

func (p attrPred) eval(n *typetree.Node) bool {
	v, ok := n.Attr(p.name)
	if !p.hasValue {
		return ok
	}
	if !ok {
		return false
	}
	return (v == p.value) != p.negate
}

type regexPred struct {
	name string
	re   *regexp.Regexp
}

func (p regexPred) eval(n *typetree.Node) bool {
	v, ok := n.Attr(p.name)
	return ok && p.re.MatchString(v)
}

type notPred struct{ p pred }

func (p notPred) eval(n *typetree.Node) bool { return !p.p.eval(n) }

type andPred []pred

func (p andPred) eval(n *typetree.Node) bool {
	for _, q := range p {
		if !q.eval(n) {
			return false
		}
	}
	return true
}

type orPred []pred

func (p orPred) eval(n *typetree.Node) bool {
	for _, q := range p {
		if q.eval(n) {
			return true
		}
	}
	return false
}

// String returns the selector source.
func (s *Selector) String() string {
	if s == nil {
		return ""
	}
	return s.src
}

// Match reports whether the selector selects n.
func (s *Selector) Match(n *typetree.Node) bool {
	if s == nil || len(s.steps) == 0 {
		return false
	}
	path := n.Path()
	return s.matchAt(len(s.steps)-1, path, len(path)-1)
}

func (s *Selector) matchAt(si int, path []*typetree.Node, pi int) bool {
	if pi < 0 {
		return false
	}
	st := s.steps[si]
	if !st.matches(path[pi]) {
		return false
	}
	if si == 0 {
		switch {
		case st.axis == axisDescendant:
			return true
		case s.absolute:
			return pi == 0
		default:
			return pi == 1
		}
	}
	if st.axis == axisChild {
		return s.matchAt(si-1, path, pi-1)
	}
	for k := pi - 1; k >= 0; k-- {
		if s.matchAt(si-1, path, k) {
			return true
		}
	}
	return false
}

func (st step) matches(n *typetree.Node) bool {
	if st.name != "*" && st.name != n.Element {
		return false
	}
	for _, p := range st.preds {
		if !p.eval(n) {
			return false
		}
	}
	return true
}

// ParseSelector compiles a selector expression.
func ParseSelector(src string) (*Selector, error) {
	p := &selectorParser{src: src}
	sel, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", src, err)
	}
	return sel, nil
}

type selectorParser struct {
	src string
	pos int
}

func (p *selectorParser) parse() (*Selector, error) {
	sel := &Selector{src: p.src}
	p.skipSpace()
	next := axisChild
	switch {
	case strings.HasPrefix(p.rest(), "//"):
		p.pos += 2
		next = axisDescendant
	case strings.HasPrefix(p.rest(), "/"):
		p.pos++
		sel.absolute = true
	}

	for {
		st, err := p.step()
		if err != nil {
			return nil, err
		}
		st.axis = next
		sel.steps = append(sel.steps, st)

		p.skipSpace()
		if p.eof() {
			return sel, nil
		}
		switch {
		case strings.HasPrefix(p.rest(), "//"):
			p.pos += 2
			next = axisDescendant
		case strings.HasPrefix(p.rest(), "/"):
			p.pos++
			next = axisChild
		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", p.rest(), p.pos)
		}
	}
}

func (p *selectorParser) step() (step, error) {
	p.skipSpace()
	name := p.name()
	if name == "" {
		if strings.HasPrefix(p.rest(), "*") {
			p.pos++
			name = "*"
		} else {
			return step{}, fmt.Errorf("expected element name at offset %d", p.pos)
		}
	}
	st := step{name: name}
	for {
		p.skipSpace()
		if !strings.HasPrefix(p.rest(), "[") {
			return st, nil
		}
		p.pos++
		pr, err := p.or()
		if err != nil {
			return step{}, err
		}
		p.skipSpace()
		if !strings.HasPrefix(p.rest(), "]") {
			return step{}, fmt.Errorf("expected ] at offset %d", p.pos)
		}
		p.pos++
		st.preds = append(st.preds, pr)
	}
}

func (p *selectorParser) or() (pred, error) {
	first, err := p.and()
	if err != nil {
		return nil, err
	}
	out := orPred{first}
	for p.keyword("or") {
		next, err := p.and()
		if err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	if len(out) == 1 {
		return first, nil
	}
	return out, nil
}

func (p *selectorParser) and() (pred, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	out := andPred{first}
	for p.keyword("and") {
		next, err := p.unary()
		if err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	if len(out) == 1 {
		return first, nil
	}
	return out, nil
}

func (p *selectorParser) unary() (pred, error) {
	p.skipSpace()
	switch {
	case strings.HasPrefix(p.rest(), "not("):
		p.pos += len("not(")
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return notPred{inner}, nil

	case strings.HasPrefix(p.rest(), "re:test("):
		p.pos += len("re:test(")
		p.skipSpace()
		if err := p.expect("@"); err != nil {
			return nil, err
		}
		name := p.name()
		if name == "" {
			return nil, fmt.Errorf("expected attribute name at offset %d", p.pos)
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(lit)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return regexPred{name: name, re: re}, nil

	case strings.HasPrefix(p.rest(), "("):
		p.pos++
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return inner, nil

	case strings.HasPrefix(p.rest(), "@"):
		p.pos++
		name := p.name()
		if name == "" {
			return nil, fmt.Errorf("expected attribute name at offset %d", p.pos)
		}
		ap := attrPred{name: name}
		p.skipSpace()
		switch {
		case strings.HasPrefix(p.rest(), "!="):
			p.pos += 2
			ap.negate = true
		case strings.HasPrefix(p.rest(), "="):
			p.pos++
		default:
			return ap, nil
		}
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		ap.value = lit
		ap.hasValue = true
		return ap, nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", p.rest(), p.pos)
}

func (p *selectorParser) literal() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", fmt.Errorf("expected string literal at end of selector")
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("expected string literal at offset %d", p.pos)
	}
	end := strings.IndexByte(p.src[p.pos+1:], quote)
	if end < 0 {
		return "", fmt.Errorf("unterminated string literal at offset %d", p.pos)
	}
	lit := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return lit, nil
}

func (p *selectorParser) keyword(kw string) bool {
	p.skipSpace()
	r := p.rest()
	if !strings.HasPrefix(r, kw) || len(r) == len(kw) {
		return false
	}
	if c := rune(r[len(kw)]); !unicode.IsSpace(c) && c != '(' && c != '@' {
		return false
	}
	p.pos += len(kw)
	return true
}

func (p *selectorParser) expect(tok string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.rest(), tok) {
		return fmt.Errorf("expected %q at offset %d", tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

func (p *selectorParser) name() string {
	start := p.pos
	for !p.eof() {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' || c == '.' || c == ':' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *selectorParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *selectorParser) rest() string { return p.src[p.pos:] }

func (p *selectorParser) eof() bool { return p.pos >= len(p.src) }
