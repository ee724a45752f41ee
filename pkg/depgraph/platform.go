package depgraph

import (
	"fmt"
	"strings"
)

// platformApplies reports whether a dependency declared under the platform
// conditional expr applies when building for the given target triple.
//
// expr is either a literal target triple ("x86_64-unknown-linux-gnu") or a
// cfg expression ("cfg(unix)", `cfg(not(target_os = "windows"))`). An empty
// expr is unconditional. An empty target means no platform filtering was
// requested, so every conditional edge applies.
func platformApplies(expr, target string) (bool, error) {
	if expr == "" || target == "" {
		return true, nil
	}
	if !strings.HasPrefix(expr, "cfg(") {
		return expr == target, nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(expr, "cfg("), ")")
	p := &cfgParser{input: inner, attrs: tripleAttrs(target)}
	ok, err := p.parse()
	if err != nil {
		return false, fmt.Errorf("platform expression %q: %w", expr, err)
	}
	return ok, nil
}

// tripleAttrs derives cfg attributes from a target triple.
// Triples follow the arch-vendor-os[-env] convention; two-part triples
// (arch-os) also occur.
func tripleAttrs(triple string) map[string]string {
	parts := strings.Split(triple, "-")
	attrs := map[string]string{}
	if len(parts) > 0 {
		attrs["target_arch"] = parts[0]
	}
	var os, env string
	switch len(parts) {
	case 2:
		os = parts[1]
	case 3:
		attrs["target_vendor"] = parts[1]
		os = parts[2]
	default:
		if len(parts) >= 4 {
			attrs["target_vendor"] = parts[1]
			os = parts[2]
			env = parts[3]
		}
	}
	switch os {
	case "darwin":
		attrs["target_os"] = "macos"
		attrs["target_family"] = "unix"
	case "windows":
		attrs["target_os"] = "windows"
		attrs["target_family"] = "windows"
	case "":
	default:
		attrs["target_os"] = os
		attrs["target_family"] = "unix"
	}
	if env != "" {
		attrs["target_env"] = env
	}
	return attrs
}

// cfgParser evaluates a cfg predicate against a set of target attributes.
// Supported forms: bare idents (unix, windows), key = "value" pairs, and
// the not/any/all combinators.
type cfgParser struct {
	input string
	pos   int
	attrs map[string]string
}

func (p *cfgParser) parse() (bool, error) {
	v, err := p.predicate()
	if err != nil {
		return false, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return false, fmt.Errorf("unexpected trailing input at %d", p.pos)
	}
	return v, nil
}

func (p *cfgParser) predicate() (bool, error) {
	p.skipSpace()
	ident := p.ident()
	if ident == "" {
		return false, fmt.Errorf("expected identifier at %d", p.pos)
	}
	p.skipSpace()

	switch {
	case p.peek() == '(':
		p.pos++ // consume '('
		switch ident {
		case "not":
			v, err := p.predicate()
			if err != nil {
				return false, err
			}
			if err := p.expect(')'); err != nil {
				return false, err
			}
			return !v, nil
		case "any", "all":
			result := ident == "all"
			for {
				v, err := p.predicate()
				if err != nil {
					return false, err
				}
				if ident == "any" {
					result = result || v
				} else {
					result = result && v
				}
				p.skipSpace()
				if p.peek() == ',' {
					p.pos++
					continue
				}
				break
			}
			if err := p.expect(')'); err != nil {
				return false, err
			}
			return result, nil
		default:
			return false, fmt.Errorf("unknown combinator %q", ident)
		}

	case p.peek() == '=':
		p.pos++
		p.skipSpace()
		value, err := p.quoted()
		if err != nil {
			return false, err
		}
		return p.attrs[ident] == value, nil

	default:
		// Bare ident: unix/windows match target_family.
		return p.attrs["target_family"] == ident, nil
	}
}

func (p *cfgParser) ident() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *cfgParser) quoted() (string, error) {
	if p.peek() != '"' {
		return "", fmt.Errorf("expected quoted value at %d", p.pos)
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	if p.pos == len(p.input) {
		return "", fmt.Errorf("unterminated string at %d", start)
	}
	v := p.input[start:p.pos]
	p.pos++
	return v, nil
}

func (p *cfgParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("expected %q at %d", string(c), p.pos)
	}
	p.pos++
	return nil
}

func (p *cfgParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *cfgParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
