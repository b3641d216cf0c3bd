package smiles

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed SMILES text.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("smiles: %s at position %d in %q", e.Msg, e.Pos, e.Input)
}

type pendingBond struct {
	set    bool
	order  BondOrder
	stereo BondStereo
	pos    int
}

type openRing struct {
	atom int
	slot int
	bond pendingBond
}

type branch struct {
	atom  int
	atoms int
}

type parser struct {
	src     string
	pos     int
	mol     *Molecule
	prev    int
	bond    pendingBond
	rings   map[int]openRing
	stack   []branch
	implied []int
}

// Parse parses a SMILES string. It reports syntax errors only; valence
// rules are checked by Validate.
func Parse(s string) (*Molecule, error) {
	p := &parser{
		src:   s,
		mol:   &Molecule{},
		prev:  -1,
		rings: make(map[int]openRing),
	}
	if err := p.run(); err != nil {
		return nil, err
	}

	// Implicit bonds between aromatic atoms are aromatic only inside rings.
	p.mol.perceiveRings()
	for _, id := range p.implied {
		if !p.mol.ringBond[id] {
			p.mol.Bonds[id].Order = BondSingle
		}
	}
	return p.mol, nil
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Input: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errorf(p.pos, "branch without preceding atom")
			}
			if p.bond.set {
				return p.errorf(p.pos, "bond before branch")
			}
			p.stack = append(p.stack, branch{atom: p.prev, atoms: len(p.mol.Atoms)})
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.errorf(p.pos, "unbalanced ')'")
			}
			if p.bond.set {
				return p.errorf(p.bond.pos, "dangling bond")
			}
			top := p.stack[len(p.stack)-1]
			if top.atoms == len(p.mol.Atoms) {
				return p.errorf(p.pos, "empty branch")
			}
			p.stack = p.stack[:len(p.stack)-1]
			p.prev = top.atom
			p.pos++
		case strings.IndexByte(`-=#$:/\`, c) >= 0:
			if p.prev < 0 {
				return p.errorf(p.pos, "bond without preceding atom")
			}
			if p.bond.set {
				return p.errorf(p.pos, "consecutive bonds")
			}
			p.bond = parseBondSymbol(c, p.pos)
			p.pos++
		case c == '.':
			if p.prev < 0 || p.bond.set {
				return p.errorf(p.pos, "misplaced '.'")
			}
			p.prev = -1
			p.pos++
		case c == '%' || isDigit(c):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	if p.bond.set {
		return p.errorf(p.bond.pos, "dangling bond")
	}
	if len(p.stack) > 0 {
		return p.errorf(len(p.src), "unclosed branch")
	}
	if len(p.rings) > 0 {
		return p.errorf(len(p.src), "unclosed ring")
	}
	if len(p.mol.Atoms) == 0 {
		return p.errorf(0, "no atoms")
	}
	if p.src[len(p.src)-1] == '.' {
		return p.errorf(len(p.src)-1, "misplaced '.'")
	}
	return nil
}

func parseBondSymbol(c byte, pos int) pendingBond {
	b := pendingBond{set: true, order: BondSingle, pos: pos}
	switch c {
	case '=':
		b.order = BondDouble
	case '#':
		b.order = BondTriple
	case '$':
		b.order = BondQuadruple
	case ':':
		b.order = BondAromatic
	case '/':
		b.stereo = StereoUp
	case '\\':
		b.stereo = StereoDown
	}
	return b
}

// attach adds atom a and bonds it to the previous atom.
func (p *parser) attach(a Atom) {
	id := p.mol.addAtom(a)
	if p.prev >= 0 {
		bond := Bond{From: p.prev, To: id, Order: p.bond.order, Stereo: p.bond.stereo}
		implied := false
		if !p.bond.set {
			bond.Order = BondSingle
			if a.Aromatic && p.mol.Atoms[p.prev].Aromatic {
				bond.Order = BondAromatic
				implied = true
			}
		}
		bid := p.mol.addBond(bond)
		if implied {
			p.implied = append(p.implied, bid)
		}
		p.mol.written[p.prev] = append(p.mol.written[p.prev], id)
		p.mol.written[id] = append(p.mol.written[id], p.prev)
	}
	if a.Bracket && a.HCount > 0 && a.Chirality != "" {
		p.mol.written[id] = append(p.mol.written[id], -1)
	}
	p.prev = id
	p.bond = pendingBond{}
}

func (p *parser) organicAtom() error {
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "Cl"), strings.HasPrefix(rest, "Br"):
		p.attach(Atom{Symbol: rest[:2]})
		p.pos += 2
		return nil
	case rest[0] == '*':
		p.attach(Atom{Symbol: "*"})
		p.pos++
		return nil
	}
	sym := rest[:1]
	if _, ok := organicValences[sym]; ok {
		p.attach(Atom{Symbol: sym})
		p.pos++
		return nil
	}
	if upper, ok := aromaticSymbols[sym]; ok && len(upper) == 1 {
		p.attach(Atom{Symbol: upper, Aromatic: true})
		p.pos++
		return nil
	}
	return p.errorf(p.pos, "unexpected character %q", rest[0])
}

func (p *parser) bracketAtom() error {
	start := p.pos
	end := strings.IndexByte(p.src[start:], ']')
	if end < 0 {
		return p.errorf(start, "unclosed bracket atom")
	}
	body := p.src[start+1 : start+end]
	i := 0
	a := Atom{Bracket: true}

	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Symbol = "*"
		i++
	case i < len(body) && isLower(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) {
			if upper, ok := aromaticSymbols[body[i:i+2]]; ok {
				a.Symbol, a.Aromatic = upper, true
				i += 2
				break
			}
		}
		upper, ok := aromaticSymbols[body[i:i+1]]
		if !ok {
			return p.errorf(start+1+i, "unknown aromatic symbol")
		}
		a.Symbol, a.Aromatic = upper, true
		i++
	case i < len(body) && isUpper(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) {
			if _, ok := elements[body[i:i+2]]; ok {
				a.Symbol = body[i : i+2]
				i += 2
				break
			}
		}
		if _, ok := elements[body[i:i+1]]; !ok {
			return p.errorf(start+1+i, "unknown element")
		}
		a.Symbol = body[i : i+1]
		i++
	default:
		return p.errorf(start+1+i, "missing element symbol")
	}

	if i < len(body) && body[i] == '@' {
		if i+1 < len(body) && body[i+1] == '@' {
			a.Chirality = "@@"
			i += 2
		} else {
			a.Chirality = "@"
			i++
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		c := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			n := 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
			a.Charge = sign * n
		default:
			n := 1
			for i < len(body) && body[i] == c {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		if i == len(body) || !isDigit(body[i]) {
			return p.errorf(start+1+i, "missing atom class")
		}
		for i < len(body) && isDigit(body[i]) {
			a.Class = a.Class*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return p.errorf(start+1+i, "unexpected character %q in bracket atom", body[i])
	}

	p.attach(a)
	p.pos = start + end + 1
	return nil
}

func (p *parser) ringClosure() error {
	start := p.pos
	if p.prev < 0 {
		return p.errorf(start, "ring closure without preceding atom")
	}
	var n int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.errorf(start, "ring number after '%%' needs two digits")
		}
		n = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		n = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[n]
	if !ok {
		slot := len(p.mol.written[p.prev])
		p.mol.written[p.prev] = append(p.mol.written[p.prev], -2)
		p.rings[n] = openRing{atom: p.prev, slot: slot, bond: p.bond}
		p.bond = pendingBond{}
		return nil
	}
	delete(p.rings, n)

	if open.atom == p.prev {
		return p.errorf(start, "ring %d closes on its own atom", n)
	}
	if p.mol.bonded(open.atom, p.prev) {
		return p.errorf(start, "ring %d duplicates an existing bond", n)
	}

	bond := Bond{From: open.atom, To: p.prev, Order: BondSingle}
	switch {
	case open.bond.set && p.bond.set:
		if open.bond.order != p.bond.order {
			return p.errorf(start, "conflicting bond orders for ring %d", n)
		}
		bond.Order, bond.Stereo = open.bond.order, open.bond.stereo
	case open.bond.set:
		bond.Order, bond.Stereo = open.bond.order, open.bond.stereo
	case p.bond.set:
		// The closing side is written in the To→From direction.
		bond.Order, bond.Stereo = p.bond.order, p.bond.stereo.flip()
	default:
		if p.mol.Atoms[open.atom].Aromatic && p.mol.Atoms[p.prev].Aromatic {
			bond.Order = BondAromatic
		}
	}
	p.mol.addBond(bond)
	p.mol.written[open.atom][open.slot] = p.prev
	p.mol.written[p.prev] = append(p.mol.written[p.prev], open.atom)
	p.bond = pendingBond{}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
