package smiles

// BondOrder is the multiplicity of a bond.
type BondOrder uint8

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
)

// Valence returns the bond's contribution to atom valence. Aromatic bonds
// count as single; aromatic atoms add one on their own.
func (o BondOrder) Valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// BondStereo records the directional single-bond markers / and \.
type BondStereo uint8

const (
	StereoNone BondStereo = iota
	StereoUp              // '/'
	StereoDown            // '\'
)

func (s BondStereo) flip() BondStereo {
	switch s {
	case StereoUp:
		return StereoDown
	case StereoDown:
		return StereoUp
	}
	return s
}

// Atom is a single atom as written.
type Atom struct {
	// Symbol is the capitalized element symbol, or "*" for the wildcard.
	Symbol   string
	Aromatic bool
	// Bracket reports whether the atom was written in brackets.
	Bracket   bool
	Isotope   int
	Chirality string
	// HCount is the explicit hydrogen count of a bracket atom.
	HCount int
	Charge int
	Class  int
}

// Bond connects atoms From and To. Stereo is relative to the From→To
// direction.
type Bond struct {
	From   int
	To     int
	Order  BondOrder
	Stereo BondStereo
}

// Other returns the atom at the opposite end from atom.
func (b Bond) Other(atom int) int {
	if b.From == atom {
		return b.To
	}
	return b.From
}

// Neighbor is an adjacent atom and the index of the connecting bond.
type Neighbor struct {
	Atom int
	Bond int
}

// Molecule is a parsed molecular graph.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond

	adj      [][]Neighbor
	ringBond []bool
	// written holds, per atom, the neighbor order used for chirality.
	// -1 stands for the implicit hydrogen of a bracket atom.
	written [][]int
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int {
	return len(m.Atoms)
}

// Neighbors returns the atoms bonded to atom i in bond creation order.
func (m *Molecule) Neighbors(i int) []Neighbor {
	return m.adj[i]
}

// Degree returns the number of explicit bonds of atom i.
func (m *Molecule) Degree(i int) int {
	return len(m.adj[i])
}

// BondInRing reports whether bond b belongs to a ring.
func (m *Molecule) BondInRing(b int) bool {
	return m.ringBond[b]
}

// InRing reports whether atom i belongs to a ring.
func (m *Molecule) InRing(i int) bool {
	for _, n := range m.adj[i] {
		if m.ringBond[n.Bond] {
			return true
		}
	}
	return false
}

// bondValence sums the valence contributions of the bonds of atom i.
func (m *Molecule) bondValence(i int) int {
	v := 0
	for _, n := range m.adj[i] {
		v += m.Bonds[n.Bond].Order.Valence()
	}
	if m.Atoms[i].Aromatic {
		v++
	}
	return v
}

// ImplicitHydrogens returns the number of hydrogens implied for atom i.
// Bracket atoms carry no implicit hydrogens.
func (m *Molecule) ImplicitHydrogens(i int) int {
	if m.Atoms[i].Bracket {
		return 0
	}
	return m.organicHydrogens(i)
}

// organicHydrogens returns the hydrogens atom i would carry if written
// without brackets.
func (m *Molecule) organicHydrogens(i int) int {
	a := m.Atoms[i]
	valences, ok := organicValences[a.Symbol]
	if !ok {
		return 0
	}
	v := m.bondValence(i)
	if a.Aromatic {
		// Aromatic atoms either take part in the implied double bond or
		// donate a lone pair.
		switch low := valences[0]; {
		case low >= v:
			return low - v
		case low >= v-1:
			return 0
		}
	}
	for _, allowed := range valences {
		if allowed >= v {
			return allowed - v
		}
	}
	return 0
}

// TotalHydrogens returns the explicit plus implicit hydrogen count of atom i.
func (m *Molecule) TotalHydrogens(i int) int {
	return m.Atoms[i].HCount + m.ImplicitHydrogens(i)
}

// Components returns the connected components as lists of atom indexes.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var out [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		comp := []int{start}
		seen[start] = true
		for q := 0; q < len(comp); q++ {
			for _, n := range m.adj[comp[q]] {
				if !seen[n.Atom] {
					seen[n.Atom] = true
					comp = append(comp, n.Atom)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

// Distances returns the topological distance matrix. Unreachable pairs
// are -1.
func (m *Molecule) Distances() [][]int {
	n := len(m.Atoms)
	dist := make([][]int, n)
	queue := make([]int, 0, n)
	for s := 0; s < n; s++ {
		row := make([]int, n)
		for i := range row {
			row[i] = -1
		}
		row[s] = 0
		queue = append(queue[:0], s)
		for q := 0; q < len(queue); q++ {
			u := queue[q]
			for _, nb := range m.adj[u] {
				if row[nb.Atom] < 0 {
					row[nb.Atom] = row[u] + 1
					queue = append(queue, nb.Atom)
				}
			}
		}
		dist[s] = row
	}
	return dist
}

func (m *Molecule) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	m.written = append(m.written, nil)
	return len(m.Atoms) - 1
}

func (m *Molecule) addBond(b Bond) int {
	m.Bonds = append(m.Bonds, b)
	id := len(m.Bonds) - 1
	m.adj[b.From] = append(m.adj[b.From], Neighbor{Atom: b.To, Bond: id})
	m.adj[b.To] = append(m.adj[b.To], Neighbor{Atom: b.From, Bond: id})
	return id
}

func (m *Molecule) bonded(a, b int) bool {
	for _, n := range m.adj[a] {
		if n.Atom == b {
			return true
		}
	}
	return false
}

// perceiveRings marks every bond that is not a bridge as a ring bond.
func (m *Molecule) perceiveRings() {
	n := len(m.Atoms)
	m.ringBond = make([]bool, len(m.Bonds))
	for i := range m.ringBond {
		m.ringBond[i] = true
	}

	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	type frame struct {
		atom, parentBond, next int
	}
	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{atom: root, parentBond: -1}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(m.adj[top.atom]) {
				nb := m.adj[top.atom][top.next]
				top.next++
				if nb.Bond == top.parentBond {
					continue
				}
				if disc[nb.Atom] < 0 {
					disc[nb.Atom], low[nb.Atom] = timer, timer
					timer++
					stack = append(stack, frame{atom: nb.Atom, parentBond: nb.Bond})
				} else if disc[nb.Atom] < low[top.atom] {
					low[top.atom] = disc[nb.Atom]
				}
				continue
			}
			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := stack[len(stack)-1].atom
				if low[done.atom] < low[parent] {
					low[parent] = low[done.atom]
				}
				if low[done.atom] > disc[parent] {
					m.ringBond[done.parentBond] = false
				}
			}
		}
	}
}
