package fingerprint

import (
	"cmp"
	"slices"

	"github.com/hupe1980/fpdb/chem/smiles"
)

const (
	morganRadius = 2

	minPathBonds = 1
	maxPathBonds = 7
	// maxPaths bounds path enumeration on dense ring systems.
	maxPaths = 1 << 15

	maxPairDistance = 30
	maxCountBits    = 16
)

func atomicNumber(m *smiles.Molecule, i int) uint64 {
	return uint64(smiles.AtomicNumber(m.Atoms[i].Symbol))
}

func flag(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// piElectrons approximates the pi electron count of atom i.
func piElectrons(m *smiles.Molecule, i int) int {
	if m.Atoms[i].Aromatic {
		return 1
	}
	n := 0
	for _, nb := range m.Neighbors(i) {
		n += m.Bonds[nb.Bond].Order.Valence() - 1
	}
	return n
}

// morgan folds circular atom environments up to morganRadius bonds.
func morgan(m *smiles.Molecule, f *folder) {
	n := m.NumAtoms()
	ids := make([]uint64, n)
	for i, a := range m.Atoms {
		ids[i] = f.hash64(0,
			atomicNumber(m, i),
			uint64(m.Degree(i)),
			uint64(m.TotalHydrogens(i)),
			signed(a.Charge),
			uint64(a.Isotope),
			flag(m.InRing(i)),
		)
		f.setHash(ids[i])
	}

	type edge struct {
		order uint64
		id    uint64
	}
	next := make([]uint64, n)
	var env []edge
	var fields []uint64
	for r := 1; r <= morganRadius; r++ {
		for i := range ids {
			env = env[:0]
			for _, nb := range m.Neighbors(i) {
				env = append(env, edge{order: uint64(m.Bonds[nb.Bond].Order), id: ids[nb.Atom]})
			}
			slices.SortFunc(env, func(a, b edge) int {
				if c := cmp.Compare(a.order, b.order); c != 0 {
					return c
				}
				return cmp.Compare(a.id, b.id)
			})
			fields = append(fields[:0], uint64(r), ids[i])
			for _, e := range env {
				fields = append(fields, e.order, e.id)
			}
			next[i] = f.hash64(fields...)
			f.setHash(next[i])
		}
		copy(ids, next)
	}
}

// linearPaths folds every simple path of one to seven bonds.
func linearPaths(m *smiles.Molecule, f *folder) {
	code := func(i int) uint64 {
		return atomicNumber(m, i)<<8 | uint64(m.Degree(i))<<1 | flag(m.Atoms[i].Aromatic)
	}

	onPath := make([]bool, m.NumAtoms())
	seq := make([]uint64, 0, 2*maxPathBonds+1)
	rev := make([]uint64, 0, 2*maxPathBonds+1)
	paths := 0

	emit := func() {
		rev = rev[:0]
		for k := len(seq) - 1; k >= 0; k-- {
			rev = append(rev, seq[k])
		}
		key := seq
		if slices.Compare(rev, seq) < 0 {
			key = rev
		}
		f.set(append([]uint64{uint64(len(key))}, key...)...)
	}

	var extend func(u, bonds int)
	extend = func(u, bonds int) {
		if bonds >= minPathBonds {
			emit()
			paths++
		}
		if bonds == maxPathBonds || paths >= maxPaths {
			return
		}
		for _, nb := range m.Neighbors(u) {
			if onPath[nb.Atom] {
				continue
			}
			onPath[nb.Atom] = true
			seq = append(seq, uint64(m.Bonds[nb.Bond].Order), code(nb.Atom))
			extend(nb.Atom, bonds+1)
			seq = seq[:len(seq)-2]
			onPath[nb.Atom] = false
		}
	}

	for start := range m.Atoms {
		onPath[start] = true
		seq = append(seq[:0], code(start))
		extend(start, 0)
		onPath[start] = false
	}
}

// atomPairs folds (atom type, distance, atom type) triples.
func atomPairs(m *smiles.Molecule, f *folder) {
	code := func(i int) uint64 {
		return atomicNumber(m, i)<<8 | uint64(min(m.Degree(i), 7))<<4 | uint64(min(piElectrons(m, i), 3))
	}
	dist := m.Distances()
	for i := range m.Atoms {
		for j := i + 1; j < m.NumAtoms(); j++ {
			d := dist[i][j]
			if d < 1 || d > maxPairDistance {
				continue
			}
			a, b := code(i), code(j)
			if a > b {
				a, b = b, a
			}
			f.set(a, uint64(d), b)
		}
	}
}

// torsions folds every four-atom linear path.
func torsions(m *smiles.Molecule, f *folder) {
	code := func(i, branches int) uint64 {
		return atomicNumber(m, i)<<8 | uint64(max(m.Degree(i)-branches, 0))<<4 | uint64(min(piElectrons(m, i), 3))
	}
	var fwd, rev [4]uint64
	for _, b := range m.Bonds {
		j, k := b.From, b.To
		for _, left := range m.Neighbors(j) {
			if left.Atom == k {
				continue
			}
			for _, right := range m.Neighbors(k) {
				if right.Atom == j || right.Atom == left.Atom {
					continue
				}
				fwd = [4]uint64{code(left.Atom, 1), code(j, 2), code(k, 2), code(right.Atom, 1)}
				rev = [4]uint64{fwd[3], fwd[2], fwd[1], fwd[0]}
				if slices.Compare(rev[:], fwd[:]) < 0 {
					fwd = rev
				}
				f.set(fwd[:]...)
			}
		}
	}
}

// featureKeys folds a fixed vocabulary of substructure features: atom
// environments, element counts, bond types, ring sizes and bond pairs.
func featureKeys(m *smiles.Molecule, f *folder) {
	const (
		featAtom = iota + 1
		featCount
		featBond
		featRing
		featPair
	)

	counts := make(map[uint64]int)
	for i, a := range m.Atoms {
		z := atomicNumber(m, i)
		counts[z]++
		f.set(featAtom, z, uint64(m.Degree(i)), uint64(m.TotalHydrogens(i)), flag(a.Aromatic), signed(a.Charge))
	}
	for z, c := range counts {
		for t := 1; t <= c && t <= maxCountBits; t++ {
			f.set(featCount, z, uint64(t))
		}
	}

	for id, b := range m.Bonds {
		lo, hi := atomicNumber(m, b.From), atomicNumber(m, b.To)
		if lo > hi {
			lo, hi = hi, lo
		}
		ring := m.BondInRing(id)
		f.set(featBond, lo, uint64(b.Order), hi, flag(ring))
		if ring {
			f.set(featRing, uint64(smallestRing(m, id)), flag(b.Order == smiles.BondAromatic))
		}
	}

	for j := range m.Atoms {
		nbs := m.Neighbors(j)
		for x := 0; x < len(nbs); x++ {
			for y := x + 1; y < len(nbs); y++ {
				p := uint64(m.Bonds[nbs[x].Bond].Order)<<8 | atomicNumber(m, nbs[x].Atom)
				q := uint64(m.Bonds[nbs[y].Bond].Order)<<8 | atomicNumber(m, nbs[y].Atom)
				if p > q {
					p, q = q, p
				}
				f.set(featPair, atomicNumber(m, j), p, q)
			}
		}
	}
}

// smallestRing returns the size of the smallest ring through bond id.
func smallestRing(m *smiles.Molecule, id int) int {
	b := m.Bonds[id]
	dist := make([]int, m.NumAtoms())
	for i := range dist {
		dist[i] = -1
	}
	dist[b.From] = 0
	queue := []int{b.From}
	for q := 0; q < len(queue); q++ {
		u := queue[q]
		for _, nb := range m.Neighbors(u) {
			if nb.Bond == id || dist[nb.Atom] >= 0 {
				continue
			}
			dist[nb.Atom] = dist[u] + 1
			if nb.Atom == b.To {
				return dist[nb.Atom] + 1
			}
			queue = append(queue, nb.Atom)
		}
	}
	return 0
}
