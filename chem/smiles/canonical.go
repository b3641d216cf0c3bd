package smiles

import (
	"slices"
	"strconv"
	"strings"
)

// Canonical writes m as a normalized SMILES string. Two inputs describing
// the same graph produce the same output, up to the tie-breaking of
// symmetric atoms. Redundant brackets and single bonds are dropped and
// ring closure numbers are reassigned from 1.
func Canonical(m *Molecule) string {
	w := &writer{m: m}
	return w.write()
}

type writer struct {
	m          *Molecule
	rank       []int
	visited    []bool
	parentBond []int
	children   [][]Neighbor
	rings      [][]Neighbor
	closure    []bool
	digit      []int
	emitted    []bool
	sb         strings.Builder
}

func (w *writer) write() string {
	n := w.m.NumAtoms()
	w.rank = w.canonicalRanks()
	w.visited = make([]bool, n)
	w.emitted = make([]bool, n)
	w.parentBond = make([]int, n)
	w.children = make([][]Neighbor, n)
	w.rings = make([][]Neighbor, n)
	w.closure = make([]bool, len(w.m.Bonds))
	w.digit = make([]int, len(w.m.Bonds))

	comps := w.m.Components()
	starts := make([]int, 0, len(comps))
	for _, comp := range comps {
		best := comp[0]
		for _, a := range comp[1:] {
			if w.rank[a] < w.rank[best] {
				best = a
			}
		}
		starts = append(starts, best)
	}
	slices.SortFunc(starts, func(a, b int) int { return w.rank[a] - w.rank[b] })

	for i, s := range starts {
		if i > 0 {
			w.sb.WriteByte('.')
		}
		w.parentBond[s] = -1
		w.walk(s)
		w.emit(s, -1, nil)
	}
	return w.sb.String()
}

// sortedNeighbors returns the neighbors of atom i ordered by rank.
func (w *writer) sortedNeighbors(i int) []Neighbor {
	nb := slices.Clone(w.m.Neighbors(i))
	slices.SortFunc(nb, func(a, b Neighbor) int { return w.rank[a.Atom] - w.rank[b.Atom] })
	return nb
}

// walk builds the spanning tree and marks ring closure bonds. A closure
// opens at the ancestor, which is always written first.
func (w *writer) walk(u int) {
	w.visited[u] = true
	for _, nb := range w.sortedNeighbors(u) {
		if nb.Bond == w.parentBond[u] {
			continue
		}
		if !w.visited[nb.Atom] {
			w.parentBond[nb.Atom] = nb.Bond
			w.children[u] = append(w.children[u], nb)
			w.walk(nb.Atom)
			continue
		}
		if !w.closure[nb.Bond] {
			w.closure[nb.Bond] = true
			w.rings[nb.Atom] = append(w.rings[nb.Atom], Neighbor{Atom: u, Bond: nb.Bond})
			w.rings[u] = append(w.rings[u], Neighbor{Atom: nb.Atom, Bond: nb.Bond})
		}
	}
}

func (w *writer) emit(u, parent int, inUse []bool) []bool {
	w.emitted[u] = true

	order := make([]int, 0, w.m.Degree(u)+1)
	if parent >= 0 {
		order = append(order, parent)
	}
	a := w.m.Atoms[u]
	if a.Bracket && a.HCount > 0 && a.Chirality != "" {
		order = append(order, -1)
	}

	// Closures first so their digits are known, then openings.
	var closing, opening []Neighbor
	for _, r := range w.rings[u] {
		if w.emitted[r.Atom] {
			closing = append(closing, r)
		} else {
			opening = append(opening, r)
		}
	}
	var digits strings.Builder
	for _, r := range closing {
		writeRingNumber(&digits, w.digit[r.Bond])
		order = append(order, r.Atom)
	}
	for _, r := range opening {
		d := 1
		for d < len(inUse) && inUse[d] {
			d++
		}
		for len(inUse) <= d {
			inUse = append(inUse, false)
		}
		inUse[d] = true
		w.digit[r.Bond] = d
		digits.WriteString(w.bondSymbol(r.Bond, u))
		writeRingNumber(&digits, d)
		order = append(order, r.Atom)
	}
	for _, r := range closing {
		inUse[w.digit[r.Bond]] = false
	}
	for _, c := range w.children[u] {
		order = append(order, c.Atom)
	}

	w.sb.WriteString(w.atomText(u, w.chirality(u, order)))
	w.sb.WriteString(digits.String())

	for k, c := range w.children[u] {
		last := k == len(w.children[u])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(c.Bond, u))
		inUse = w.emit(c.Atom, u, inUse)
		if !last {
			w.sb.WriteByte(')')
		}
	}
	return inUse
}

func writeRingNumber(sb *strings.Builder, d int) {
	if d > 9 {
		sb.WriteByte('%')
	}
	sb.WriteString(strconv.Itoa(d))
}

// chirality returns the tetrahedral marker for atom u written with the
// given neighbor order.
func (w *writer) chirality(u int, order []int) string {
	c := w.m.Atoms[u].Chirality
	in := w.m.written[u]
	if c == "" || len(in) != len(order) {
		return c
	}
	pos := make(map[int]int, len(in))
	for i, a := range in {
		pos[a] = i
	}
	inversions := 0
	for i := range order {
		for j := i + 1; j < len(order); j++ {
			if pos[order[i]] > pos[order[j]] {
				inversions++
			}
		}
	}
	if inversions%2 == 0 {
		return c
	}
	if c == "@" {
		return "@@"
	}
	return "@"
}

// bondSymbol returns the text for bond id written starting at atom from.
func (w *writer) bondSymbol(id, from int) string {
	b := w.m.Bonds[id]
	aromatic := w.m.Atoms[b.From].Aromatic && w.m.Atoms[b.To].Aromatic
	switch b.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondQuadruple:
		return "$"
	case BondAromatic:
		if aromatic {
			return ""
		}
		return ":"
	}
	stereo := b.Stereo
	if b.From != from {
		stereo = stereo.flip()
	}
	switch {
	case stereo == StereoUp:
		return "/"
	case stereo == StereoDown:
		return `\`
	case aromatic:
		return "-"
	}
	return ""
}

func (w *writer) atomText(i int, chirality string) string {
	a := w.m.Atoms[i]
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if !a.Bracket {
		return sym
	}

	if a.Isotope == 0 && chirality == "" && a.Charge == 0 && a.Class == 0 {
		if sym == "*" && a.HCount == 0 {
			return sym
		}
		if _, ok := organicValences[a.Symbol]; ok && w.m.organicHydrogens(i) == a.HCount {
			return sym
		}
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	sb.WriteString(chirality)
	if a.HCount > 0 {
		sb.WriteByte('H')
		if a.HCount > 1 {
			sb.WriteString(strconv.Itoa(a.HCount))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	if a.Class > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(a.Class))
	}
	sb.WriteByte(']')
	return sb.String()
}

// canonicalRanks orders atoms by iterative refinement of local invariants,
// breaking remaining ties by input position.
func (w *writer) canonicalRanks() []int {
	m := w.m
	n := m.NumAtoms()
	keys := make([][]int, n)
	for i, a := range m.Atoms {
		aromatic, ring := 0, 0
		if a.Aromatic {
			aromatic = 1
		}
		if m.InRing(i) {
			ring = 1
		}
		keys[i] = []int{AtomicNumber(a.Symbol), aromatic, m.Degree(i), m.TotalHydrogens(i), a.Charge, a.Isotope, ring, a.Class}
	}
	rank := w.refine(denseRanks(keys))

	for {
		tied := -1
		seen := make(map[int]int, n)
		for i, r := range rank {
			if j, ok := seen[r]; ok {
				if tied < 0 || r < rank[tied] {
					tied = j
				}
				continue
			}
			seen[r] = i
		}
		if tied < 0 {
			return rank
		}
		next := make([][]int, n)
		for i, r := range rank {
			next[i] = []int{r * 2}
		}
		next[tied][0]--
		rank = w.refine(denseRanks(next))
	}
}

func (w *writer) refine(rank []int) []int {
	classes := countClasses(rank)
	for {
		keys := make([][]int, len(rank))
		for i := range rank {
			key := []int{rank[i]}
			nb := make([]int, 0, w.m.Degree(i))
			for _, x := range w.m.Neighbors(i) {
				nb = append(nb, rank[x.Atom]*8+int(w.m.Bonds[x.Bond].Order))
			}
			slices.Sort(nb)
			keys[i] = append(key, nb...)
		}
		next := denseRanks(keys)
		c := countClasses(next)
		if c == classes {
			return next
		}
		rank, classes = next, c
	}
}

func denseRanks(keys [][]int) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return slices.Compare(keys[a], keys[b]) })
	rank := make([]int, len(keys))
	r := 0
	for k, i := range idx {
		if k > 0 && slices.Compare(keys[idx[k-1]], keys[i]) != 0 {
			r++
		}
		rank[i] = r
	}
	return rank
}

func countClasses(rank []int) int {
	top := -1
	for _, r := range rank {
		if r > top {
			top = r
		}
	}
	return top + 1
}
