package smiles

import "fmt"

// ValenceError reports an atom whose bonds exceed its allowed valence.
type ValenceError struct {
	Atom    int
	Symbol  string
	Valence int
	Max     int
}

func (e *ValenceError) Error() string {
	return fmt.Sprintf("smiles: atom %d (%s) has valence %d, max %d", e.Atom, e.Symbol, e.Valence, e.Max)
}

// AromaticityError reports an aromatic atom outside any ring.
type AromaticityError struct {
	Atom   int
	Symbol string
}

func (e *AromaticityError) Error() string {
	return fmt.Sprintf("smiles: non-ring atom %d (%s) marked aromatic", e.Atom, e.Symbol)
}

// Validate checks valences and aromatic ring membership.
func Validate(m *Molecule) error {
	for i, a := range m.Atoms {
		if a.Aromatic && !m.InRing(i) {
			return &AromaticityError{Atom: i, Symbol: a.Symbol}
		}

		v := m.bondValence(i)
		if a.Aromatic {
			v--
		}
		if !a.Bracket {
			valences, ok := organicValences[a.Symbol]
			if !ok {
				continue
			}
			if limit := valences[len(valences)-1]; v > limit {
				return &ValenceError{Atom: i, Symbol: a.Symbol, Valence: v, Max: limit}
			}
			continue
		}

		limit, ok := maxValence(a.Symbol, a.Charge)
		if !ok {
			continue
		}
		if v+a.HCount > limit {
			return &ValenceError{Atom: i, Symbol: a.Symbol, Valence: v + a.HCount, Max: limit}
		}
	}
	return nil
}

// ParseAndValidate parses s and, unless trusted is set, validates it.
func ParseAndValidate(s string, trusted bool) (*Molecule, error) {
	m, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if !trusted {
		if err := Validate(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}
