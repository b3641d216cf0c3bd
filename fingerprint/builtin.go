package fingerprint

import (
	"github.com/hupe1980/fpdb/chem/smiles"
)

// Builtin is the SMILES-based Generator.
type Builtin struct {
	bitCount int
}

// NewBuiltin returns a generator producing bitCount-bit fingerprints.
func NewBuiltin(bitCount int) (*Builtin, error) {
	if err := ValidateBitCount(bitCount); err != nil {
		return nil, err
	}
	return &Builtin{bitCount: bitCount}, nil
}

// BitCount returns the fingerprint length in bits.
func (g *Builtin) BitCount() int {
	return g.bitCount
}

// Generate parses text as SMILES and computes its fingerprint.
// Valence and aromaticity checks are skipped when trustInput is set;
// syntax errors are always reported.
func (g *Builtin) Generate(text string, alg Algorithm, trustInput bool) (Result, error) {
	key, ok := domainKeys[alg]
	if !ok {
		return Result{}, &UnsupportedAlgorithmError{Name: alg.String()}
	}

	mol, err := smiles.ParseAndValidate(text, trustInput)
	if err != nil {
		return Result{}, err
	}

	bits := NewBitVector(g.bitCount)
	f := newFolder(key, bits)
	switch alg {
	case Morgan:
		morgan(mol, f)
	case RDKit:
		linearPaths(mol, f)
	case AtomPairs:
		atomPairs(mol, f)
	case TopologicalTorsions:
		torsions(mol, f)
	case Avalon:
		featureKeys(mol, f)
	}

	return Result{Bits: bits, Canonical: smiles.Canonical(mol)}, nil
}
