package fingerprint

import (
	"fmt"
)

// Algorithm selects a fingerprint algorithm.
type Algorithm uint8

const (
	Morgan Algorithm = iota + 1
	RDKit
	AtomPairs
	TopologicalTorsions
	Avalon
)

var algorithmNames = map[Algorithm]string{
	Morgan:              "Morgan",
	RDKit:               "RDKit",
	AtomPairs:           "AtomPairs",
	TopologicalTorsions: "TopologicalTorsions",
	Avalon:              "Avalon",
}

// Algorithms returns every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{Morgan, RDKit, AtomPairs, TopologicalTorsions, Avalon}
}

// UnsupportedAlgorithmError is returned for an unknown algorithm name.
type UnsupportedAlgorithmError struct {
	Name string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported fingerprint algorithm %q", e.Name)
}

// ParseAlgorithm returns the algorithm with the given name. Names are
// case-sensitive: Morgan, RDKit, AtomPairs, TopologicalTorsions, Avalon.
func ParseAlgorithm(name string) (Algorithm, error) {
	for alg, n := range algorithmNames {
		if n == name {
			return alg, nil
		}
	}
	return 0, &UnsupportedAlgorithmError{Name: name}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

func (a Algorithm) String() string {
	if n, ok := algorithmNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Algorithm(%d)", uint8(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, &UnsupportedAlgorithmError{Name: a.String()}
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}
