package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Molecules is a pool of valid SMILES strings used by the fixtures.
var Molecules = []string{
	"CCO",
	"CC(=O)O",
	"c1ccccc1",
	"Cc1ccccc1",
	"Oc1ccccc1",
	"c1ccncc1",
	"CC(=O)Oc1ccccc1C(=O)O",
	"CN1C=NC2=C1C(=O)N(C(=O)N2C)C",
	"C1CCCCC1",
	"CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	"N[C@@H](C)C(=O)O",
	"C[N+](=O)[O-]",
	"OC(=O)c1ccccc1O",
	"F/C=C/F",
	"ClC(Cl)Cl",
	"c1ccc2ccccc2c1",
}

// SMILESLines returns n "<smiles> <identifier>" lines drawn from Molecules.
// Identifiers are unique.
func (r *RNG) SMILESLines(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, n)
	for i := range n {
		lines[i] = fmt.Sprintf("%s ID%07d", Molecules[r.rand.Intn(len(Molecules))], i)
	}
	return lines
}

// JoinLines joins lines with newlines, including a trailing newline.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
