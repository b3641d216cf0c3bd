package testutil

import (
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/fpdb/fingerprint"
)

// ErrFake is returned by FakeGenerator for structures registered with FailOn.
var ErrFake = errors.New("testutil: fake fingerprint failure")

// FakeGenerator is a deterministic fingerprint.Generator that does not
// parse chemistry. The canonical text is the upper-cased input and the
// fingerprint sets bits derived from an FNV hash of the text.
type FakeGenerator struct {
	bitCount int

	mu     sync.Mutex
	fail   map[string]bool
	rng    *RNG
	jitter time.Duration
	calls  int
}

// NewFakeGenerator returns a FakeGenerator producing bitCount-bit fingerprints.
func NewFakeGenerator(bitCount int) *FakeGenerator {
	return &FakeGenerator{bitCount: bitCount, fail: make(map[string]bool)}
}

// FailOn makes Generate fail for text.
func (g *FakeGenerator) FailOn(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[text] = true
}

// Jitter adds a random delay in [0, maxDelay) to every call.
func (g *FakeGenerator) Jitter(rng *RNG, maxDelay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng, g.jitter = rng, maxDelay
}

// Calls returns the number of Generate calls.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// BitCount returns the fingerprint length in bits.
func (g *FakeGenerator) BitCount() int {
	return g.bitCount
}

// Generate implements fingerprint.Generator.
func (g *FakeGenerator) Generate(text string, alg fingerprint.Algorithm, _ bool) (fingerprint.Result, error) {
	g.mu.Lock()
	g.calls++
	fail := g.fail[text]
	var delay time.Duration
	if g.rng != nil && g.jitter > 0 {
		delay = time.Duration(g.rng.Intn(int(g.jitter)))
	}
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !alg.Valid() {
		return fingerprint.Result{}, &fingerprint.UnsupportedAlgorithmError{Name: alg.String()}
	}
	if fail {
		return fingerprint.Result{}, ErrFake
	}
	return fingerprint.Result{Bits: FakeBits(text, alg, g.bitCount), Canonical: strings.ToUpper(text)}, nil
}

// FakeBits returns the fingerprint FakeGenerator produces for text.
func FakeBits(text string, alg fingerprint.Algorithm, bitCount int) []byte {
	bits := fingerprint.NewBitVector(bitCount)
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(alg)})
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()
	for i := 0; i < 4; i++ {
		bits.Set(int(sum % uint64(bitCount)))
		sum = sum*0x9E3779B97F4A7C15 + 1
	}
	return bits
}
