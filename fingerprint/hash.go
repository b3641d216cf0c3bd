package fingerprint

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// domainKey is a 32-byte BLAKE3 key. Each algorithm folds its features
// under its own key so identical feature encodings from different
// algorithms land on unrelated bits.
type domainKey [32]byte

// newDomainKey returns name in ASCII, zero-padded to 32 bytes.
func newDomainKey(name string) domainKey {
	var k domainKey
	copy(k[:], name)
	return k
}

var domainKeys = map[Algorithm]domainKey{
	Morgan:              newDomainKey("fpdb.fingerprint.morgan"),
	RDKit:               newDomainKey("fpdb.fingerprint.rdkit"),
	AtomPairs:           newDomainKey("fpdb.fingerprint.atompairs"),
	TopologicalTorsions: newDomainKey("fpdb.fingerprint.torsions"),
	Avalon:              newDomainKey("fpdb.fingerprint.avalon"),
}

// folder hashes feature encodings into a bit vector. Not safe for
// concurrent use; each Generate call owns one.
type folder struct {
	hasher  *blake3.Hasher
	scratch []byte
	sum     []byte
	bits    BitVector
}

func newFolder(key domainKey, bits BitVector) *folder {
	// NewKeyed only fails for keys that are not 32 bytes long.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &folder{hasher: hasher, bits: bits, sum: make([]byte, 0, 32)}
}

// hash64 returns the keyed hash of the varint encoding of fields.
func (f *folder) hash64(fields ...uint64) uint64 {
	f.scratch = f.scratch[:0]
	for _, v := range fields {
		f.scratch = binary.AppendUvarint(f.scratch, v)
	}
	f.hasher.Reset()
	_, _ = f.hasher.Write(f.scratch)
	f.sum = f.hasher.Sum(f.sum[:0])
	return binary.LittleEndian.Uint64(f.sum)
}

// set folds the feature identified by fields into the bit vector.
func (f *folder) set(fields ...uint64) {
	f.setHash(f.hash64(fields...))
}

func (f *folder) setHash(h uint64) {
	f.bits.Set(int(h % uint64(f.bits.Len())))
}

// signed maps a small signed value onto uint64 for hashing.
func signed(v int) uint64 {
	return uint64(int64(v)<<1) ^ uint64(int64(v)>>63)
}
