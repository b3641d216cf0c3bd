// Package fingerprint computes fixed-length binary fingerprints of
// chemical structures.
//
// A Generator turns structure text into a Result holding bit_count/8
// fingerprint bytes and the canonical structure text. Bit i of a
// fingerprint is stored in byte i/8 at position i%8 (least significant
// bit first).
//
// The built-in generator parses SMILES and supports five algorithms:
// Morgan (circular environments of radius 2), RDKit (linear paths of
// one to seven bonds), AtomPairs, TopologicalTorsions and Avalon (a
// substructure feature-key set). Features are folded into the bit vector
// with BLAKE3 keyed hashes, one key per algorithm.
package fingerprint
