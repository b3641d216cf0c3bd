// Package smiles parses SMILES line notation into a molecular graph,
// validates atom valences and writes a normalized SMILES string.
//
// The parser covers the organic subset, bracket atoms (isotope, chirality
// @ and @@, hydrogen count, charge, atom class), the bond symbols
// - = # $ : / \, the disconnection ".", branches and ring closures
// including the two-digit %nn form.
//
// Canonical output ranks atoms by iterative refinement of local invariants
// and writes each connected component depth-first from its lowest ranked
// atom. Tetrahedral parity is carried over to the new neighbor order.
// Aromaticity is taken as written; no kekulization or aromaticity
// perception is performed.
package smiles
