// Package testutil provides testing utilities for fpdb.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source, SMILES line fixtures and a
// deterministic fake fingerprint generator.
//
// # Line Fixtures
//
//	rng := testutil.NewRNG(seed)
//	lines := rng.SMILESLines(1000)   // "<smiles> <id>" lines
//	text := testutil.JoinLines(lines)
//
// # Fake Generator
//
//	gen := testutil.NewFakeGenerator(1024)
//	gen.FailOn("C1CC")                // Generate returns an error
//	gen.Jitter(rng, time.Millisecond) // random per-call delay
package testutil
