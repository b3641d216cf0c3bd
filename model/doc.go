// Package model defines the core types that flow through the fpdb pipeline.
//
// # Record Types
//
//   - Record: canonical structure text, identifier and fingerprint bytes of one input line
//   - Outcome: tagged result of fingerprinting one line (an accepted Record or a skip reason)
//
// # Stream Types
//
//   - StreamKind: one of the three parallel streams stored in a container
//   - StreamOrder: the fixed order in which streams are emitted
//
// Outcomes are constructed only through Accept and Skip:
//
//	out := model.Accept(model.Record{CanonicalText: smi, Identifier: id, Fingerprint: fp})
//	if rec, ok := out.Record(); ok {
//	    acc.Append(rec)
//	}
package model
