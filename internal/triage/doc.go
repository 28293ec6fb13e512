// Package triage implements the core of sift's intake triage pipeline.
// It defines the RuleEngine (ordered deterministic heuristics), the
// context merger (rules + similarity neighbors), the Verifier (oracle
// call with deterministic fallback), the Service (per-request
// orchestration and corrections), the Store interface (persistence),
// and the domain models.
package triage
