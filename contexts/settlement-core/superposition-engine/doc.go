// Package superpositionengine implements the proposal settlement engine
// inside the settlement-core context.
//
// The module owns the proposal and event lifecycles, stake-weighted vote
// records with cached tallies, entropy-driven measurement that collapses an
// event to exactly one winning proposal, and the execution gate that applies
// the winner's effect once. It keeps business rules in application/domain
// layers and isolates infrastructure concerns behind ports and adapters.
package superpositionengine
