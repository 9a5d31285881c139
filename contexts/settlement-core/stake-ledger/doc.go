// Package stakeledger implements the custody-backed stake ledger inside the
// settlement-core context.
//
// The module owns participant balances: custody-gated deposits and
// withdrawals with idempotent replay, withdrawal limits that respect stake
// committed to live votes, and balance reads that feed vote weighting in the
// settlement engine.
package stakeledger
