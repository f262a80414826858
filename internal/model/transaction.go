// Package model holds the plain data types shared across the ingestion
// pipeline: the externally-provided transaction shape, the internal
// balance-delta and trade-event representations, and the in-memory and
// durable aggregate shapes the Pipeline Engine produces.
package model

import "github.com/gagliardetto/solana-go"

// CompiledInstruction is a single instruction as it appears on the wire:
// a program reference by index into the transaction's account-key vector,
// the account indexes it touches, and opaque instruction data.
type CompiledInstruction struct {
	ProgramIDIndex uint16
	AccountIndexes []uint16
	Data           []byte
}

// InnerInstruction is one instruction inside a CPI group. StackHeight is
// reported by the upstream and reflects nesting depth; the Scanner does
// not need to reconstruct the call tree from it, only observe that it is
// present at arbitrary depth.
type InnerInstruction struct {
	ProgramIDIndex uint16
	AccountIndexes []uint16
	Data           []byte
	StackHeight    *uint16
}

// InnerInstructionGroup attaches a run of inner instructions to the
// top-level instruction that invoked them.
type InnerInstructionGroup struct {
	Index        uint16
	Instructions []InnerInstruction
}

// TokenBalance is one pre- or post- snapshot entry for an SPL token
// account: which account, which mint, how many decimals, and the amount
// in both UI and raw form.
type TokenBalance struct {
	AccountIndex uint16
	Mint         string
	Decimals     uint8
	UIAmount     float64
	Amount       uint64
}

// LoadedAddresses are account keys a transaction references indirectly
// through an address-lookup table rather than inlining them in the
// message's static key list.
type LoadedAddresses struct {
	Writable []solana.PublicKey
	Readonly []solana.PublicKey
}

// Message carries the transaction's static account-key vector and its
// ordered top-level instructions.
type Message struct {
	AccountKeys  []solana.PublicKey
	Instructions []CompiledInstruction
}

// Meta carries everything the Trade Extractor and Scanner need beyond the
// bare instruction tree: balance snapshots, CPI groups, and ALT loads.
// A nil Meta is tolerated by the Scanner (it falls back to top-level-only
// scanning) but makes trade extraction impossible (no balances to diff).
type Meta struct {
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	InnerInstructions []InnerInstructionGroup
	LoadedAddresses   *LoadedAddresses
}

// TransactionRecord is the opaque-to-us shape the upstream stream
// delivers. It is consumed once by the Scanner and then discarded; the
// core never retains a reference to it past the extraction step.
type TransactionRecord struct {
	Signature string
	Message   Message
	Meta      *Meta
}

// AccountKeys returns the effective account-key vector: the message's
// static keys followed, in order, by any keys loaded from address-lookup
// tables (writable loads before readonly loads, matching Solana's own
// account-ordering convention). All index lookups in the Scanner and
// Trade Extractor resolve against this combined vector.
func (t *TransactionRecord) AccountKeys() []solana.PublicKey {
	keys := t.Message.AccountKeys
	if t.Meta == nil || t.Meta.LoadedAddresses == nil {
		return keys
	}
	combined := make([]solana.PublicKey, 0, len(keys)+len(t.Meta.LoadedAddresses.Writable)+len(t.Meta.LoadedAddresses.Readonly))
	combined = append(combined, keys...)
	combined = append(combined, t.Meta.LoadedAddresses.Writable...)
	combined = append(combined, t.Meta.LoadedAddresses.Readonly...)
	return combined
}

// ResolveProgram returns the program public key at index idx in the
// combined account-key vector, and false if idx is out of range. Callers
// (Scanner) are expected to skip the instruction rather than treat an
// out-of-range index as fatal — upstream anomalies are tolerated, not
// propagated.
func ResolveProgram(keys []solana.PublicKey, idx uint16) (solana.PublicKey, bool) {
	if int(idx) >= len(keys) {
		return solana.PublicKey{}, false
	}
	return keys[idx], true
}
