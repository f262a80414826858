// Package registry holds the Tracked-Program Registry: a fixed, injective
// mapping from program identity to a human name, queried by the Scanner
// on every instruction it walks.
//
// Entries are configuration-time constants (built once at startup from
// PROGRAM_FILTERS) and never mutated afterward, so lookups need no
// locking — the same read-only-after-startup posture the teacher's
// configuration takes.
package registry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Registry is a fixed, injective identity→name mapping.
type Registry struct {
	byIdentity map[solana.PublicKey]string
	order      []solana.PublicKey // insertion order, for deterministic iteration
}

// New builds a Registry from an ordered list of (identity, name) pairs.
// Duplicate identities are rejected — the mapping must stay injective.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{byIdentity: make(map[solana.PublicKey]string, len(entries))}
	for _, e := range entries {
		if _, exists := r.byIdentity[e.Identity]; exists {
			return nil, fmt.Errorf("registry: duplicate program identity %s", e.Identity)
		}
		r.byIdentity[e.Identity] = e.Name
		r.order = append(r.order, e.Identity)
	}
	return r, nil
}

// Entry is one (identity, name) pair used to construct a Registry.
type Entry struct {
	Identity solana.PublicKey
	Name     string
}

// Lookup returns the human name for a tracked program identity, and
// false if the identity is not tracked.
func (r *Registry) Lookup(identity solana.PublicKey) (string, bool) {
	name, ok := r.byIdentity[identity]
	return name, ok
}

// Identities returns the tracked program identities in registration
// order.
func (r *Registry) Identities() []solana.PublicKey {
	out := make([]solana.PublicKey, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports how many programs are tracked.
func (r *Registry) Len() int {
	return len(r.order)
}

// DCAProgramName is the human name the registry assigns the dollar-cost
// averaging program; the Durable Writer's DCA bucket writer keys off this
// name rather than a second identity lookup.
const DCAProgramName = "DCA"

// wellKnownNames maps mainnet program identities commonly tracked for
// Solana trade flow to their human name. PROGRAM_FILTERS supplies
// identities at configuration time; this table resolves a name for each
// one the operator is likely to list, with a positional fallback for any
// identity it doesn't recognize so the registry can never fail to build.
var wellKnownNames = map[string]string{
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "RaydiumAMM",
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  "PumpSwap",
	"DCA265Vj8a9CEuX1eb1LWRnDT7uK6q1xMipnNyatn23M": DCAProgramName,
}

// NamesFor resolves a human name for each identity in order, falling
// back to "program_<i>" for any identity not in the well-known table.
func NamesFor(identities []string) []string {
	names := make([]string, len(identities))
	for i, id := range identities {
		if name, ok := wellKnownNames[id]; ok {
			names[i] = name
			continue
		}
		names[i] = fmt.Sprintf("program_%d", i)
	}
	return names
}
