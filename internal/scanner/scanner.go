// Package scanner recognizes tracked programs anywhere in a transaction's
// instruction tree — top-level or nested behind an arbitrary number of
// cross-program invocations — without decoding any program's
// instruction payload.
package scanner

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/registry"
)

// PathKind distinguishes where in the instruction tree a match was
// found.
type PathKind int

const (
	PathOuter PathKind = iota
	PathInner
)

// Path locates the first match in the transaction's instruction tree.
// For PathOuter, OuterIndex is the top-level instruction index and
// InnerPositions is empty. For PathInner, OuterIndex is the top-level
// instruction the matching inner-instruction group is attached to, and
// InnerPositions holds the position of the match within that group.
type Path struct {
	Kind           PathKind
	OuterIndex     int
	InnerPositions []int
}

// Match is the result of a successful scan.
type Match struct {
	ProgramIdentity solana.PublicKey
	ProgramName     string
	Path            Path
}

// Scanner walks a transaction's instruction tree in a fixed, deterministic
// order looking for the first tracked program.
type Scanner struct {
	registry *registry.Registry
}

// New builds a Scanner over the given Tracked-Program Registry.
func New(reg *registry.Registry) *Scanner {
	return &Scanner{registry: reg}
}

// Scan returns the first match in traversal order, or (Match{}, false) if
// no instruction at any depth touches a tracked program. Traversal order:
// (1) top-level instructions in message order; (2) only if none of those
// match, inner-instruction groups in meta order, and within each group,
// inner instructions in their given order. An instruction whose program
// index is out of range of the resolved account-key vector is skipped,
// not treated as an error — this tolerates upstream anomalies. A nil
// Meta restricts the scan to top-level instructions only.
func (s *Scanner) Scan(tx *model.TransactionRecord) (Match, bool) {
	keys := tx.AccountKeys()

	for i, ix := range tx.Message.Instructions {
		program, ok := model.ResolveProgram(keys, ix.ProgramIDIndex)
		if !ok {
			continue
		}
		if name, tracked := s.registry.Lookup(program); tracked {
			return Match{
				ProgramIdentity: program,
				ProgramName:     name,
				Path:            Path{Kind: PathOuter, OuterIndex: i},
			}, true
		}
	}

	if tx.Meta == nil {
		return Match{}, false
	}

	for _, group := range tx.Meta.InnerInstructions {
		for pos, ix := range group.Instructions {
			program, ok := model.ResolveProgram(keys, ix.ProgramIDIndex)
			if !ok {
				continue
			}
			if name, tracked := s.registry.Lookup(program); tracked {
				return Match{
					ProgramIdentity: program,
					ProgramName:     name,
					Path: Path{
						Kind:           PathInner,
						OuterIndex:     int(group.Index),
						InnerPositions: []int{pos},
					},
				}, true
			}
		}
	}

	return Match{}, false
}
