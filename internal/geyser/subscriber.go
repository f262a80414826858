// Package geyser is the boundary to the upstream transaction stream.
// Per the specification the upstream client and its reconnection logic
// are an external collaborator, opaque to the core — this package only
// defines the contract the core consumes and a minimal client adequate
// to exercise it; it does not attempt production-grade reconnection.
package geyser

import (
	"context"

	"github.com/solflowhq/solflow/internal/model"
)

// Subscriber delivers Transaction Records filtered by a subscription
// filter map built by internal/filterbuilder. Implementations own their
// own connection lifecycle; Subscribe blocks until ctx is canceled or an
// unrecoverable error occurs.
type Subscriber interface {
	Subscribe(ctx context.Context, filters map[string]Filter, out chan<- *model.TransactionRecord) error
}

// Filter mirrors filterbuilder.Filter; duplicated here rather than
// imported so this package's wire contract does not couple to the
// filter builder's internal representation.
type Filter struct {
	Vote            bool     `json:"vote"`
	Failed          bool     `json:"failed"`
	AccountRequired []string `json:"account_required"`
	AccountInclude  []string `json:"account_include"`
	AccountExclude  []string `json:"account_exclude"`
}
