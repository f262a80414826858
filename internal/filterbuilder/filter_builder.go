// Package filterbuilder constructs the subscription filter map handed to
// the upstream stream so that OR-across-programs admission is correctly
// composed from a primitive that only natively expresses AND within a
// single filter entry.
package filterbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ConfigError is returned for any problem in the tracked-program list
// itself — an empty list or an identity that does not decode as a
// base58 public key. It is fatal at startup per spec.md §7(6).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filterbuilder: config error: %s", e.Reason)
}

// Filter is one entry of the subscription map: account_required composes
// its members with AND (here always exactly one identity), and the
// upstream composes filter-map entries with OR. One filter per tracked
// program is therefore the only shape that expresses "touches any
// tracked program" — concatenating identities into one entry's
// account_required would instead require all of them simultaneously,
// the historical defect this package exists to prevent.
type Filter struct {
	Vote             bool     `json:"vote"`
	Failed           bool     `json:"failed"`
	AccountRequired  []string `json:"account_required"`
	AccountInclude   []string `json:"account_include"`
	AccountExclude   []string `json:"account_exclude"`
}

// Build produces one named Filter per program identity in programIDs,
// keyed "<name>_filter". names must be the same length as programIDs and
// in the same order; it supplies the human-readable key component (the
// registry's name for that identity).
func Build(programIDs []string, names []string) (map[string]Filter, error) {
	if len(programIDs) == 0 {
		return nil, &ConfigError{Reason: "tracked program list is empty"}
	}
	if len(names) != len(programIDs) {
		return nil, &ConfigError{Reason: "names and programIDs length mismatch"}
	}

	filters := make(map[string]Filter, len(programIDs))
	for i, raw := range programIDs {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("unparseable program identity %q: %v", raw, err)}
		}

		key := fmt.Sprintf("%s_filter", names[i])
		if _, exists := filters[key]; exists {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate filter key %q", key)}
		}

		filters[key] = Filter{
			Vote:            false,
			Failed:          false,
			AccountRequired: []string{pk.String()},
			AccountInclude:  []string{},
			AccountExclude:  []string{},
		}
	}

	return filters, nil
}
