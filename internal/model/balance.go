package model

import "github.com/shopspring/decimal"

// BalanceDelta is the internal representation of a single pre/post
// balance comparison — either the native SOL balance of an account, or
// one SPL token balance of an (account, mint) pair. RawChange carries
// full integer precision (arbitrary magnitude, signed) because a naive
// int64 cannot safely represent post-pre for the full uint64 domain;
// UIChange is the human-scale floating-point delta derived from it.
type BalanceDelta struct {
	AccountIndex    uint16
	Mint            string // empty for native SOL
	RawChange       decimal.Decimal
	UIChange        float64
	Decimals        uint8
	IsNativeSOL     bool
}

// AbsUIChange returns the magnitude of UIChange.
func (d BalanceDelta) AbsUIChange() float64 {
	if d.UIChange < 0 {
		return -d.UIChange
	}
	return d.UIChange
}

// IsInflow reports whether the account's balance increased.
func (d BalanceDelta) IsInflow() bool {
	return d.RawChange.Sign() > 0
}

// IsOutflow reports whether the account's balance decreased.
func (d BalanceDelta) IsOutflow() bool {
	return d.RawChange.Sign() < 0
}
