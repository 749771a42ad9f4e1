package types

import "math/big"

// Account holds the native-token balance tracked for a marketplace
// participant. Balances are denominated in the smallest currency unit.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy of the account so callers can mutate the result
// without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}

// EnsureBalances normalises nil balance fields to zero and returns the
// account. A nil receiver yields a fresh zero-balance account.
func (a *Account) EnsureBalances() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}
