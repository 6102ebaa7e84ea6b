package bank

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account is a view of the bank bound to one custody holder. Engines pull
// assets into and pay assets out of this holder.
type Account struct {
	bank   *Bank
	holder common.Address
}

// Account returns the custody view for holder.
func (b *Bank) Account(holder common.Address) *Account {
	return &Account{bank: b, holder: holder}
}

// Address returns the custody holder.
func (a *Account) Address() common.Address { return a.holder }

// TransferIn moves amount of asset from the supplied holder into custody.
func (a *Account) TransferIn(from, asset common.Address, amount *uint256.Int) error {
	return a.bank.Transfer(from, a.holder, asset, amount)
}

// TransferOut pays amount of asset from custody to the supplied holder.
func (a *Account) TransferOut(to, asset common.Address, amount *uint256.Int) error {
	return a.bank.Transfer(a.holder, to, asset, amount)
}

// CustodyBalance returns the custody balance of asset.
func (a *Account) CustodyBalance(asset common.Address) (*uint256.Int, error) {
	return a.bank.BalanceOf(a.holder, asset), nil
}

// Snapshot delegates to the underlying bank journal.
func (a *Account) Snapshot() int { return a.bank.Snapshot() }

// RevertToSnapshot delegates to the underlying bank journal.
func (a *Account) RevertToSnapshot(id int) { a.bank.RevertToSnapshot(id) }

// DiscardSnapshot delegates to the underlying bank journal.
func (a *Account) DiscardSnapshot(id int) { a.bank.DiscardSnapshot(id) }
