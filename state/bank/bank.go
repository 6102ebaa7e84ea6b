// Package bank is an in-memory multi-asset balance store. It implements the
// asset transfer, token controller and journal collaborators consumed by the
// native engines and backs the simulator and engine tests.
package bank

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

var errZeroAddress = errors.New("bank: zero address")

type balanceKey struct {
	holder common.Address
	asset  common.Address
}

// Bank tracks balances per (holder, asset) and total supply per asset.
type Bank struct {
	mu           sync.Mutex
	balances     map[balanceKey]*uint256.Int
	supply       map[common.Address]*uint256.Int
	transferFees map[common.Address]uint64
	logs         []events.Event
	journal      journal
}

// New returns an empty bank.
func New() *Bank {
	return &Bank{
		balances:     make(map[balanceKey]*uint256.Int),
		supply:       make(map[common.Address]*uint256.Int),
		transferFees: make(map[common.Address]uint64),
	}
}

// BalanceOf returns the balance of asset held by holder.
func (b *Bank) BalanceOf(holder, asset common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fixedpoint.Clone(b.balances[balanceKey{holder, asset}])
}

// TotalSupply returns the minted-minus-burned supply of asset.
func (b *Bank) TotalSupply(asset common.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fixedpoint.Clone(b.supply[asset]), nil
}

// SetTransferFee makes every transfer of asset deliver amount minus
// amount*rate/FeeDenominator, burning the difference. It models
// fee-on-transfer tokens.
func (b *Bank) SetTransferFee(asset common.Address, rate uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rate == 0 {
		delete(b.transferFees, asset)
		return
	}
	b.transferFees[asset] = rate
}

// Transfer moves amount of asset from one holder to another.
func (b *Bank) Transfer(from, to, asset common.Address, amount *uint256.Int) error {
	if nativecommon.IsZeroAddress(from) || nativecommon.IsZeroAddress(to) || nativecommon.IsZeroAddress(asset) {
		return errZeroAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if fixedpoint.IsZero(amount) {
		return nil
	}
	return b.atomically(func() error {
		if err := b.debit(from, asset, amount); err != nil {
			return err
		}
		received := fixedpoint.Clone(amount)
		if rate := b.transferFees[asset]; rate > 0 {
			fee, err := fixedpoint.ApplyRate(amount, rate)
			if err != nil {
				return err
			}
			received = new(uint256.Int).Sub(received, fee)
			if err := b.adjustSupply(asset, fee, false); err != nil {
				return err
			}
		}
		return b.credit(to, asset, received)
	})
}

// Mint creates amount of asset for to.
func (b *Bank) Mint(to, asset common.Address, amount *uint256.Int) error {
	if nativecommon.IsZeroAddress(to) || nativecommon.IsZeroAddress(asset) {
		return errZeroAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if fixedpoint.IsZero(amount) {
		return nil
	}
	return b.atomically(func() error {
		if err := b.adjustSupply(asset, amount, true); err != nil {
			return err
		}
		return b.credit(to, asset, amount)
	})
}

// Burn destroys amount of asset held by from.
func (b *Bank) Burn(from, asset common.Address, amount *uint256.Int) error {
	if nativecommon.IsZeroAddress(from) || nativecommon.IsZeroAddress(asset) {
		return errZeroAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if fixedpoint.IsZero(amount) {
		return nil
	}
	return b.atomically(func() error {
		if err := b.debit(from, asset, amount); err != nil {
			return err
		}
		return b.adjustSupply(asset, amount, false)
	})
}

// Logs returns the supply events recorded since the last Finalise. Reverted
// operations leave no logs behind.
func (b *Bank) Logs() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.logs...)
}

// Holders returns every holder with a non-zero balance of asset, sorted.
func (b *Bank) Holders(asset common.Address) []common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []common.Address
	for key, bal := range b.balances {
		if key.asset == asset && !bal.IsZero() {
			out = append(out, key.holder)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// atomically runs fn with the lock held and rolls back its partial changes on
// error.
func (b *Bank) atomically(fn func() error) error {
	mark := len(b.journal.entries)
	if err := fn(); err != nil {
		for i := len(b.journal.entries) - 1; i >= mark; i-- {
			b.journal.entries[i]()
		}
		b.journal.entries = b.journal.entries[:mark]
		return err
	}
	if len(b.journal.revisions) == 0 {
		// no snapshot can reach these entries any more
		b.journal.entries = nil
	}
	return nil
}

func (b *Bank) debit(holder, asset common.Address, amount *uint256.Int) error {
	key := balanceKey{holder, asset}
	prev := fixedpoint.Clone(b.balances[key])
	next, err := fixedpoint.Sub(prev, amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", nativecommon.ErrInsufficientBalance,
			holder.Hex(), prev.Dec(), asset.Hex(), amount.Dec())
	}
	b.setBalance(key, prev, next)
	return nil
}

func (b *Bank) credit(holder, asset common.Address, amount *uint256.Int) error {
	key := balanceKey{holder, asset}
	prev := fixedpoint.Clone(b.balances[key])
	next, err := fixedpoint.Add(prev, amount)
	if err != nil {
		return err
	}
	b.setBalance(key, prev, next)
	return nil
}

func (b *Bank) setBalance(key balanceKey, prev, next *uint256.Int) {
	b.journal.append(func() { b.balances[key] = prev })
	b.balances[key] = next
}

func (b *Bank) adjustSupply(asset common.Address, delta *uint256.Int, increase bool) error {
	prev := fixedpoint.Clone(b.supply[asset])
	var (
		next   *uint256.Int
		err    error
		reason = events.SupplyReasonMint
	)
	if increase {
		next, err = fixedpoint.Add(prev, delta)
	} else {
		next, err = fixedpoint.Sub(prev, delta)
		reason = events.SupplyReasonBurn
	}
	if err != nil {
		return err
	}
	b.journal.append(func() { b.supply[asset] = prev })
	b.supply[asset] = next
	b.appendLog(events.TokenSupply{Token: asset, Total: fixedpoint.Clone(next), Delta: fixedpoint.Clone(delta), Reason: reason})
	return nil
}

func (b *Bank) appendLog(evt events.Event) {
	size := len(b.logs)
	b.journal.append(func() { b.logs = b.logs[:size] })
	b.logs = append(b.logs, evt)
}
