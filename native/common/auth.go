package common

import (
	"fmt"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Authority carries the privileged identities the engines check callers
// against. It replaces ambient owner state: engines hold a pointer and ask it
// pure questions, and the out-of-scope governance layer rotates identities
// through the setters.
type Authority struct {
	mu            sync.RWMutex
	basketManager ethcommon.Address
	governance    ethcommon.Address
}

// NewAuthority returns an authority with the supplied identities.
func NewAuthority(basketManager, governance ethcommon.Address) *Authority {
	return &Authority{basketManager: basketManager, governance: governance}
}

// BasketManager returns the sole caller allowed to mutate a basket ledger.
func (a *Authority) BasketManager() ethcommon.Address {
	if a == nil {
		return ethcommon.Address{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.basketManager
}

// Governance returns the identity allowed to change pool parameters.
func (a *Authority) Governance() ethcommon.Address {
	if a == nil {
		return ethcommon.Address{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.governance
}

func (a *Authority) SetBasketManager(addr ethcommon.Address) {
	a.mu.Lock()
	a.basketManager = addr
	a.mu.Unlock()
}

func (a *Authority) SetGovernance(addr ethcommon.Address) {
	a.mu.Lock()
	a.governance = addr
	a.mu.Unlock()
}

// IsBasketManager reports whether caller is the configured basket manager. An
// unset manager authorizes nobody.
func (a *Authority) IsBasketManager(caller ethcommon.Address) bool {
	return IsAuthorized(a.BasketManager(), caller)
}

// IsGovernance reports whether caller is the configured governance identity.
func (a *Authority) IsGovernance(caller ethcommon.Address) bool {
	return IsAuthorized(a.Governance(), caller)
}

// RequireBasketManager returns ErrNotAuthorized unless caller is the basket
// manager.
func (a *Authority) RequireBasketManager(caller ethcommon.Address) error {
	if !a.IsBasketManager(caller) {
		return fmt.Errorf("%w: %s is not the basket manager", ErrNotAuthorized, caller.Hex())
	}
	return nil
}

// RequireGovernance returns ErrNotAuthorized unless caller is governance.
func (a *Authority) RequireGovernance(caller ethcommon.Address) error {
	if !a.IsGovernance(caller) {
		return fmt.Errorf("%w: %s is not governance", ErrNotAuthorized, caller.Hex())
	}
	return nil
}

// IsAuthorized is the capability predicate behind every check: the expected
// identity must be set and equal to caller.
func IsAuthorized(expected, caller ethcommon.Address) bool {
	if IsZeroAddress(expected) {
		return false
	}
	return expected == caller
}

// IsZeroAddress reports whether addr is the zero address.
func IsZeroAddress(addr ethcommon.Address) bool {
	return addr == (ethcommon.Address{})
}
