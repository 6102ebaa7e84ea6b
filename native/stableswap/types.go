package stableswap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "basketswap/native/common"
)

// AssetTransfer is the custody account holding the pool's coins.
type AssetTransfer = nativecommon.Custody

// TokenController mints, burns and moves the pool token.
type TokenController interface {
	Mint(to, token common.Address, amount *uint256.Int) error
	Burn(from, token common.Address, amount *uint256.Int) error
	Transfer(from, to, token common.Address, amount *uint256.Int) error
}

// Journal snapshots the collaborators so a failed operation can be undone.
// Reverting also undoes changes another engine made through the same
// collaborators after the snapshot; share a journal only between engines
// whose operations do not run concurrently.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Committer releases the snapshot of a successful operation.
type Committer interface {
	DiscardSnapshot(id int)
}

// Fee kinds reported by PoolFeeUpdated.
const (
	FeeKindSwap       = "swap"
	FeeKindRedemption = "redemption"
)

// Config describes a pool at construction time.
type Config struct {
	Name  string
	Coins []common.Address
	// Decimals is index-aligned with Coins; every entry must be at most 18.
	Decimals      []uint8
	A             uint64
	Fee           uint64
	RedemptionFee uint64
	PoolToken     common.Address
	FeeRecipient  common.Address
}
