package basket

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "basketswap/native/common"
)

// AssetTransfer moves assets between external holders and the ledger's
// custody account. Implementations may be non-conforming (fee-on-transfer,
// rebasing); the ledger verifies every pull through CustodyBalance.
type AssetTransfer = nativecommon.Custody

// TokenController mints and burns the basket token. The ledger is its sole
// minting authority.
type TokenController interface {
	Mint(to, token common.Address, amount *uint256.Int) error
	Burn(from, token common.Address, amount *uint256.Int) error
}

// Journal snapshots the external collaborators so an aborted operation can
// undo every transfer it already made. Reverting undoes every change made to
// the collaborators after the snapshot, so a journal must not be shared with
// another engine mutating it concurrently.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Committer is implemented by journals that can release a snapshot once the
// operation that took it has succeeded. Journals without it keep their undo
// history until the embedder finalises them.
type Committer interface {
	DiscardSnapshot(id int)
}

// FeeReceiver is notified synchronously after each fee payment. The ledger's
// bookkeeping already reflects the payment when the hook runs. Any ledger
// operation started while hooks run is rejected with ErrReentrantCall,
// whatever context it was given.
type FeeReceiver interface {
	OnFeeReceived(ctx context.Context, asset common.Address, amount *uint256.Int) error
}

// Config holds the static identities of a ledger.
type Config struct {
	// Name distinguishes ledgers in operation ids and logs.
	Name        string
	BasketToken common.Address
	FeeReceiver common.Address
	// Assets lists the underlying assets the ledger accepts. An empty list
	// accepts any non-zero asset.
	Assets []common.Address
	// StrictSwapCheck compares the output reserve against the net output
	// amount instead of the gross input amount.
	StrictSwapCheck bool
}

// AssetBalance is one entry of the ledger's reserve table.
type AssetBalance struct {
	Asset   common.Address
	Balance *uint256.Int
}
