package common

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/fixedpoint"
)

// Custody is the account an engine holds assets in.
type Custody interface {
	Address() ethcommon.Address
	TransferIn(from, asset ethcommon.Address, amount *uint256.Int) error
	TransferOut(to, asset ethcommon.Address, amount *uint256.Int) error
	CustodyBalance(asset ethcommon.Address) (*uint256.Int, error)
}

// PullExact moves amount of asset from holder into custody and fails with
// ErrTransferMismatch unless the custody balance grew by exactly amount.
// Fee-on-transfer and rebasing assets are rejected this way.
func PullExact(c Custody, from, asset ethcommon.Address, amount *uint256.Int) error {
	before, err := c.CustodyBalance(asset)
	if err != nil {
		return err
	}
	if err := c.TransferIn(from, asset, amount); err != nil {
		return err
	}
	after, err := c.CustodyBalance(asset)
	if err != nil {
		return err
	}
	delta, err := fixedpoint.Sub(after, before)
	if err != nil || !delta.Eq(amount) {
		return fmt.Errorf("%w: expected %s of %s, observed %s", ErrTransferMismatch,
			amount.Dec(), asset.Hex(), fixedpoint.AbsDiff(after, before).Dec())
	}
	return nil
}
