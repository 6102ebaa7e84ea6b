package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/types"
)

const (
	// TypeBasketMinted is emitted when underlying assets are deposited for basket tokens.
	TypeBasketMinted = "basket.minted"
	// TypeBasketRedeemed is emitted when basket tokens are redeemed for an underlying asset.
	TypeBasketRedeemed = "basket.redeemed"
	// TypeBasketSwapped is emitted when one underlying asset is swapped for another.
	TypeBasketSwapped = "basket.swapped"
)

type BasketMinted struct {
	OpID         string
	Source       common.Address
	Asset        common.Address
	Amount       *uint256.Int
	MintedAmount *uint256.Int
	FeeAmount    *uint256.Int
}

func (BasketMinted) EventType() string { return TypeBasketMinted }

func (e BasketMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeBasketMinted,
		Attributes: map[string]string{
			"opId":         e.OpID,
			"source":       formatAddress(e.Source),
			"asset":        formatAddress(e.Asset),
			"amount":       formatAmount(e.Amount),
			"mintedAmount": formatAmount(e.MintedAmount),
			"feeAmount":    formatAmount(e.FeeAmount),
		},
	}
}

type BasketRedeemed struct {
	OpID             string
	Source           common.Address
	Asset            common.Address
	Amount           *uint256.Int
	RedemptionAmount *uint256.Int
	FeeAmount        *uint256.Int
}

func (BasketRedeemed) EventType() string { return TypeBasketRedeemed }

func (e BasketRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeBasketRedeemed,
		Attributes: map[string]string{
			"opId":             e.OpID,
			"source":           formatAddress(e.Source),
			"asset":            formatAddress(e.Asset),
			"amount":           formatAmount(e.Amount),
			"redemptionAmount": formatAmount(e.RedemptionAmount),
			"feeAmount":        formatAmount(e.FeeAmount),
		},
	}
}

type BasketSwapped struct {
	OpID         string
	Source       common.Address
	InputAsset   common.Address
	OutputAsset  common.Address
	Amount       *uint256.Int
	OutputAmount *uint256.Int
	InputFee     *uint256.Int
	OutputFee    *uint256.Int
}

func (BasketSwapped) EventType() string { return TypeBasketSwapped }

func (e BasketSwapped) Event() *types.Event {
	return &types.Event{
		Type: TypeBasketSwapped,
		Attributes: map[string]string{
			"opId":         e.OpID,
			"source":       formatAddress(e.Source),
			"inputAsset":   formatAddress(e.InputAsset),
			"outputAsset":  formatAddress(e.OutputAsset),
			"amount":       formatAmount(e.Amount),
			"outputAmount": formatAmount(e.OutputAmount),
			"inputFee":     formatAmount(e.InputFee),
			"outputFee":    formatAmount(e.OutputFee),
		},
	}
}
