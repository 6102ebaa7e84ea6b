package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/types"
)

const (
	TypePoolMinted     = "pool.minted"
	TypePoolExchanged  = "pool.exchanged"
	TypePoolRedeemed   = "pool.redeemed"
	TypePoolPaused     = "pool.paused"
	TypePoolUnpaused   = "pool.unpaused"
	TypePoolTerminated = "pool.terminated"
	TypePoolFeeUpdated = "pool.fee_updated"
	TypePoolRampA      = "pool.ramp_a"
	TypePoolStopRampA  = "pool.stop_ramp_a"
)

// Redemption flavours reported in PoolRedeemed.Kind.
const (
	RedeemKindProportion = "proportion"
	RedeemKindSingle     = "single"
	RedeemKindMulti      = "multi"
)

// PoolMinted is emitted when liquidity is deposited into a stable swap pool.
type PoolMinted struct {
	OpID       string
	Provider   common.Address
	Amounts    []*uint256.Int
	OldD       *uint256.Int
	NewD       *uint256.Int
	MintAmount *uint256.Int
	FeeAmount  *uint256.Int
}

func (PoolMinted) EventType() string { return TypePoolMinted }

func (e PoolMinted) Event() *types.Event {
	return &types.Event{
		Type: TypePoolMinted,
		Attributes: map[string]string{
			"opId":       e.OpID,
			"provider":   formatAddress(e.Provider),
			"amounts":    formatAmounts(e.Amounts),
			"oldD":       formatAmount(e.OldD),
			"newD":       formatAmount(e.NewD),
			"mintAmount": formatAmount(e.MintAmount),
			"feeAmount":  formatAmount(e.FeeAmount),
		},
	}
}

// PoolExchanged is emitted when one pool asset is exchanged for another.
type PoolExchanged struct {
	OpID         string
	Buyer        common.Address
	SoldIndex    int
	SoldAmount   *uint256.Int
	BoughtIndex  int
	BoughtAmount *uint256.Int
	FeeAmount    *uint256.Int
}

func (PoolExchanged) EventType() string { return TypePoolExchanged }

func (e PoolExchanged) Event() *types.Event {
	return &types.Event{
		Type: TypePoolExchanged,
		Attributes: map[string]string{
			"opId":         e.OpID,
			"buyer":        formatAddress(e.Buyer),
			"soldIndex":    strconv.Itoa(e.SoldIndex),
			"soldAmount":   formatAmount(e.SoldAmount),
			"boughtIndex":  strconv.Itoa(e.BoughtIndex),
			"boughtAmount": formatAmount(e.BoughtAmount),
			"feeAmount":    formatAmount(e.FeeAmount),
		},
	}
}

// PoolRedeemed is emitted for every redemption flavour. PoolAmount is the
// gross pool token amount taken from the provider, FeeAmount the portion of it
// routed to the fee recipient.
type PoolRedeemed struct {
	OpID       string
	Kind       string
	Provider   common.Address
	Amounts    []*uint256.Int
	OldD       *uint256.Int
	NewD       *uint256.Int
	PoolAmount *uint256.Int
	FeeAmount  *uint256.Int
}

func (PoolRedeemed) EventType() string { return TypePoolRedeemed }

func (e PoolRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypePoolRedeemed,
		Attributes: map[string]string{
			"opId":       e.OpID,
			"kind":       e.Kind,
			"provider":   formatAddress(e.Provider),
			"amounts":    formatAmounts(e.Amounts),
			"oldD":       formatAmount(e.OldD),
			"newD":       formatAmount(e.NewD),
			"poolAmount": formatAmount(e.PoolAmount),
			"feeAmount":  formatAmount(e.FeeAmount),
		},
	}
}

// PoolStatusChanged covers pause, unpause and termination.
type PoolStatusChanged struct {
	Type   string
	Caller common.Address
	At     int64
}

func (e PoolStatusChanged) EventType() string { return e.Type }

func (e PoolStatusChanged) Event() *types.Event {
	return &types.Event{
		Type: e.Type,
		Attributes: map[string]string{
			"caller": formatAddress(e.Caller),
			"at":     intToString(e.At),
		},
	}
}

type PoolFeeUpdated struct {
	Kind    string
	OldRate uint64
	NewRate uint64
}

func (PoolFeeUpdated) EventType() string { return TypePoolFeeUpdated }

func (e PoolFeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePoolFeeUpdated,
		Attributes: map[string]string{
			"kind":    e.Kind,
			"oldRate": uintToString(e.OldRate),
			"newRate": uintToString(e.NewRate),
		},
	}
}

type PoolRampA struct {
	InitialA    uint64
	FutureA     uint64
	InitialTime int64
	FutureTime  int64
}

func (PoolRampA) EventType() string { return TypePoolRampA }

func (e PoolRampA) Event() *types.Event {
	return &types.Event{
		Type: TypePoolRampA,
		Attributes: map[string]string{
			"initialA":    uintToString(e.InitialA),
			"futureA":     uintToString(e.FutureA),
			"initialTime": intToString(e.InitialTime),
			"futureTime":  intToString(e.FutureTime),
		},
	}
}

type PoolStopRampA struct {
	A  uint64
	At int64
}

func (PoolStopRampA) EventType() string { return TypePoolStopRampA }

func (e PoolStopRampA) Event() *types.Event {
	return &types.Event{
		Type: TypePoolStopRampA,
		Attributes: map[string]string{
			"a":  uintToString(e.A),
			"at": intToString(e.At),
		},
	}
}
