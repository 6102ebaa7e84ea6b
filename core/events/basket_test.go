package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestBasketSwappedEvent(t *testing.T) {
	source := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	usdc := common.HexToAddress("0x0000000000000000000000000000000000000101")
	dai := common.HexToAddress("0x0000000000000000000000000000000000000102")
	evt := BasketSwapped{
		OpID:         "basket-7",
		Source:       source,
		InputAsset:   usdc,
		OutputAsset:  dai,
		Amount:       uint256.NewInt(1000),
		OutputAmount: uint256.NewInt(985),
		InputFee:     uint256.NewInt(10),
	}.Event()
	if evt.Type != TypeBasketSwapped {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attr("inputAsset") != usdc.Hex() || evt.Attr("outputAsset") != dai.Hex() {
		t.Fatalf("unexpected assets: %+v", evt.Attributes)
	}
	if evt.Attr("amount") != "1000" || evt.Attr("outputAmount") != "985" || evt.Attr("inputFee") != "10" {
		t.Fatalf("unexpected amounts: %+v", evt.Attributes)
	}
	if evt.Attr("outputFee") != "0" {
		t.Fatalf("nil fee should render as zero, got %q", evt.Attr("outputFee"))
	}
	if evt.Attr("opId") != "basket-7" {
		t.Fatalf("unexpected op id: %s", evt.Attr("opId"))
	}
}

func TestBasketMintedAndRedeemedTypes(t *testing.T) {
	cases := []struct {
		evt  Renderable
		want string
	}{
		{BasketMinted{MintedAmount: uint256.NewInt(950)}, TypeBasketMinted},
		{BasketRedeemed{RedemptionAmount: uint256.NewInt(90)}, TypeBasketRedeemed},
	}
	for _, tc := range cases {
		if tc.evt.EventType() != tc.want || tc.evt.Event().Type != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, tc.evt.EventType())
		}
		if tc.evt.Event().Attr("source") != "" {
			t.Fatalf("zero source should render empty")
		}
	}
}

func TestBufferFlushesInOrder(t *testing.T) {
	var (
		buf Buffer
		rec Recorder
	)
	buf.Emit(BasketMinted{OpID: "basket-1"})
	buf.Emit(nil)
	buf.Emit(BasketSwapped{OpID: "basket-1"})
	buf.Flush(&rec)
	got := rec.Events()
	if len(got) != 2 || got[0].EventType() != TypeBasketMinted || got[1].EventType() != TypeBasketSwapped {
		t.Fatalf("unexpected events: %+v", got)
	}

	buf.Emit(BasketRedeemed{})
	buf.Discard()
	buf.Flush(&rec)
	if len(rec.OfType(TypeBasketRedeemed)) != 0 {
		t.Fatalf("discarded event was flushed")
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("reset kept events")
	}
}
