package basket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
	"basketswap/observability"
	"basketswap/observability/tracing"
)

const moduleName = "basket"

var (
	errNilAuthority = errors.New("basket ledger: authority not configured")
	errNilCustody   = errors.New("basket ledger: custody not configured")
	errNilToken     = errors.New("basket ledger: token controller not configured")
	errNilJournal   = errors.New("basket ledger: journal not configured")
)

// ledgerState is an immutable view of the reserve table. Operations build a
// new state and publish it atomically, so reads never block and fee hooks
// observe the bookkeeping of the operation that notified them.
type ledgerState struct {
	balances map[common.Address]*uint256.Int
	sequence uint64
}

func (s *ledgerState) clone() *ledgerState {
	next := &ledgerState{
		balances: make(map[common.Address]*uint256.Int, len(s.balances)),
		sequence: s.sequence,
	}
	for asset, bal := range s.balances {
		next.balances[asset] = fixedpoint.Clone(bal)
	}
	return next
}

func (s *ledgerState) balance(asset common.Address) *uint256.Int {
	return fixedpoint.Clone(s.balances[asset])
}

// Ledger is the basket engine: it holds per-asset reserves backing a single
// basket token and applies mint, redeem and swap as atomic operations.
type Ledger struct {
	mu sync.Mutex

	name            string
	basketToken     common.Address
	feeReceiver     common.Address
	assets          map[common.Address]struct{}
	strictSwapCheck bool

	auth    *nativecommon.Authority
	custody AssetTransfer
	token   TokenController
	journal Journal
	feeHook FeeReceiver
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger

	state atomic.Pointer[ledgerState]
	// notifying is set while fee hooks run under mu. Any operation arriving
	// in that window is a hook calling back in, whatever context it carries.
	notifying atomic.Bool
}

// NewLedger constructs a ledger. The custody account doubles as the journal
// when it implements Journal; otherwise SetJournal must be called before the
// first operation.
func NewLedger(cfg Config, auth *nativecommon.Authority, custody AssetTransfer, token TokenController) (*Ledger, error) {
	if auth == nil {
		return nil, errNilAuthority
	}
	if custody == nil {
		return nil, errNilCustody
	}
	if token == nil {
		return nil, errNilToken
	}
	if nativecommon.IsZeroAddress(cfg.BasketToken) {
		return nil, fmt.Errorf("basket ledger: basket token: %w", nativecommon.ErrInvalidArgument)
	}
	if nativecommon.IsZeroAddress(cfg.FeeReceiver) {
		return nil, fmt.Errorf("basket ledger: fee receiver: %w", nativecommon.ErrInvalidArgument)
	}
	name := cfg.Name
	if name == "" {
		name = moduleName
	}
	l := &Ledger{
		name:            name,
		basketToken:     cfg.BasketToken,
		feeReceiver:     cfg.FeeReceiver,
		assets:          make(map[common.Address]struct{}, len(cfg.Assets)),
		strictSwapCheck: cfg.StrictSwapCheck,
		auth:            auth,
		custody:         custody,
		token:           token,
		emitter:         events.NoopEmitter{},
		logger:          slog.Default(),
	}
	for _, asset := range cfg.Assets {
		if nativecommon.IsZeroAddress(asset) || asset == cfg.BasketToken {
			return nil, fmt.Errorf("basket ledger: asset %s: %w", asset.Hex(), nativecommon.ErrInvalidArgument)
		}
		l.assets[asset] = struct{}{}
	}
	if j, ok := custody.(Journal); ok {
		l.journal = j
	}
	l.state.Store(&ledgerState{balances: make(map[common.Address]*uint256.Int)})
	return l, nil
}

// SetJournal configures the snapshot provider used to roll back collaborators.
func (l *Ledger) SetJournal(j Journal) { l.journal = j }

// SetFeeHook configures the fee receiver notification hook. Passing nil
// disables notifications.
func (l *Ledger) SetFeeHook(hook FeeReceiver) { l.feeHook = hook }

// SetEmitter configures the event emitter used by the ledger. Passing nil resets
// the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetLogger overrides the structured logger.
func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger.With("module", moduleName, "ledger", l.name)
}

// SetPauses configures the module pause view consulted before every operation.
// Passing nil disables the check.
func (l *Ledger) SetPauses(p nativecommon.PauseView) { l.pauses = p }

// BasketToken returns the asset id of the basket token.
func (l *Ledger) BasketToken() common.Address { return l.basketToken }

// FeeReceiver returns the fee collector address.
func (l *Ledger) FeeReceiver() common.Address { return l.feeReceiver }

// Balance returns the reserve recorded for asset.
func (l *Ledger) Balance(asset common.Address) *uint256.Int {
	return l.state.Load().balance(asset)
}

// Balances returns the reserve table sorted by asset.
func (l *Ledger) Balances() []AssetBalance {
	st := l.state.Load()
	out := make([]AssetBalance, 0, len(st.balances))
	for asset, bal := range st.balances {
		out = append(out, AssetBalance{Asset: asset, Balance: fixedpoint.Clone(bal)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset.Cmp(out[j].Asset) < 0 })
	return out
}

// TotalReserves sums every reserve. Under correct operation ordering this
// equals the circulating basket token supply.
func (l *Ledger) TotalReserves() (*uint256.Int, error) {
	balances := l.Balances()
	values := make([]*uint256.Int, len(balances))
	for i, entry := range balances {
		values[i] = entry.Balance
	}
	return fixedpoint.Sum(values)
}

// Sequence returns the number of operations applied so far.
func (l *Ledger) Sequence() uint64 { return l.state.Load().sequence }

// StateRoot commits to the reserve table and sequence.
func (l *Ledger) StateRoot() [32]byte {
	st := l.state.Load()
	h := blake3.New(32, nil)
	h.Write([]byte(l.name))
	var seq [8]byte
	for i := 0; i < 8; i++ {
		seq[7-i] = byte(st.sequence >> (8 * i))
	}
	h.Write(seq[:])
	for _, entry := range l.Balances() {
		word := entry.Balance.Bytes32()
		h.Write(entry.Asset.Bytes())
		h.Write(word[:])
	}
	var root [32]byte
	copy(root[:], h.Sum(nil))
	return root
}

type feeNotice struct {
	asset  common.Address
	amount *uint256.Int
}

// ledgerTx stages one operation.
type ledgerTx struct {
	ledger  *Ledger
	state   *ledgerState
	events  events.Buffer
	notices []feeNotice
	opID    string
}

// execute runs fn as one atomic operation. fn stages reserve changes on tx.state
// and performs collaborator transfers; the staged state is published before
// fee hooks run. Any error reverts the journal and the published state.
func (l *Ledger) execute(ctx context.Context, op string, caller common.Address, fn func(tx *ledgerTx) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := tracing.Start(ctx, moduleName, op)
	defer func() {
		observability.Engines().Observe(moduleName, op, time.Since(start), err)
		tracing.End(span, err)
		if err != nil {
			l.logger.Debug("basket operation rejected", "op", op, "caller", caller.Hex(), "err", err)
		}
	}()
	if nativecommon.InOperation(ctx, l) || l.notifying.Load() {
		return fmt.Errorf("basket %s: %w", op, nativecommon.ErrReentrantCall)
	}
	if err := l.auth.RequireBasketManager(caller); err != nil {
		return fmt.Errorf("basket %s: %w", op, err)
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return fmt.Errorf("basket %s: %w", op, err)
	}
	if l.journal == nil {
		return errNilJournal
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state.Load()
	tx := &ledgerTx{
		ledger: l,
		state:  prev.clone(),
		opID:   nativecommon.OperationID(l.name, prev.sequence+1),
	}
	snap := l.journal.Snapshot()
	abort := func(cause error) error {
		l.journal.RevertToSnapshot(snap)
		l.state.Store(prev)
		tx.events.Discard()
		return cause
	}
	if err := fn(tx); err != nil {
		return abort(err)
	}
	tx.state.sequence++
	l.state.Store(tx.state)

	if err := l.notify(nativecommon.WithOperation(ctx, l), tx.notices); err != nil {
		return abort(fmt.Errorf("basket %s: fee hook: %w", op, err))
	}
	if c, ok := l.journal.(Committer); ok {
		c.DiscardSnapshot(snap)
	}
	tx.events.Flush(l.emitter)
	return nil
}

func (l *Ledger) notify(ctx context.Context, notices []feeNotice) error {
	if l.feeHook == nil || len(notices) == 0 {
		return nil
	}
	l.notifying.Store(true)
	defer l.notifying.Store(false)
	for _, notice := range notices {
		if err := l.feeHook.OnFeeReceived(ctx, notice.asset, notice.amount); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) supported(asset common.Address) bool {
	if len(l.assets) == 0 {
		return true
	}
	_, ok := l.assets[asset]
	return ok
}

// pull moves amount of asset from source into custody, verifying the custody
// balance delta.
func (tx *ledgerTx) pull(source, asset common.Address, amount *uint256.Int) error {
	return nativecommon.PullExact(tx.ledger.custody, source, asset, amount)
}

// payFee transfers a fee out of custody to the fee receiver and queues the
// notification.
func (tx *ledgerTx) payFee(asset common.Address, amount *uint256.Int) error {
	if fixedpoint.IsZero(amount) {
		return nil
	}
	if err := tx.ledger.custody.TransferOut(tx.ledger.feeReceiver, asset, amount); err != nil {
		return err
	}
	tx.notify(asset, amount)
	return nil
}

func (tx *ledgerTx) notify(asset common.Address, amount *uint256.Int) {
	tx.notices = append(tx.notices, feeNotice{asset: asset, amount: fixedpoint.Clone(amount)})
}

func (tx *ledgerTx) credit(asset common.Address, amount *uint256.Int) error {
	next, err := fixedpoint.Add(tx.state.balance(asset), amount)
	if err != nil {
		return err
	}
	tx.state.balances[asset] = next
	return nil
}

func (tx *ledgerTx) debit(asset common.Address, amount *uint256.Int) error {
	current := tx.state.balance(asset)
	next, err := fixedpoint.Sub(current, amount)
	if err != nil {
		return fmt.Errorf("%w: reserve %s of %s below %s", nativecommon.ErrInsufficientBalance,
			current.Dec(), asset.Hex(), amount.Dec())
	}
	tx.state.balances[asset] = next
	return nil
}
