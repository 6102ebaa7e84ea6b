package stableswap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

const moduleName = "stableswap"

var (
	errNilAuthority = errors.New("stableswap: authority not configured")
	errNilCustody   = errors.New("stableswap: custody not configured")
	errNilToken     = errors.New("stableswap: token controller not configured")
	errNilJournal   = errors.New("stableswap: journal not configured")
)

// poolState is the immutable published state of a pool. Balances are
// normalized to 18 decimals. supply is the pool token amount the pool has
// issued and still considers outstanding.
type poolState struct {
	balances      []*uint256.Int
	supply        *uint256.Int
	ramp          Ramp
	fee           uint64
	redemptionFee uint64
	paused        bool
	terminated    bool
	sequence      uint64
}

func (s *poolState) clone() *poolState {
	next := *s
	next.balances = fixedpoint.CloneSlice(s.balances)
	next.supply = fixedpoint.Clone(s.supply)
	return &next
}

// Pool is a StableSwap pool over a fixed set of coins whose pool token supply
// tracks the invariant D.
type Pool struct {
	mu sync.Mutex

	name         string
	coins        []common.Address
	precisions   []*uint256.Int
	poolToken    common.Address
	feeRecipient common.Address

	auth    *nativecommon.Authority
	custody AssetTransfer
	token   TokenController
	journal Journal
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() time.Time

	state atomic.Pointer[poolState]
}

// NewPool validates cfg and returns an empty pool.
func NewPool(cfg Config, auth *nativecommon.Authority, custody AssetTransfer, token TokenController) (*Pool, error) {
	if auth == nil {
		return nil, errNilAuthority
	}
	if custody == nil {
		return nil, errNilCustody
	}
	if token == nil {
		return nil, errNilToken
	}
	if len(cfg.Coins) == 0 || len(cfg.Coins) != len(cfg.Decimals) {
		return nil, fmt.Errorf("stableswap: coins and decimals must be non-empty and aligned: %w", nativecommon.ErrInvalidArgument)
	}
	if cfg.A == 0 || cfg.A >= MaxA {
		return nil, fmt.Errorf("stableswap: amplification %d out of range: %w", cfg.A, nativecommon.ErrInvalidArgument)
	}
	if !fixedpoint.ValidRate(cfg.Fee) || cfg.RedemptionFee >= fixedpoint.FeeDenominator.Uint64() {
		return nil, fmt.Errorf("stableswap: fee rate out of range: %w", nativecommon.ErrInvalidArgument)
	}
	if nativecommon.IsZeroAddress(cfg.PoolToken) || nativecommon.IsZeroAddress(cfg.FeeRecipient) {
		return nil, fmt.Errorf("stableswap: pool token and fee recipient required: %w", nativecommon.ErrInvalidArgument)
	}
	seen := make(map[common.Address]struct{}, len(cfg.Coins))
	precisions := make([]*uint256.Int, len(cfg.Coins))
	for i, coin := range cfg.Coins {
		if nativecommon.IsZeroAddress(coin) || coin == cfg.PoolToken {
			return nil, fmt.Errorf("stableswap: coin %d invalid: %w", i, nativecommon.ErrInvalidArgument)
		}
		if _, dup := seen[coin]; dup {
			return nil, fmt.Errorf("stableswap: duplicate coin %s: %w", coin.Hex(), nativecommon.ErrInvalidArgument)
		}
		seen[coin] = struct{}{}
		prec, err := fixedpoint.PrecisionFor(cfg.Decimals[i])
		if err != nil {
			return nil, fmt.Errorf("stableswap: coin %d: %v: %w", i, err, nativecommon.ErrInvalidArgument)
		}
		precisions[i] = prec
	}
	name := cfg.Name
	if name == "" {
		name = moduleName
	}
	p := &Pool{
		name:         name,
		coins:        append([]common.Address(nil), cfg.Coins...),
		precisions:   precisions,
		poolToken:    cfg.PoolToken,
		feeRecipient: cfg.FeeRecipient,
		auth:         auth,
		custody:      custody,
		token:        token,
		emitter:      events.NoopEmitter{},
		logger:       slog.Default(),
		nowFn:        time.Now,
	}
	if j, ok := custody.(Journal); ok {
		p.journal = j
	}
	balances := make([]*uint256.Int, len(cfg.Coins))
	for i := range balances {
		balances[i] = new(uint256.Int)
	}
	p.state.Store(&poolState{
		balances:      balances,
		supply:        new(uint256.Int),
		ramp:          Ramp{InitialA: cfg.A, FutureA: cfg.A},
		fee:           cfg.Fee,
		redemptionFee: cfg.RedemptionFee,
	})
	return p, nil
}

func (p *Pool) SetJournal(j Journal) { p.journal = j }

// SetEmitter configures the event emitter used by the pool. Passing nil resets
// the emitter to a no-op implementation.
func (p *Pool) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

// SetLogger overrides the structured logger.
func (p *Pool) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	p.logger = logger.With("module", moduleName, "pool", p.name)
}

// SetNowFunc overrides the clock used for amplification ramping. Primarily
// used in tests.
func (p *Pool) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	p.nowFn = now
}

func (p *Pool) now() time.Time { return p.nowFn() }

// Coins returns the pool's coins in index order.
func (p *Pool) Coins() []common.Address { return append([]common.Address(nil), p.coins...) }

// PoolToken returns the asset id of the pool token.
func (p *Pool) PoolToken() common.Address { return p.poolToken }

// Balances returns the normalized reserves in index order.
func (p *Pool) Balances() []*uint256.Int { return fixedpoint.CloneSlice(p.state.Load().balances) }

// TotalSupply returns the outstanding pool token amount.
func (p *Pool) TotalSupply() *uint256.Int { return fixedpoint.Clone(p.state.Load().supply) }

func (p *Pool) Fee() uint64           { return p.state.Load().fee }
func (p *Pool) RedemptionFee() uint64 { return p.state.Load().redemptionFee }
func (p *Pool) Paused() bool          { return p.state.Load().paused }
func (p *Pool) Terminated() bool      { return p.state.Load().terminated }
func (p *Pool) Ramp() Ramp            { return p.state.Load().ramp }
func (p *Pool) Sequence() uint64      { return p.state.Load().sequence }

// A returns the amplification coefficient in effect now.
func (p *Pool) A() uint64 { return p.state.Load().ramp.At(p.now().Unix()) }

// D returns the invariant at the current balances.
func (p *Pool) D() (*uint256.Int, error) {
	st := p.state.Load()
	return p.solveD(st.balances, st.ramp.At(p.now().Unix()))
}

// VirtualPrice returns D per pool token in 18-decimal fixed point, or zero for
// an empty pool.
func (p *Pool) VirtualPrice() (*uint256.Int, error) {
	st := p.state.Load()
	if st.supply.IsZero() {
		return new(uint256.Int), nil
	}
	d, err := p.solveD(st.balances, st.ramp.At(p.now().Unix()))
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(d, fixedpoint.One, st.supply)
}

// StateRoot commits to balances, supply, fee parameters, ramp and status.
func (p *Pool) StateRoot() [32]byte {
	st := p.state.Load()
	h := blake3.New(32, nil)
	h.Write([]byte(p.name))
	writeUint := func(v uint64) {
		word := uint256.NewInt(v).Bytes32()
		h.Write(word[:])
	}
	writeUint(st.sequence)
	for i, bal := range st.balances {
		word := bal.Bytes32()
		h.Write(p.coins[i].Bytes())
		h.Write(word[:])
	}
	supply := st.supply.Bytes32()
	h.Write(supply[:])
	writeUint(st.fee)
	writeUint(st.redemptionFee)
	writeUint(st.ramp.InitialA)
	writeUint(st.ramp.FutureA)
	writeUint(uint64(st.ramp.InitialTime))
	writeUint(uint64(st.ramp.FutureTime))
	var flags byte
	if st.paused {
		flags |= 1
	}
	if st.terminated {
		flags |= 2
	}
	h.Write([]byte{flags})
	var root [32]byte
	copy(root[:], h.Sum(nil))
	return root
}

func (p *Pool) solveD(xp []*uint256.Int, a uint64) (*uint256.Int, error) {
	sol, err := ComputeD(xp, a)
	if err != nil {
		return nil, err
	}
	p.observeSolve("d", sol)
	return sol.Value, nil
}

func (p *Pool) solveY(xp []*uint256.Int, index int, d *uint256.Int, a uint64) (*uint256.Int, error) {
	sol, err := ComputeY(xp, index, d, a)
	if err != nil {
		return nil, err
	}
	p.observeSolve("y", sol)
	return sol.Value, nil
}

func (p *Pool) observeSolve(solver string, sol Solution) {
	observability.Solver().ObserveSolve(solver, sol.Iterations, sol.Converged)
	if !sol.Converged {
		p.logger.Warn("invariant solver did not converge",
			"solver", solver, "iterations", sol.Iterations, "value", sol.Value.Dec())
	}
}

// poolTx stages one pool operation.
type poolTx struct {
	pool   *Pool
	state  *poolState
	now    time.Time
	a      uint64
	events events.Buffer
	opID   string
}

func (tx *poolTx) requireActive() error {
	if tx.state.terminated {
		return fmt.Errorf("pool terminated: %w", nativecommon.ErrNotActive)
	}
	if tx.state.paused {
		return fmt.Errorf("pool paused: %w", nativecommon.ErrNotActive)
	}
	return nil
}

func (p *Pool) execute(ctx context.Context, op string, fn func(tx *poolTx) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := tracing.Start(ctx, moduleName, op)
	defer func() {
		observability.Engines().Observe(moduleName, op, time.Since(start), err)
		tracing.End(span, err)
		if err != nil {
			p.logger.Debug("pool operation rejected", "op", op, "err", err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.journal == nil {
		return errNilJournal
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.state.Load()
	now := p.now()
	tx := &poolTx{
		pool:  p,
		state: prev.clone(),
		now:   now,
		a:     prev.ramp.At(now.Unix()),
		opID:  nativecommon.OperationID(p.name, prev.sequence+1),
	}
	snap := p.journal.Snapshot()
	if err := fn(tx); err != nil {
		p.journal.RevertToSnapshot(snap)
		tx.events.Discard()
		return fmt.Errorf("stableswap %s: %w", op, err)
	}
	if c, ok := p.journal.(Committer); ok {
		c.DiscardSnapshot(snap)
	}
	tx.state.sequence++
	p.state.Store(tx.state)
	tx.events.Flush(p.emitter)
	return nil
}

// collect mints the pool token backing any invariant growth not yet covered
// by the supply to the fee recipient. It returns the amount minted.
func (tx *poolTx) collect() (*uint256.Int, error) {
	d, err := tx.pool.solveD(tx.state.balances, tx.a)
	if err != nil {
		return nil, err
	}
	if !d.Gt(tx.state.supply) {
		return new(uint256.Int), nil
	}
	growth := new(uint256.Int).Sub(d, tx.state.supply)
	if err := tx.pool.token.Mint(tx.pool.feeRecipient, tx.pool.poolToken, growth); err != nil {
		return nil, err
	}
	tx.state.supply = d
	return growth, nil
}

func (p *Pool) checkIndex(i int) error {
	if i < 0 || i >= len(p.coins) {
		return fmt.Errorf("coin index %d out of range: %w", i, nativecommon.ErrInvalidArgument)
	}
	return nil
}
