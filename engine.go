package match

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Engine owns one Book per symbol, each pinned to its own goroutine and
// reachable only through a buffered command channel — the in-process
// stand-in for the external SPSC ring described at the process-layout
// level. Every Book in an Engine shares the same ladder construction
// (all dense with one band, or all sparse over one backend), chosen
// once at process startup; nothing stops a caller from running two
// Engines with different L side by side. Grounded on the teacher's
// MatchingEngine (sync.Map of markets, EnqueueCommand routing) and
// OrderBook.Start's per-market run loop.
type Engine[L Ladder] struct {
	isShutdown atomic.Bool

	mu      sync.RWMutex
	symbols map[string]*symbolRunner[L]

	newLadderPair func() (bids, asks L)
	onEvent       EngineCallback
	arenaCapacity int32
	indexCapacity int
}

// EngineCallback receives every Event emitted by any symbol in an
// Engine, tagged with the symbol it came from. match.Event itself
// carries no symbol field — a Book has no notion of multiple symbols —
// so the Engine wraps each Book's plain MatchCallback in a closure that
// supplies it, the same way the teacher's MatchingEngine tags routed
// commands with a MarketID at the boundary rather than inside Order.
type EngineCallback func(symbol string, e *Event)

// symbolRunner is the per-symbol actor: one Book, one goroutine, one
// command channel. Every exported Engine method that touches a Book
// goes through cmdChan so the Book itself never needs synchronization.
type symbolRunner[L Ladder] struct {
	symbol  string
	book    *Book[L]
	cmdChan chan engineCommand
	done    chan struct{}
	closed  chan struct{}
	lastSeq atomic.Uint64
}

type engineCommandType uint8

const (
	engCmdNewOrder engineCommandType = iota
	engCmdCancel
	engCmdModify
	engCmdExpireBefore
)

// engineCommand is the unified envelope sent over a symbolRunner's
// cmdChan, mirroring the teacher's single-channel Command with a type
// tag plus a typed payload instead of an any.
type engineCommand struct {
	typ    engineCommandType
	order  NewOrderParams
	cancel CancelParams
	modify ModifyParams
	expiry Timestamp
	resp   chan engineResult
}

type engineResult struct {
	filled    Quantity
	remaining Quantity
	canceled  bool
	expired   int
	err       error
}

// NewEngine constructs an Engine. newLadderPair is called once per
// CreateSymbol and must return two independently-constructed ladders
// (never the same instance for both sides).
func NewEngine[L Ladder](newLadderPair func() (bids, asks L), onEvent EngineCallback, arenaCapacity int32, indexCapacity int) *Engine[L] {
	return &Engine[L]{
		symbols:       make(map[string]*symbolRunner[L]),
		newLadderPair: newLadderPair,
		onEvent:       onEvent,
		arenaCapacity: arenaCapacity,
		indexCapacity: indexCapacity,
	}
}

// CreateSymbol creates and starts the goroutine for a new symbol.
// Returns ErrInvalidParam if the symbol is empty or already exists,
// ErrShutdown if the engine is shutting down.
func (e *Engine[L]) CreateSymbol(symbol string) error {
	_, err := e.addSymbol(symbol, nil)
	return err
}

// RestoreSymbol creates symbol from a previously captured snapshot,
// replaying its resting orders before the symbol's goroutine starts
// accepting commands — mirroring the teacher's RestoreFromSnapshot
// (book.Restore, then go book.Start()).
func (e *Engine[L]) RestoreSymbol(symbol string, snap BookSnapshot) error {
	_, err := e.addSymbol(symbol, &snap)
	return err
}

func (e *Engine[L]) addSymbol(symbol string, snap *BookSnapshot) (*symbolRunner[L], error) {
	if e.isShutdown.Load() {
		return nil, ErrShutdown
	}
	if symbol == "" {
		logger.Warn("refusing to create symbol with empty name")
		return nil, ErrInvalidParam
	}

	e.mu.Lock()
	if _, exists := e.symbols[symbol]; exists {
		e.mu.Unlock()
		logger.Warn("symbol already exists", "symbol", symbol)
		return nil, ErrInvalidParam
	}
	bids, asks := e.newLadderPair()
	var bookCB MatchCallback
	if e.onEvent != nil {
		bookCB = func(ev *Event) { e.onEvent(symbol, ev) }
	}
	book := NewBook[L](bids, asks, e.arenaCapacity, e.indexCapacity, bookCB)
	if snap != nil {
		book.Restore(*snap)
	}
	runner := &symbolRunner[L]{
		symbol:  symbol,
		book:    book,
		cmdChan: make(chan engineCommand, 32768),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	e.symbols[symbol] = runner
	e.mu.Unlock()

	go runner.run()
	return runner, nil
}

func (e *Engine[L]) runner(symbol string) *symbolRunner[L] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.symbols[symbol]
}

// run is the per-symbol goroutine loop: pin to an OS thread the way the
// teacher's OrderBook.Start does, then drain cmdChan until done fires.
func (r *symbolRunner[L]) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.closed)

	for {
		select {
		case <-r.done:
			r.drain()
			return
		case cmd := <-r.cmdChan:
			r.handle(cmd)
		}
	}
}

// drain processes whatever is already queued before the goroutine
// exits, so a Shutdown never silently discards in-flight commands.
func (r *symbolRunner[L]) drain() {
	for {
		select {
		case cmd := <-r.cmdChan:
			r.handle(cmd)
		default:
			return
		}
	}
}

func (r *symbolRunner[L]) handle(cmd engineCommand) {
	var res engineResult
	switch cmd.typ {
	case engCmdNewOrder:
		if cmd.order.Type == OrderTypeLimit {
			res.filled, res.remaining, res.err = r.book.SubmitLimit(cmd.order)
		} else {
			res.filled, res.remaining, res.err = r.book.SubmitMarket(cmd.order)
		}
	case engCmdCancel:
		res.canceled, res.err = r.book.Cancel(cmd.cancel)
	case engCmdModify:
		res.filled, res.remaining, res.err = r.book.Modify(cmd.modify)
	case engCmdExpireBefore:
		res.expired = r.book.ExpireBefore(cmd.expiry)
	}
	r.lastSeq.Add(1)
	if cmd.resp != nil {
		select {
		case cmd.resp <- res:
		default:
		}
	}
}

func (e *Engine[L]) dispatch(ctx context.Context, symbol string, cmd engineCommand) (engineResult, error) {
	if e.isShutdown.Load() {
		return engineResult{}, ErrShutdown
	}
	r := e.runner(symbol)
	if r == nil {
		return engineResult{}, ErrNotFound
	}

	resp := make(chan engineResult, 1)
	cmd.resp = resp

	select {
	case r.cmdChan <- cmd:
	case <-ctx.Done():
		return engineResult{}, ctx.Err()
	}

	select {
	case res := <-resp:
		return res, nil
	case <-ctx.Done():
		return engineResult{}, ctx.Err()
	}
}

// SubmitOrder enqueues a new order on symbol and blocks for its result.
func (e *Engine[L]) SubmitOrder(ctx context.Context, symbol string, p NewOrderParams) (filled, remaining Quantity, err error) {
	res, err := e.dispatch(ctx, symbol, engineCommand{typ: engCmdNewOrder, order: p})
	if err != nil {
		return 0, 0, err
	}
	return res.filled, res.remaining, res.err
}

// CancelOrder cancels a resting order on symbol and blocks for its result.
func (e *Engine[L]) CancelOrder(ctx context.Context, symbol string, p CancelParams) (bool, error) {
	res, err := e.dispatch(ctx, symbol, engineCommand{typ: engCmdCancel, cancel: p})
	if err != nil {
		return false, err
	}
	return res.canceled, res.err
}

// ModifyOrder amends a resting order on symbol and blocks for its result.
func (e *Engine[L]) ModifyOrder(ctx context.Context, symbol string, p ModifyParams) (filled, remaining Quantity, err error) {
	res, err := e.dispatch(ctx, symbol, engineCommand{typ: engCmdModify, modify: p})
	if err != nil {
		return 0, 0, err
	}
	return res.filled, res.remaining, res.err
}

// ExpireBefore synthesizes cancels for every resting order on symbol
// whose expiry has passed ts, returning the count expired.
func (e *Engine[L]) ExpireBefore(ctx context.Context, symbol string, ts Timestamp) (int, error) {
	res, err := e.dispatch(ctx, symbol, engineCommand{typ: engCmdExpireBefore, expiry: ts})
	if err != nil {
		return 0, err
	}
	return res.expired, res.err
}

// Book returns the underlying Book for symbol for read-only queries
// (BestBid, BestAsk, GetOrder, RestingCount), or nil if symbol does not
// exist. Callers must only use the read-only accessors from outside
// the symbol's own goroutine; anything mutating must go through the
// dispatch methods above.
func (e *Engine[L]) Book(symbol string) *Book[L] {
	r := e.runner(symbol)
	if r == nil {
		return nil
	}
	return r.book
}

// Symbols returns the list of currently-registered symbols.
func (e *Engine[L]) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		out = append(out, s)
	}
	return out
}

// Shutdown stops accepting new commands and waits for every symbol
// goroutine to drain its queue and exit, or for ctx to expire.
func (e *Engine[L]) Shutdown(ctx context.Context) error {
	e.isShutdown.Store(true)

	e.mu.RLock()
	runners := make([]*symbolRunner[L], 0, len(e.symbols))
	for _, r := range e.symbols {
		runners = append(runners, r)
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error

	for _, r := range runners {
		wg.Add(1)
		go func(r *symbolRunner[L]) {
			defer wg.Done()
			close(r.done)
			select {
			case <-r.closed:
			case <-ctx.Done():
				errMu.Lock()
				errs = append(errs, ctx.Err())
				errMu.Unlock()
			}
		}(r)
	}

	wg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
