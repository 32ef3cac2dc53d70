// Command matchd replays a pre-sequenced binary command file into one
// in-process match.Engine, one goroutine-pinned Book per symbol, and
// durably logs every trade and book update while optionally serving
// them over WebSocket. It is the process-layout counterpart to the
// library packages: feed reads the input, match does the matching,
// publisher and wsserver consume its event stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/feed"
	"github.com/flowbook/matchcore/protocol"
	"github.com/flowbook/matchcore/publisher"
	"github.com/flowbook/matchcore/wsserver"
)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// arenaCapacity and indexCapacity size each symbol's node arena and
// order index up front; both grow by doubling if exceeded, so these
// are starting hints, not hard caps.
const (
	arenaCapacity = 1 << 16
	indexCapacity = 1 << 16

	// maxWalkSteps bounds a dense ladder's best-price rescan.
	maxWalkSteps = 1 << 16

	// defaultWSAddr is where the WebSocket front end listens unless
	// disabled with --ws-addr "".
	defaultWSAddr = ":8080"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type config struct {
	input    string
	output   string
	symbols  []string
	band     *match.PriceBand
	cpuCores []int
	wsAddr   string
}

func parseArgs(args []string) (config, error) {
	fs := flag.NewFlagSet("matchd", flag.ContinueOnError)
	input := fs.String("input", "", "path to the binary command file (required)")
	symbolsFlag := fs.String("symbols", "", "comma-separated list of symbols this process serves (required)")
	output := fs.String("output", "", "directory to write the durable trade/book-update log into (optional)")
	priceBand := fs.String("price-band", "", "min:max tick range; when set, every symbol uses a dense ladder over this band (optional; sparse ladder otherwise)")
	cpuCores := fs.String("cpu-cores", "", "comma-separated OS thread affinity hint (optional)")
	wsAddr := fs.String("ws-addr", defaultWSAddr, `address to serve the WebSocket front end on; "" disables it`)

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	var cfg config
	if *input == "" {
		return config{}, errors.New("--input is required")
	}
	cfg.input = *input

	cfg.symbols = splitNonEmpty(*symbolsFlag, ",")
	if len(cfg.symbols) == 0 {
		return config{}, errors.New("--symbols is required")
	}

	cfg.output = *output
	cfg.wsAddr = *wsAddr

	if *priceBand != "" {
		band, err := parsePriceBand(*priceBand)
		if err != nil {
			return config{}, fmt.Errorf("--price-band: %w", err)
		}
		cfg.band = &band
	}

	if *cpuCores != "" {
		cores, err := parseCPUCores(*cpuCores)
		if err != nil {
			return config{}, fmt.Errorf("--cpu-cores: %w", err)
		}
		cfg.cpuCores = cores
	}

	return cfg, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePriceBand parses "min:max" into a match.PriceBand with a tick
// size of 1 — cmd/matchd's input file already carries prices in ticks,
// so there is no decimal scale to recover here (unlike bridge.Bridge,
// which speaks decimal strings and needs a real tick size per symbol).
func parsePriceBand(s string) (match.PriceBand, error) {
	min, max, ok := strings.Cut(s, ":")
	if !ok {
		return match.PriceBand{}, fmt.Errorf("expected min:max, got %q", s)
	}
	minTick, err := strconv.ParseInt(strings.TrimSpace(min), 10, 64)
	if err != nil {
		return match.PriceBand{}, fmt.Errorf("invalid min %q: %w", min, err)
	}
	maxTick, err := strconv.ParseInt(strings.TrimSpace(max), 10, 64)
	if err != nil {
		return match.PriceBand{}, fmt.Errorf("invalid max %q: %w", max, err)
	}
	if maxTick < minTick {
		return match.PriceBand{}, fmt.Errorf("max %d is below min %d", maxTick, minTick)
	}
	return match.PriceBand{MinTick: match.Tick(minTick), MaxTick: match.Tick(maxTick), TickSize: 1}, nil
}

func parseCPUCores(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid core id %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// run parses arguments, wires the engine, replays the input file, and
// returns the process exit code. A missing or invalid argument is a
// usage error (exit 1); an out-of-band residual at rest time is a soft
// discard inside Book itself (see book.go), not a panic, so the only
// thing left to guard against here is a genuinely unexpected panic
// from somewhere in the replay path.
func run(args []string) (code int) {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "matchd:", err)
		return 1
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unrecovered panic", "value", r)
			code = 1
		}
	}()

	// Go has no portable CPU-affinity call in its standard library (and
	// no library in the retrieval pack wires one as an exercised
	// concern, unlike the original's pin_this_thread/sched_setaffinity).
	// --cpu-cores is honored as a coarse GOMAXPROCS hint plus
	// runtime.LockOSThread on the replay driver; per-symbol goroutines
	// already call runtime.LockOSThread individually inside Engine.
	if len(cfg.cpuCores) > 0 {
		runtime.GOMAXPROCS(len(cfg.cpuCores))
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	reader, err := feed.Open(cfg.input)
	if err != nil {
		logger.Error("open input", "err", err)
		return 1
	}
	defer reader.Close()

	var pub *publisher.Log
	if cfg.output != "" {
		pub, err = publisher.Open(cfg.output, publisher.DefaultMaxSegmentBytes)
		if err != nil {
			logger.Error("open output", "err", err)
			return 1
		}
		defer pub.Close()
	}

	wsHub := wsserver.NewServer()
	if cfg.wsAddr != "" {
		srv := &http.Server{Addr: cfg.wsAddr, Handler: wsHub}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("ws server", "err", err)
			}
		}()
		defer srv.Close()
	}

	if cfg.band != nil {
		newLadderPair := func() (*match.DenseLadder, *match.DenseLadder) {
			return match.NewDenseLadder(*cfg.band, maxWalkSteps), match.NewDenseLadder(*cfg.band, maxWalkSteps)
		}
		if err := replay(newLadderPair, cfg.symbols, reader, pub, wsHub); err != nil {
			logger.Error("replay", "err", err)
			return 1
		}
		return 0
	}

	newLadderPair := func() (*match.SparseLadder, *match.SparseLadder) {
		return match.NewSparseLadder(match.Skiplist, indexCapacity), match.NewSparseLadder(match.Skiplist, indexCapacity)
	}
	if err := replay(newLadderPair, cfg.symbols, reader, pub, wsHub); err != nil {
		logger.Error("replay", "err", err)
		return 1
	}
	return 0
}

// replay wires one Engine[L] over the given ladder constructor, feeds
// it every record in reader in file order, and publishes its event
// stream to pub (if non-nil) and wsHub. L is fixed for the lifetime of
// the process: one deployment picks dense-vs-sparse once, matching
// DESIGN.md's "one process picks dense-vs-sparse once" note.
func replay[L match.Ladder](
	newLadderPair func() (L, L),
	symbols []string,
	reader *feed.Reader,
	pub *publisher.Log,
	wsHub *wsserver.Server,
) error {
	symbolIndex := make(map[string]uint32, len(symbols))
	for i, symbol := range symbols {
		symbolIndex[symbol] = uint32(i)
	}

	wsCB := wsHub.EventCallback()
	onEvent := func(symbol string, e *match.Event) {
		if pub != nil {
			pub.Publish(symbolIndex[symbol], e)
		}
		wsCB(symbol, e)
	}

	eng := match.NewEngine[L](newLadderPair, onEvent, arenaCapacity, indexCapacity)
	for _, symbol := range symbols {
		if err := eng.CreateSymbol(symbol); err != nil {
			return fmt.Errorf("create symbol %s: %w", symbol, err)
		}
	}

	ctx := context.Background()
	n := reader.Len()
	for i := 0; i < n; i++ {
		rec, err := reader.At(i)
		if err != nil {
			return fmt.Errorf("decode record %d: %w", i, err)
		}
		if int(rec.SymbolIndex) >= len(symbols) {
			logger.Warn("record addresses unknown symbol index", "index", rec.SymbolIndex, "record", i)
			continue
		}
		symbol := symbols[rec.SymbolIndex]

		// The host loop owns expiry policy: synthesize cancels for any
		// resting order whose expiry has passed this record's
		// timestamp before applying the record itself.
		if _, err := eng.ExpireBefore(ctx, symbol, match.Timestamp(rec.Timestamp)); err != nil {
			logger.Warn("expire sweep failed", "symbol", symbol, "err", err)
		}

		if err := applyRecord(ctx, eng, symbol, rec); err != nil {
			logger.Warn("command rejected", "symbol", symbol, "order_id", rec.OrderID, "err", err)
		}
	}

	return eng.Shutdown(ctx)
}

func applyRecord[L match.Ladder](ctx context.Context, eng *match.Engine[L], symbol string, rec protocol.CommandRecord) error {
	switch rec.Type {
	case protocol.CmdNewOrder:
		_, _, err := eng.SubmitOrder(ctx, symbol, recordToNewOrderParams(rec))
		return err
	case protocol.CmdCancelOrder:
		_, err := eng.CancelOrder(ctx, symbol, match.CancelParams{
			OrderID:   match.OrderID(rec.OrderID),
			Timestamp: match.Timestamp(rec.Timestamp),
		})
		return err
	case protocol.CmdModifyOrder:
		_, _, err := eng.ModifyOrder(ctx, symbol, match.ModifyParams{
			OrderID:   match.OrderID(rec.OrderID),
			NewPrice:  match.Tick(rec.Price),
			NewQty:    match.Quantity(rec.Qty),
			Timestamp: match.Timestamp(rec.Timestamp),
		})
		return err
	default:
		return fmt.Errorf("unknown command type %d", rec.Type)
	}
}

// recordToNewOrderParams casts a wire record into the core's params.
// protocol's Side/OrderType/TimeInForce/OrderFlags are defined to
// mirror match's numerically (see protocol.CommandRecord's doc
// comment), so no translation table is needed, unlike bridge.Bridge's
// JSON path which must translate between a decimal wire format and
// the core's integer ticks. rec.StopPrice carries the wire's
// stop-trigger price, but the core rejects FlagStop orders outright
// (RejectStopNotSupported) before any stop field would matter, so it
// is decoded and otherwise unused here.
func recordToNewOrderParams(rec protocol.CommandRecord) match.NewOrderParams {
	return match.NewOrderParams{
		OrderID:    match.OrderID(rec.OrderID),
		UserID:     match.UserID(rec.UserID),
		Side:       match.Side(rec.Side),
		Type:       match.OrderType(rec.OrderType),
		TIF:        match.TimeInForce(rec.TIF),
		Price:      match.Tick(rec.Price),
		Qty:        match.Quantity(rec.Qty),
		DisplayQty: match.Quantity(rec.DisplayQty),
		Flags:      match.OrderFlags(rec.Flags),
		Expiry:     match.Timestamp(rec.Expiry),
		Timestamp:  match.Timestamp(rec.Timestamp),
	}
}
