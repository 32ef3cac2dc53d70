// Package publisher writes the matching core's event stream to durable
// binary segment files: one trade stream and one book-update stream,
// each rotated by size with an rs/xid-stamped segment name. Grounded on
// the append-only WAL shape (os.OpenFile with O_APPEND, mutex-guarded
// Append, explicit Sync) and on the teacher's Publisher/TradePublisher
// split, generalized from an in-memory slice to a pair of on-disk
// binary streams.
package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

// DefaultMaxSegmentBytes bounds how large one segment file grows before
// Log rotates to a new one.
const DefaultMaxSegmentBytes = 64 << 20 // 64 MiB

// Log is a durable, append-only sink for trade and book-update events,
// each written to its own rotating binary stream under dir. Its Publish
// takes the symbol index ahead of the events, so it does not satisfy
// match.Publisher. Every Event it's handed that is a trade or a book
// update is written; anything else (reject/cancel/amend) is dropped,
// since spec.md scopes the durable log to fills and top-of-book.
type Log struct {
	dir            string
	maxSegmentSize int64

	mu          sync.Mutex
	tradeFile   *os.File
	tradeBytes  int64
	bookFile    *os.File
	bookBytes   int64
}

// Open creates (or reuses) dir and opens an initial trade and
// book-update segment inside it.
func Open(dir string, maxSegmentSize int64) (*Log, error) {
	if maxSegmentSize <= 0 {
		maxSegmentSize = DefaultMaxSegmentBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("publisher: mkdir %s: %w", dir, err)
	}
	l := &Log{dir: dir, maxSegmentSize: maxSegmentSize}
	var err error
	if l.tradeFile, err = l.newSegment("trades"); err != nil {
		return nil, err
	}
	if l.bookFile, err = l.newSegment("books"); err != nil {
		l.tradeFile.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) newSegment(prefix string) (*os.File, error) {
	name := fmt.Sprintf("%s-%s.bin", prefix, xid.New().String())
	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("publisher: create segment %s: %w", path, err)
	}
	return f, nil
}

// Publish writes each trade/book-update event to its stream, rotating
// a segment first if it would exceed maxSegmentSize. symbolIndex is
// stamped onto every record so a multi-symbol deployment's durable log
// can attribute each one without a side channel; a single-symbol
// deployment just always passes 0.
func (l *Log) Publish(symbolIndex uint32, events ...*match.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		switch e.Type {
		case match.EventTrade:
			l.writeTrade(symbolIndex, e)
		case match.EventBookUpdate:
			l.writeBookUpdate(symbolIndex, e)
		}
	}
}

func (l *Log) writeTrade(symbolIndex uint32, e *match.Event) {
	var rec protocol.TradeRecord
	rec.SequenceID = e.SequenceID
	rec.Ts = uint64(e.Ts)
	rec.SymbolIndex = symbolIndex
	rec.TradeID = e.TradeID
	rec.Price = int64(e.Price)
	rec.Qty = int64(e.Qty)
	rec.TakerOrderID = uint64(e.TakerOrderID)
	rec.TakerUserID = uint64(e.TakerUserID)
	rec.MakerOrderID = uint64(e.MakerOrderID)
	rec.MakerUserID = uint64(e.MakerUserID)
	rec.TakerRemaining = int64(e.TakerRemaining)
	if e.Side == match.Ask {
		rec.TakerSide = protocol.SideAsk
	} else {
		rec.TakerSide = protocol.SideBid
	}

	buf := make([]byte, protocol.TradeRecordSize)
	if err := rec.Encode(buf); err != nil {
		return
	}
	if l.tradeBytes+int64(len(buf)) > l.maxSegmentSize {
		l.rotateTrade()
	}
	n, err := l.tradeFile.Write(buf)
	if err != nil {
		return
	}
	l.tradeBytes += int64(n)
}

func (l *Log) writeBookUpdate(symbolIndex uint32, e *match.Event) {
	var rec protocol.BookUpdateRecord
	rec.SequenceID = e.SequenceID
	rec.Ts = uint64(e.Ts)
	rec.SymbolIndex = symbolIndex
	rec.BestBid = int64(e.BestBid)
	rec.BestAsk = int64(e.BestAsk)
	rec.BidQty = int64(e.BidQty)
	rec.AskQty = int64(e.AskQty)

	buf := make([]byte, protocol.BookUpdateRecordSize)
	if err := rec.Encode(buf); err != nil {
		return
	}
	if l.bookBytes+int64(len(buf)) > l.maxSegmentSize {
		l.rotateBook()
	}
	n, err := l.bookFile.Write(buf)
	if err != nil {
		return
	}
	l.bookBytes += int64(n)
}

func (l *Log) rotateTrade() {
	l.tradeFile.Sync()
	l.tradeFile.Close()
	if f, err := l.newSegment("trades"); err == nil {
		l.tradeFile = f
		l.tradeBytes = 0
	}
}

func (l *Log) rotateBook() {
	l.bookFile.Sync()
	l.bookFile.Close()
	if f, err := l.newSegment("books"); err == nil {
		l.bookFile = f
		l.bookBytes = 0
	}
}

// Close flushes and closes both streams.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err1 := l.tradeFile.Sync()
	err2 := l.tradeFile.Close()
	err3 := l.bookFile.Sync()
	err4 := l.bookFile.Close()
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return err
		}
	}
	return nil
}
