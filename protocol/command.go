package protocol

import (
	"encoding/binary"
	"errors"
)

// CommandRecordSize is the fixed stride of one binary command record.
// feed.Reader memory-maps an input file as a flat array of these and
// casts successive CommandRecordSize-byte windows, so the layout below
// is load-bearing: every field is written and read at an explicit byte
// offset via binary.NativeEndian, never through Go struct layout, to
// keep the on-disk format stable across compiler versions and
// independent of struct padding.
//
// The field list and widths mirror the wire contract literally: a
// command type byte, a nanosecond receive timestamp, the order and
// symbol identifiers, the acting user, price/quantity in ticks/lots,
// the side/order-type/TIF bytes, a four-byte flags word, the
// stop-trigger price used by stop orders, the iceberg display
// quantity, and an expiry timestamp — 72 bytes total, with no bytes
// spent packing small enums into shared bits.
const CommandRecordSize = 72

// CommandRecord is the fixed-width binary encoding of one inbound
// instruction, as produced upstream of the engine (typically by a
// sequencer process) and consumed by feed.Reader. It carries the same
// information as match.Command but flattened into one record shape,
// with fields the recipient command type doesn't use left zero.
//
// SymbolIndex routes the record to one of cmd/matchd's configured
// symbols (an index into its --symbols list, not a string) — every
// record in a file can therefore address any symbol the process
// handles, rather than one file per symbol.
//
// Byte layout (native-endian per field, 72 bytes total):
//
//	offset  size  field
//	0       1     Type        CommandType
//	1       8     Timestamp   uint64 (nanoseconds)
//	9       8     OrderID     uint64
//	17      4     SymbolIndex uint32
//	21      4     UserID      uint32
//	25      8     Price       int64
//	33      8     Qty         int64
//	41      1     Side        Side
//	42      1     OrderType   OrderType
//	43      1     TIF         TimeInForce
//	44      4     Flags       uint32
//	48      8     StopPrice   int64
//	56      8     DisplayQty  int64
//	64      8     Expiry      uint64 (nanoseconds; 0 = no expiry)
type CommandRecord struct {
	Type        CommandType
	Timestamp   uint64
	OrderID     uint64
	SymbolIndex uint32
	UserID      uint32
	Price       int64
	Qty         int64
	Side        Side
	OrderType   OrderType
	TIF         TimeInForce
	Flags       OrderFlags
	StopPrice   int64
	DisplayQty  int64
	Expiry      uint64
}

var errShortCommandRecord = errors.New("protocol: buffer shorter than CommandRecordSize")

// Encode writes r into buf, which must be at least CommandRecordSize
// bytes. Every field is written at its fixed offset explicitly, so the
// result is identical across platforms and Go versions regardless of
// how CommandRecord itself is laid out in memory.
func (r *CommandRecord) Encode(buf []byte) error {
	if len(buf) < CommandRecordSize {
		return errShortCommandRecord
	}
	buf[0] = byte(r.Type)
	binary.NativeEndian.PutUint64(buf[1:9], r.Timestamp)
	binary.NativeEndian.PutUint64(buf[9:17], r.OrderID)
	binary.NativeEndian.PutUint32(buf[17:21], r.SymbolIndex)
	binary.NativeEndian.PutUint32(buf[21:25], r.UserID)
	binary.NativeEndian.PutUint64(buf[25:33], uint64(r.Price))
	binary.NativeEndian.PutUint64(buf[33:41], uint64(r.Qty))
	buf[41] = byte(r.Side)
	buf[42] = byte(r.OrderType)
	buf[43] = byte(r.TIF)
	binary.NativeEndian.PutUint32(buf[44:48], uint32(r.Flags))
	binary.NativeEndian.PutUint64(buf[48:56], uint64(r.StopPrice))
	binary.NativeEndian.PutUint64(buf[56:64], uint64(r.DisplayQty))
	binary.NativeEndian.PutUint64(buf[64:72], r.Expiry)
	return nil
}

// Decode reads a CommandRecord out of buf, which must be at least
// CommandRecordSize bytes.
func (r *CommandRecord) Decode(buf []byte) error {
	if len(buf) < CommandRecordSize {
		return errShortCommandRecord
	}
	r.Type = CommandType(buf[0])
	r.Timestamp = binary.NativeEndian.Uint64(buf[1:9])
	r.OrderID = binary.NativeEndian.Uint64(buf[9:17])
	r.SymbolIndex = binary.NativeEndian.Uint32(buf[17:21])
	r.UserID = binary.NativeEndian.Uint32(buf[21:25])
	r.Price = int64(binary.NativeEndian.Uint64(buf[25:33]))
	r.Qty = int64(binary.NativeEndian.Uint64(buf[33:41]))
	r.Side = Side(buf[41])
	r.OrderType = OrderType(buf[42])
	r.TIF = TimeInForce(buf[43])
	r.Flags = OrderFlags(binary.NativeEndian.Uint32(buf[44:48]))
	r.StopPrice = int64(binary.NativeEndian.Uint64(buf[48:56]))
	r.DisplayQty = int64(binary.NativeEndian.Uint64(buf[56:64]))
	r.Expiry = binary.NativeEndian.Uint64(buf[64:72])
	return nil
}
