package protocol

import "encoding/binary"

// TradeRecordSize is the fixed stride of one binary trade record in
// the output log publisher.Log writes.
const TradeRecordSize = 88

// TradeRecord is the fixed-width binary encoding of one EventTrade,
// written by publisher.Log to its trade stream. Layout mirrors
// CommandRecord's convention: every field at an explicit byte offset
// via binary.NativeEndian. Ts and SymbolIndex let a downstream reader
// replaying a multi-symbol log attribute and order every record
// without cross-referencing anything outside the record itself.
//
//	offset  size  field
//	0       8     SequenceID uint64
//	8       8     Ts         uint64 (nanoseconds)
//	16      4     SymbolIndex uint32
//	20      8     TradeID    uint64
//	28      8     Price      int64
//	36      8     Qty        int64
//	44      8     TakerOrderID uint64
//	52      8     TakerUserID  uint64
//	60      8     MakerOrderID uint64
//	68      8     MakerUserID  uint64
//	76      8     TakerRemaining int64
//	84      4     padding: taker side is folded into TradeID's top bit
//	by the writer rather than spending another 4 bytes on one flag -
//	see Encode/Decode and tradeIDSideBit. 88 bytes total.
type TradeRecord struct {
	SequenceID     uint64
	Ts             uint64
	SymbolIndex    uint32
	TradeID        uint64
	Price          int64
	Qty            int64
	TakerOrderID   uint64
	TakerUserID    uint64
	MakerOrderID   uint64
	MakerUserID    uint64
	TakerRemaining int64
	TakerSide      Side
}

// tradeIDSideBit marks the taker side in TradeID's otherwise-unused top
// bit, since real trade IDs are monotonically assigned and never reach
// 1<<63 in the lifetime of one symbol's log.
const tradeIDSideBit = uint64(1) << 63

func (r *TradeRecord) Encode(buf []byte) error {
	if len(buf) < TradeRecordSize {
		return errShortCommandRecord
	}
	tid := r.TradeID
	if r.TakerSide == SideAsk {
		tid |= tradeIDSideBit
	}
	binary.NativeEndian.PutUint64(buf[0:8], r.SequenceID)
	binary.NativeEndian.PutUint64(buf[8:16], r.Ts)
	binary.NativeEndian.PutUint32(buf[16:20], r.SymbolIndex)
	binary.NativeEndian.PutUint64(buf[20:28], tid)
	binary.NativeEndian.PutUint64(buf[28:36], uint64(r.Price))
	binary.NativeEndian.PutUint64(buf[36:44], uint64(r.Qty))
	binary.NativeEndian.PutUint64(buf[44:52], r.TakerOrderID)
	binary.NativeEndian.PutUint64(buf[52:60], r.TakerUserID)
	binary.NativeEndian.PutUint64(buf[60:68], r.MakerOrderID)
	binary.NativeEndian.PutUint64(buf[68:76], r.MakerUserID)
	binary.NativeEndian.PutUint64(buf[76:84], uint64(r.TakerRemaining))
	binary.NativeEndian.PutUint32(buf[84:88], 0)
	return nil
}

func (r *TradeRecord) Decode(buf []byte) error {
	if len(buf) < TradeRecordSize {
		return errShortCommandRecord
	}
	r.SequenceID = binary.NativeEndian.Uint64(buf[0:8])
	r.Ts = binary.NativeEndian.Uint64(buf[8:16])
	r.SymbolIndex = binary.NativeEndian.Uint32(buf[16:20])
	tid := binary.NativeEndian.Uint64(buf[20:28])
	if tid&tradeIDSideBit != 0 {
		r.TakerSide = SideAsk
	} else {
		r.TakerSide = SideBid
	}
	r.TradeID = tid &^ tradeIDSideBit
	r.Price = int64(binary.NativeEndian.Uint64(buf[28:36]))
	r.Qty = int64(binary.NativeEndian.Uint64(buf[36:44]))
	r.TakerOrderID = binary.NativeEndian.Uint64(buf[44:52])
	r.TakerUserID = binary.NativeEndian.Uint64(buf[52:60])
	r.MakerOrderID = binary.NativeEndian.Uint64(buf[60:68])
	r.MakerUserID = binary.NativeEndian.Uint64(buf[68:76])
	r.TakerRemaining = int64(binary.NativeEndian.Uint64(buf[76:84]))
	return nil
}

// BookUpdateRecordSize is the fixed stride of one binary book-update
// record in the output log publisher.Log writes.
const BookUpdateRecordSize = 52

// BookUpdateRecord is the fixed-width binary encoding of one
// EventBookUpdate, carrying only top-of-book per side — the same
// limitation as match.Event.BookUpdate fields, since there is no
// per-level depth upstream of this record to serialize.
//
//	offset  size  field
//	0       8     SequenceID uint64
//	8       8     Ts         uint64 (nanoseconds)
//	16      4     SymbolIndex uint32
//	20      8     BestBid    int64
//	28      8     BestAsk    int64
//	36      8     BidQty     int64
//	44      8     AskQty     int64
type BookUpdateRecord struct {
	SequenceID  uint64
	Ts          uint64
	SymbolIndex uint32
	BestBid     int64
	BestAsk     int64
	BidQty      int64
	AskQty      int64
}

func (r *BookUpdateRecord) Encode(buf []byte) error {
	if len(buf) < BookUpdateRecordSize {
		return errShortCommandRecord
	}
	binary.NativeEndian.PutUint64(buf[0:8], r.SequenceID)
	binary.NativeEndian.PutUint64(buf[8:16], r.Ts)
	binary.NativeEndian.PutUint32(buf[16:20], r.SymbolIndex)
	binary.NativeEndian.PutUint64(buf[20:28], uint64(r.BestBid))
	binary.NativeEndian.PutUint64(buf[28:36], uint64(r.BestAsk))
	binary.NativeEndian.PutUint64(buf[36:44], uint64(r.BidQty))
	binary.NativeEndian.PutUint64(buf[44:52], uint64(r.AskQty))
	return nil
}

func (r *BookUpdateRecord) Decode(buf []byte) error {
	if len(buf) < BookUpdateRecordSize {
		return errShortCommandRecord
	}
	r.SequenceID = binary.NativeEndian.Uint64(buf[0:8])
	r.Ts = binary.NativeEndian.Uint64(buf[8:16])
	r.SymbolIndex = binary.NativeEndian.Uint32(buf[16:20])
	r.BestBid = int64(binary.NativeEndian.Uint64(buf[20:28]))
	r.BestAsk = int64(binary.NativeEndian.Uint64(buf[28:36]))
	r.BidQty = int64(binary.NativeEndian.Uint64(buf[36:44]))
	r.AskQty = int64(binary.NativeEndian.Uint64(buf[44:52]))
	return nil
}
