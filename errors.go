package match

import "errors"

// Sentinel errors, returned to the caller rather than panicking. The
// ones Book returns come with a Reject event; ErrShutdown and
// ErrNotFound come from Engine, ErrSequenceGap from AggregatedBook.
// ErrPriceOutOfBand is not returned by Book: a resting residual outside
// a dense ladder's band is discarded without an error. The book remains
// fully consistent after any of these.
var (
	ErrInsufficientLiquidity = errors.New("there is not enough depth to fill the order")
	ErrInvalidParam          = errors.New("the param is invalid")
	ErrInternal              = errors.New("internal server error")
	ErrTimeout               = errors.New("timeout")
	ErrShutdown              = errors.New("order book is shutting down")
	ErrNotFound              = errors.New("not found")

	ErrOrderNotFound      = errors.New("order id not found in index")
	ErrDuplicateOrderID   = errors.New("order id already resting in the book")
	ErrFOKUnfillable      = errors.New("fill-or-kill order cannot be fully filled at submission")
	ErrPostOnlyWouldCross = errors.New("post-only order would have crossed the opposite side")
	ErrStopNotSupported   = errors.New("stop orders require a last-trade-price feed the core does not provide")
	ErrPriceOutOfBand     = errors.New("price is outside the dense ladder's configured band")
	ErrSequenceGap        = errors.New("event sequence gap detected; aggregated book needs a rebuild")
)
