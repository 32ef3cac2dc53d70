package match

// DenseLadder is the array-indexed ladder: O(1) Level/HasLevel/IsValid,
// and a bounded linear rescan to refresh the best price after a
// depletion. Grounded on the original engine's PriceLevelsArray.
type DenseLadder struct {
	band     PriceBand
	levels   []levelFIFO
	occupied []bool
	bestBid  Tick
	bestAsk  Tick

	// maxWalkSteps bounds the rescan in refreshBest-style callers; for
	// the dense ladder a rescan can never exceed the band width anyway,
	// but the cap is still enforced for a uniform failure mode with the
	// sparse ladder.
	maxWalkSteps int
}

func NewDenseLadder(band PriceBand, maxWalkSteps int) *DenseLadder {
	levels := make([]levelFIFO, band.Width())
	for i := range levels {
		levels[i].head = nullIdx
		levels[i].tail = nullIdx
	}
	return &DenseLadder{
		band:         band,
		levels:       levels,
		occupied:     make([]bool, band.Width()),
		bestBid:      EmptyBid,
		bestAsk:      EmptyAsk,
		maxWalkSteps: maxWalkSteps,
	}
}

func (d *DenseLadder) idx(px Tick) int64 { return int64(px - d.band.MinTick) }

func (d *DenseLadder) IsValid(px Tick) bool { return d.band.Valid(px) }

func (d *DenseLadder) Level(px Tick) *levelFIFO {
	i := d.idx(px)
	d.occupied[i] = true
	return &d.levels[i]
}

func (d *DenseLadder) HasLevel(px Tick) bool {
	if !d.IsValid(px) {
		return false
	}
	i := d.idx(px)
	return d.occupied[i] && !d.levels[i].empty()
}

func (d *DenseLadder) DropLevel(px Tick) {
	if !d.IsValid(px) {
		return
	}
	d.occupied[d.idx(px)] = false
}

func (d *DenseLadder) BestBid() Tick   { return d.bestBid }
func (d *DenseLadder) BestAsk() Tick   { return d.bestAsk }
func (d *DenseLadder) SetBestBid(px Tick) { d.bestBid = px }
func (d *DenseLadder) SetBestAsk(px Tick) { d.bestAsk = px }

// NextBidBelow walks strictly down from px, bounded by maxWalkSteps,
// returning the next occupied bid price (for a bid ladder the "next"
// price after the best depletes is the next-highest remaining price,
// i.e. a linear scan downward from px-1 toward MinTick).
func (d *DenseLadder) NextBidBelow(px Tick) (Tick, bool) {
	steps := 0
	for p := px - 1; p >= d.band.MinTick; p-- {
		if steps >= d.maxWalkSteps {
			return EmptyBid, false
		}
		steps++
		if d.occupied[d.idx(p)] && !d.levels[d.idx(p)].empty() {
			return p, true
		}
	}
	return EmptyBid, false
}

// NextAskAbove is the ask-side mirror of NextBidBelow.
func (d *DenseLadder) NextAskAbove(px Tick) (Tick, bool) {
	steps := 0
	for p := px + 1; p <= d.band.MaxTick; p++ {
		if steps >= d.maxWalkSteps {
			return EmptyAsk, false
		}
		steps++
		if d.occupied[d.idx(p)] && !d.levels[d.idx(p)].empty() {
			return p, true
		}
	}
	return EmptyAsk, false
}
