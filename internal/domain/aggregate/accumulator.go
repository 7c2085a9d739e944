package aggregate

import (
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

// Accumulator holds running sums of one rank bucket's raw fields.
// Optional fields are summed over the records that carry them.
type Accumulator struct {
	Count int

	APM float64
	PPS float64
	VS  float64

	TR          float64
	TRCount     int
	Glicko      float64
	GlickoCount int
	RD          float64
	RDCount     int

	// FirstSeen is the input index of the bucket's first record.
	FirstSeen int
}

// Add folds one record at input position idx into the sums.
func (a *Accumulator) Add(p model.Player, idx int) {
	if a.Count == 0 {
		a.FirstSeen = idx
	}
	a.Count++
	a.APM += p.APM
	a.PPS += p.PPS
	a.VS += p.VS
	if p.TR != nil {
		a.TR += *p.TR
		a.TRCount++
	}
	if p.Glicko != nil {
		a.Glicko += *p.Glicko
		a.GlickoCount++
	}
	if p.RD != nil {
		a.RD += *p.RD
		a.RDCount++
	}
}

// Merge folds b, which covers later input than a, into a.
func (a *Accumulator) Merge(b Accumulator) {
	if b.Count == 0 {
		return
	}
	if a.Count == 0 || b.FirstSeen < a.FirstSeen {
		a.FirstSeen = b.FirstSeen
	}
	a.Count += b.Count
	a.APM += b.APM
	a.PPS += b.PPS
	a.VS += b.VS
	a.TR += b.TR
	a.TRCount += b.TRCount
	a.Glicko += b.Glicko
	a.GlickoCount += b.GlickoCount
	a.RD += b.RD
	a.RDCount += b.RDCount
}

// Mean returns the synthetic average record of the bucket r.
func (a Accumulator) Mean(r rank.Rank) model.Player {
	n := float64(a.Count)
	p := model.Player{
		Name:      r.AvgName(),
		APM:       a.APM / n,
		PPS:       a.PPS / n,
		VS:        a.VS / n,
		Rank:      r,
		Synthetic: true,
	}
	p.TR = meanOf(a.TR, a.TRCount)
	p.Glicko = meanOf(a.Glicko, a.GlickoCount)
	p.RD = meanOf(a.RD, a.RDCount)
	return p
}

func meanOf(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	return model.Float(sum / float64(n))
}

// Partial is one partition's accumulators, indexed by rank.
type Partial [rank.Count]Accumulator

// Merge folds q into p bucket by bucket.
func (p *Partial) Merge(q *Partial) {
	for i := range p {
		p[i].Merge(q[i])
	}
}

// Partition is a contiguous slice of the input starting at Offset.
type Partition struct {
	Index   int
	Offset  int
	Players []model.Player
}

// Accumulate builds the Partial of one partition.
func Accumulate(part Partition) Partial {
	var out Partial
	for i, p := range part.Players {
		out[bucketOf(p.Rank)].Add(p, part.Offset+i)
	}
	return out
}

// bucketOf maps a record's rank to its bucket. All is reserved for the
// population record, so it lands in Z with every other non-tier value.
func bucketOf(r rank.Rank) rank.Rank {
	if !r.IsTier() {
		return rank.Z
	}
	return r
}
