package stats

import (
	"math"
	"slices"
	"sync"
)

const (
	minPercentile = 10
	maxPercentile = 100
)

// Percentile is a DoubleData that also retains every sample so that
// nearest-rank percentiles can be answered. Sorting happens lazily on the
// first query after new samples arrive. It is safe for concurrent use.
type Percentile struct {
	mu     sync.Mutex
	data   DoubleData
	values []float64
	dirty  bool
}

func NewPercentile() *Percentile {
	return &Percentile{}
}

func (p *Percentile) Add(x float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data.Add(x)
	p.values = append(p.values, x)
	p.dirty = true
}

// Data returns a snapshot of the running statistics.
func (p *Percentile) Data() DoubleData {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.data
}

// Clone returns an independent copy holding the same samples.
func (p *Percentile) Clone() *Percentile {
	p.mu.Lock()
	defer p.mu.Unlock()

	return &Percentile{
		data:   p.data,
		values: slices.Clone(p.values),
		dirty:  p.dirty,
	}
}

func (p *Percentile) N() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.data.N()
}

// Value returns the p-th percentile, with p clamped to [10, 100].
//
// With position = p/100 * N: when position is a whole number the result is
// the midpoint of the samples at ranks position and position+1 (1-based),
// otherwise it is the sample at rank ceil(position).
func (p *Percentile) Value(percentile float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.values)
	if n == 0 {
		return 0, ErrNoData
	}

	if p.dirty {
		slices.Sort(p.values)
		p.dirty = false
	}

	percentile = clampPercentile(percentile)
	position := percentile / 100 * float64(n)

	if !math.IsInf(position, 0) && position == math.Trunc(position) {
		rank := int(position)
		if rank >= n {
			return p.values[n-1], nil
		}
		return (p.values[rank-1] + p.values[rank]) / 2, nil
	}

	rank := int(math.Ceil(position))
	rank = max(1, min(rank, n))
	return p.values[rank-1], nil
}

func clampPercentile(percentile float64) float64 {
	if math.IsNaN(percentile) || percentile < minPercentile {
		return minPercentile
	}
	if percentile > maxPercentile {
		return maxPercentile
	}
	return percentile
}
