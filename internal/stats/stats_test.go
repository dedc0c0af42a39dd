package stats_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/gcmodel/internal/stats"
)

func TestData_EmptyFailsWithNoData(t *testing.T) {
	t.Parallel()

	var d stats.DoubleData

	_, err := d.Average()
	require.ErrorIs(t, err, stats.ErrNoData)

	_, err = d.Variance()
	require.ErrorIs(t, err, stats.ErrNoData)

	_, err = d.StandardDeviation()
	require.ErrorIs(t, err, stats.ErrNoData)

	assert.Zero(t, d.N())
}

func TestData_SingleSampleHasZeroDeviation(t *testing.T) {
	t.Parallel()

	var d stats.DoubleData
	d.Add(0.25)

	sd, err := d.StandardDeviation()
	require.NoError(t, err)
	assert.Zero(t, sd)

	avg, err := d.Average()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, avg, 1e-12)
}

func TestData_AverageIsSumOverN(t *testing.T) {
	t.Parallel()

	samples := []float64{1.5, 2.25, 3, 10, 0.125}

	var d stats.DoubleData
	for _, s := range samples {
		d.Add(s)
	}

	avg, err := d.Average()
	require.NoError(t, err)
	assert.InDelta(t, d.Sum()/float64(d.N()), avg, 1e-12)
	assert.InDelta(t, 0.125, d.Min(), 1e-12)
	assert.InDelta(t, 10.0, d.Max(), 1e-12)
}

func TestData_VarianceMatchesTwoPass(t *testing.T) {
	t.Parallel()

	samples := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	var d stats.DoubleData
	for _, s := range samples {
		d.Add(s)
	}

	mean := 5.0
	var ss float64
	for _, s := range samples {
		ss += (s - mean) * (s - mean)
	}
	expected := ss / float64(len(samples)-1)

	variance, err := d.Variance()
	require.NoError(t, err)
	assert.InDelta(t, expected, variance, 1e-9)

	sd, err := d.StandardDeviation()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(expected), sd, 1e-9)
}

func TestData_WeightedAddEqualsRepeatedAdd(t *testing.T) {
	t.Parallel()

	var weighted, repeated stats.DoubleData
	weighted.AddWeighted(3.5, 4)
	weighted.Add(1)

	for range 4 {
		repeated.Add(3.5)
	}
	repeated.Add(1)

	assert.Equal(t, repeated.N(), weighted.N())
	assert.InDelta(t, repeated.Sum(), weighted.Sum(), 1e-9)
	assert.InDelta(t, repeated.SumSquares(), weighted.SumSquares(), 1e-9)
	assert.InDelta(t, repeated.Min(), weighted.Min(), 1e-12)
	assert.InDelta(t, repeated.Max(), weighted.Max(), 1e-12)
}

func TestData_IgnoresNonPositiveWeight(t *testing.T) {
	t.Parallel()

	var d stats.IntData
	d.AddWeighted(7, 0)
	d.AddWeighted(7, -3)

	assert.Zero(t, d.N())
}

func TestData_Merge(t *testing.T) {
	t.Parallel()

	var a, b, all stats.IntData
	for _, v := range []int64{5, 1, 9} {
		a.Add(v)
		all.Add(v)
	}
	for _, v := range []int64{12, -4} {
		b.Add(v)
		all.Add(v)
	}

	a.Merge(b)

	assert.Equal(t, all.N(), a.N())
	assert.InDelta(t, all.Sum(), a.Sum(), 1e-9)
	assert.Equal(t, int64(-4), a.Min())
	assert.Equal(t, int64(12), a.Max())
}

func TestPercentile_NearestRankWithTieAveraging(t *testing.T) {
	t.Parallel()

	p := stats.NewPercentile()
	for _, v := range []float64{40, 15, 50, 20, 35} {
		p.Add(v)
	}

	tests := []struct {
		percentile float64
		want       float64
	}{
		{10, 15},
		{50, 35},
		{75, 40},
		{100, 50},
		{20, 17.5}, // position 1.0 lands exactly on a rank
		{5, 15},    // clamped up to 10
		{250, 50},  // clamped down to 100
	}

	for _, tt := range tests {
		got, err := p.Value(tt.percentile)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 0.1, "p%v", tt.percentile)
	}
}

func TestPercentile_ResortsAfterNewData(t *testing.T) {
	t.Parallel()

	p := stats.NewPercentile()
	p.Add(3)
	p.Add(1)

	got, err := p.Value(100)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-12)

	p.Add(8)

	got, err = p.Value(100)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, got, 1e-12)
	assert.Equal(t, int64(3), p.Data().N())
}

func TestPercentile_Empty(t *testing.T) {
	t.Parallel()

	_, err := stats.NewPercentile().Value(50)
	require.ErrorIs(t, err, stats.ErrNoData)
}

func TestPercentile_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	p := stats.NewPercentile()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 500 {
			p.Add(float64(i % 37))
		}
	}()
	go func() {
		defer wg.Done()
		for range 500 {
			_, _ = p.Value(90)
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(500), p.N())
}

func TestRegression_PerfectLine(t *testing.T) {
	t.Parallel()

	var r stats.Regression
	for i := range 4 {
		r.Add(float64(i), float64(i))
	}

	require.True(t, r.IsLine())

	slope, err := r.Slope()
	require.NoError(t, err)
	assert.Equal(t, 1.0, slope)

	intercept, err := r.Intercept()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, intercept, 1e-12)

	corr, err := r.Correlation()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr, 1e-12)
}

func TestRegression_SinglePointIsNotALine(t *testing.T) {
	t.Parallel()

	var r stats.Regression
	r.Add(1, 2)

	assert.False(t, r.IsLine())

	_, err := r.Slope()
	require.ErrorIs(t, err, stats.ErrNotALine)
}

func TestRegression_VerticalPointsHaveUndefinedSlope(t *testing.T) {
	t.Parallel()

	var r stats.Regression
	r.Add(2, 1)
	r.Add(2, 5)
	r.Add(2, 9)

	slope, err := r.Slope()
	require.ErrorIs(t, err, stats.ErrUndefinedSlope)
	assert.True(t, math.IsNaN(slope))
}

func TestPercentile_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := stats.NewPercentile()
	p.Add(3)
	p.Add(1)

	clone := p.Clone()
	p.Add(10)

	v, err := clone.Value(100)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 0)
	assert.Equal(t, int64(2), clone.N())
	assert.Equal(t, int64(3), p.N())
}
