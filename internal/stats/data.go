// Package stats holds running accumulators that keep O(1) sufficient
// statistics for GC event figures.
package stats

import (
	"errors"
	"math"
)

var (
	// ErrNoData is returned when a derived figure is requested from an empty accumulator.
	ErrNoData = errors.New("no data")

	// ErrUndefinedSlope is returned when every regression point shares the same x.
	ErrUndefinedSlope = errors.New("slope undefined: all x values are equal")

	// ErrNotALine is returned when fewer than two regression points were added.
	ErrNotALine = errors.New("regression needs at least two points")
)

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Data keeps count, sum, sum of squares, min and max of the samples added so far.
// The zero value is an empty accumulator ready for use.
type Data[T Numeric] struct {
	n          int64
	sum        float64
	sumSquares float64
	min        T
	max        T
}

type (
	DoubleData = Data[float64]
	IntData    = Data[int64]
)

func (d *Data[T]) Add(x T) {
	d.AddWeighted(x, 1)
}

// AddWeighted is equivalent to calling Add(x) weight times. Non-positive
// weights are ignored.
func (d *Data[T]) AddWeighted(x T, weight int64) {
	if weight <= 0 {
		return
	}

	if d.n == 0 {
		d.min, d.max = x, x
	} else {
		d.min = min(d.min, x)
		d.max = max(d.max, x)
	}

	fx := float64(x)
	w := float64(weight)
	d.n += weight
	d.sum += fx * w
	d.sumSquares += fx * fx * w
}

// Merge folds other into d as if every sample of other had been added to d.
func (d *Data[T]) Merge(other Data[T]) {
	if other.n == 0 {
		return
	}
	if d.n == 0 {
		*d = other
		return
	}
	d.min = min(d.min, other.min)
	d.max = max(d.max, other.max)
	d.n += other.n
	d.sum += other.sum
	d.sumSquares += other.sumSquares
}

func (d Data[T]) N() int64 {
	return d.n
}

func (d Data[T]) Sum() float64 {
	return d.sum
}

func (d Data[T]) SumSquares() float64 {
	return d.sumSquares
}

// Min returns the smallest sample, or the zero value when empty.
func (d Data[T]) Min() T {
	return d.min
}

// Max returns the largest sample, or the zero value when empty.
func (d Data[T]) Max() T {
	return d.max
}

func (d Data[T]) Average() (float64, error) {
	if d.n == 0 {
		return 0, ErrNoData
	}
	return d.sum / float64(d.n), nil
}

// Variance is the sample variance. A single sample has variance 0.
func (d Data[T]) Variance() (float64, error) {
	switch d.n {
	case 0:
		return 0, ErrNoData
	case 1:
		return 0, nil
	}

	n := float64(d.n)
	variance := (d.sumSquares - d.sum*d.sum/n) / (n - 1)
	if variance < 0 {
		// cancellation on near-constant samples
		return 0, nil
	}
	return variance, nil
}

func (d Data[T]) StandardDeviation() (float64, error) {
	variance, err := d.Variance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(variance), nil
}

// OrZero drops ErrNoData, for callers that already checked N.
func OrZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}
