package stats

import "math"

// Regression accumulates (x, y) points for a closed-form least squares line.
type Regression struct {
	n     int64
	sumX  float64
	sumY  float64
	sumXX float64
	sumXY float64
	sumYY float64
}

func (r *Regression) Add(x, y float64) {
	r.n++
	r.sumX += x
	r.sumY += y
	r.sumXX += x * x
	r.sumXY += x * y
	r.sumYY += y * y
}

func (r Regression) N() int64 {
	return r.n
}

// IsLine reports whether enough points were seen to define a line.
func (r Regression) IsLine() bool {
	return r.n > 1
}

func (r Regression) denominator() float64 {
	n := float64(r.n)
	return n*r.sumXX - r.sumX*r.sumX
}

// Slope returns the least squares slope. When all x values are equal it
// returns NaN with ErrUndefinedSlope.
func (r Regression) Slope() (float64, error) {
	if !r.IsLine() {
		return math.NaN(), ErrNotALine
	}

	denominator := r.denominator()
	if denominator == 0 {
		return math.NaN(), ErrUndefinedSlope
	}

	n := float64(r.n)
	return (n*r.sumXY - r.sumX*r.sumY) / denominator, nil
}

func (r Regression) Intercept() (float64, error) {
	slope, err := r.Slope()
	if err != nil {
		return math.NaN(), err
	}
	n := float64(r.n)
	return (r.sumY - slope*r.sumX) / n, nil
}

// Correlation returns Pearson's r, or 0 when either axis has no spread.
func (r Regression) Correlation() (float64, error) {
	if !r.IsLine() {
		return 0, ErrNotALine
	}

	n := float64(r.n)
	numerator := n*r.sumXY - r.sumX*r.sumY
	denominatorCorr := math.Sqrt((n*r.sumXX - r.sumX*r.sumX) * (n*r.sumYY - r.sumY*r.sumY))
	if denominatorCorr == 0 || math.IsNaN(denominatorCorr) {
		return 0, nil
	}

	return numerator / denominatorCorr, nil
}
