package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Statistics represents statistical measures of a dataset
type Statistics struct {
	Mean               float64 `json:"mean"`
	Median             float64 `json:"median"`
	StdDev             float64 `json:"std_dev"`
	Min                float64 `json:"min"`
	Max                float64 `json:"max"`
	Q1                 float64 `json:"q1"`
	Q3                 float64 `json:"q3"`
	InterquartileRange float64 `json:"iqr"`
	CoefficientOfVar   float64 `json:"coefficient_of_variation"`
	Count              int     `json:"count"`
}

// Mean returns the arithmetic mean of values, or 0 when values is empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the sample standard deviation of values.
// Fewer than two values have no spread and yield 0.
func StdDev(values []float64) float64 {
	_, std := MeanStdDev(values)
	return std
}

// MeanStdDev returns the mean and sample standard deviation in one pass.
func MeanStdDev(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, std = stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Percentile calculates the pth percentile of sorted data using linear
// interpolation between the closest ranks.
func Percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	rank := p / 100.0 * float64(len(sortedData)-1)
	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedData[lowerIndex]
	}

	weight := rank - float64(lowerIndex)
	return sortedData[lowerIndex]*(1-weight) + sortedData[upperIndex]*weight
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Summarize returns comprehensive statistics for values.
func Summarize(values []float64) *Statistics {
	if len(values) == 0 {
		return &Statistics{}
	}

	sorted := Sorted(values)
	mean, stdDev := MeanStdDev(values)
	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)

	cv := 0.0
	if mean != 0 {
		cv = stdDev / math.Abs(mean)
	}

	return &Statistics{
		Mean:               mean,
		Median:             Percentile(sorted, 50),
		StdDev:             stdDev,
		Min:                sorted[0],
		Max:                sorted[len(sorted)-1],
		Q1:                 q1,
		Q3:                 q3,
		InterquartileRange: q3 - q1,
		CoefficientOfVar:   cv,
		Count:              len(values),
	}
}

// slope fits y = a + b·x over the point index and returns b.
func slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(beta) {
		return 0
	}
	return beta
}
