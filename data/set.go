package data

import (
	"math"
	"math/rand/v2"
)

// Set is one split of a dataset: row-major features with one label
// (or regression target) per row.
type Set struct {
	X    []float64
	Y    []float64
	Cols int
}

func (s *Set) Len() int { return len(s.Y) }

// Shuffle permutes the samples in place, keeping rows and targets
// paired.
func (s *Set) Shuffle() {
	tmp := make([]float64, s.Cols)
	rand.Shuffle(s.Len(), func(i, j int) {
		copy(tmp, s.X[i*s.Cols:(i+1)*s.Cols])
		copy(s.X[i*s.Cols:(i+1)*s.Cols], s.X[j*s.Cols:(j+1)*s.Cols])
		copy(s.X[j*s.Cols:(j+1)*s.Cols], tmp)
		s.Y[i], s.Y[j] = s.Y[j], s.Y[i]
	})
}

// Split cuts the set in two at frac, first part first. The halves
// share backing storage with the original.
func (s *Set) Split(frac float64) (Set, Set) {
	n := int(float64(s.Len()) * frac)
	a := Set{X: s.X[:n*s.Cols], Y: s.Y[:n], Cols: s.Cols}
	b := Set{X: s.X[n*s.Cols:], Y: s.Y[n:], Cols: s.Cols}
	return a, b
}

// Standardize rescales every column to zero mean and unit variance in
// place, returning the per-column statistics so other splits can be
// scaled the same way. Constant columns are left untouched.
func Standardize(x []float64, cols int) (means, stds []float64) {
	rows := len(x) / cols
	means = make([]float64, cols)
	stds = make([]float64, cols)

	for c := 0; c < cols; c++ {
		sum := 0.0
		for r := 0; r < rows; r++ {
			sum += x[r*cols+c]
		}
		mean := sum / float64(rows)

		variance := 0.0
		for r := 0; r < rows; r++ {
			d := x[r*cols+c] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(rows))
		if std == 0 {
			std = 1
		}

		means[c] = mean
		stds[c] = std
		for r := 0; r < rows; r++ {
			x[r*cols+c] = (x[r*cols+c] - mean) / std
		}
	}
	return means, stds
}

// ApplyStandardize rescales with statistics from another split.
func ApplyStandardize(x []float64, cols int, means, stds []float64) {
	rows := len(x) / cols
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			x[r*cols+c] = (x[r*cols+c] - means[c]) / stds[c]
		}
	}
}
