package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned when predicting with an estimator that has not been trained.
	ErrNotFitted = errors.New("estimator is not fitted")

	// ErrShape is returned when the feature matrix or the label vector have an unexpected shape.
	ErrShape = errors.New("invalid input shape")

	// ErrUnknownCategory is returned when a categorical value was not seen during training.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrClassMismatch is returned when a sub-model reports a class set different from the
	// one observed by the composite.
	ErrClassMismatch = errors.New("sub-model class set mismatch")
)

// Classifier is implemented by every estimator in this package.
type Classifier interface {
	Fit(x mat.Matrix, y []string) error
	Predict(x mat.Matrix) ([]string, error)
	PredictProba(x mat.Matrix) (*mat.Dense, error)
	PredictLogProba(x mat.Matrix) (*mat.Dense, error)

	// Classes returns the sorted labels in the order used by the prediction columns.
	Classes() []string
}

// asDense converts the input once into a concrete dense matrix.
// Missing input becomes an empty matrix.
func asDense(x mat.Matrix) *mat.Dense {
	if x == nil {
		return &mat.Dense{}
	}
	if d, ok := x.(*mat.Dense); ok {
		if d == nil {
			return &mat.Dense{}
		}
		return d
	}
	return mat.DenseCopyOf(x)
}

// classCounts returns the sorted distinct labels and how many times each occurs.
func classCounts(y []string) ([]string, []float64, []int) {
	index := NewNameMap()
	var counts []float64
	for _, label := range y {
		i := index.ValueFor(label)
		if i == len(counts) {
			counts = append(counts, 0)
		}
		counts[i]++
	}
	classes := index.SortedNames()
	sortedCounts := make([]float64, len(classes))
	for i, class := range classes {
		sortedCounts[i] = counts[index.NameToIndex[class]]
	}
	encoded := make([]int, len(y))
	position := make(map[string]int, len(classes))
	for i, class := range classes {
		position[class] = i
	}
	for i, label := range y {
		encoded[i] = position[label]
	}
	return classes, sortedCounts, encoded
}

func logPriors(counts []float64, total int) []float64 {
	result := make([]float64, len(counts))
	for i, c := range counts {
		result[i] = math.Log(c / float64(total))
	}
	return result
}

// normalizeRows subtracts the log-sum-exp of each row from its entries.
func normalizeRows(jll *mat.Dense) {
	rows, _ := jll.Dims()
	for i := 0; i < rows; i++ {
		row := jll.RawRowView(i)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
}

func argmaxLabels(logProba *mat.Dense, classes []string) []string {
	rows, _ := logProba.Dims()
	result := make([]string, rows)
	for i := range result {
		result[i] = classes[floats.MaxIdx(logProba.RawRowView(i))]
	}
	return result
}

func exp(logProba *mat.Dense) *mat.Dense {
	var proba mat.Dense
	proba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, logProba)
	return &proba
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	result := make([]string, len(values))
	copy(result, values)
	return result
}
