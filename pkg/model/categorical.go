package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var _ Classifier = &CategoricalNB{}

// CategoricalNB is a Naive Bayes classifier for features holding integer category codes.
// The codes of feature j are expected in [0, NumCategories[j]), where NumCategories[j] is one
// more than the largest code seen during training, or MinCategories[j] if that is larger.
type CategoricalNB struct {
	// Alpha is the additive (Laplace) smoothing count.
	Alpha float64
	// MinCategories optionally sets the least number of categories of each feature, so that codes
	// known upstream but absent from the training rows still get a smoothed probability.
	MinCategories []int

	ClassLabels   []string
	ClassCount    []float64
	NumCategories []int
	// FeatureLogProb[j][c][v] is log P(x_j = v | c)
	FeatureLogProb [][][]float64
}

func NewCategoricalNB(alpha float64) *CategoricalNB {
	return &CategoricalNB{Alpha: alpha}
}

func categoryCode(v float64) (int, bool) {
	if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}

func (m *CategoricalNB) Fit(x mat.Matrix, y []string) error {
	dense := asDense(x)
	rows, cols := dense.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: categorical model needs at least one row and one column, got %dx%d", ErrShape, rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("%w: %d labels for %d rows", ErrShape, len(y), rows)
	}

	classes, counts, encoded := classCounts(y)

	numCategories := make([]int, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			code, ok := categoryCode(dense.At(i, j))
			if !ok {
				return fmt.Errorf("%w: value %v in column %d is not a category code", ErrUnknownCategory, dense.At(i, j), j)
			}
			if code+1 > numCategories[j] {
				numCategories[j] = code + 1
			}
		}
		if j < len(m.MinCategories) && m.MinCategories[j] > numCategories[j] {
			numCategories[j] = m.MinCategories[j]
		}
	}

	featureLogProb := make([][][]float64, cols)
	for j := 0; j < cols; j++ {
		categoryCount := make([][]float64, len(classes))
		for c := range categoryCount {
			categoryCount[c] = make([]float64, numCategories[j])
		}
		for i := 0; i < rows; i++ {
			categoryCount[encoded[i]][int(dense.At(i, j))]++
		}
		featureLogProb[j] = make([][]float64, len(classes))
		for c := range classes {
			denominator := math.Log(counts[c] + m.Alpha*float64(numCategories[j]))
			logProb := make([]float64, numCategories[j])
			for v, n := range categoryCount[c] {
				logProb[v] = math.Log(n+m.Alpha) - denominator
			}
			featureLogProb[j][c] = logProb
		}
	}

	m.ClassLabels = classes
	m.ClassCount = counts
	m.NumCategories = numCategories
	m.FeatureLogProb = featureLogProb
	return nil
}

func (m *CategoricalNB) Classes() []string {
	return copyStrings(m.ClassLabels)
}

func (m *CategoricalNB) jointLogLikelihood(x mat.Matrix) (*mat.Dense, error) {
	if m.ClassLabels == nil {
		return nil, ErrNotFitted
	}
	dense := asDense(x)
	rows, cols := dense.Dims()
	if cols != len(m.NumCategories) {
		return nil, fmt.Errorf("%w: categorical model trained on %d columns, got %d", ErrShape, len(m.NumCategories), cols)
	}

	total := floats.Sum(m.ClassCount)
	result := mat.NewDense(rows, len(m.ClassLabels), nil)
	for i := 0; i < rows; i++ {
		for c := range m.ClassLabels {
			result.Set(i, c, math.Log(m.ClassCount[c]/total))
		}
		for j := 0; j < cols; j++ {
			code, ok := categoryCode(dense.At(i, j))
			if !ok || code >= m.NumCategories[j] {
				return nil, fmt.Errorf("%w: value %v in row %d column %d", ErrUnknownCategory, dense.At(i, j), i, j)
			}
			for c := range m.ClassLabels {
				result.Set(i, c, result.At(i, c)+m.FeatureLogProb[j][c][code])
			}
		}
	}
	return result, nil
}

func (m *CategoricalNB) PredictLogProba(x mat.Matrix) (*mat.Dense, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return nil, err
	}
	normalizeRows(jll)
	return jll, nil
}

func (m *CategoricalNB) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	logProba, err := m.PredictLogProba(x)
	if err != nil {
		return nil, err
	}
	return exp(logProba), nil
}

func (m *CategoricalNB) Predict(x mat.Matrix) ([]string, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(jll, m.ClassLabels), nil
}
