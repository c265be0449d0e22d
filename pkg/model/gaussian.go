package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ Classifier = &GaussianNB{}

// GaussianNB is a Naive Bayes classifier modelling every feature as a per-class normal distribution.
//
// When every training column is constant the smoothing term is zero, so are the variances, and
// PredictLogProba returns NaN rows. Predict then falls back to the first class.
type GaussianNB struct {
	// VarSmoothing is the fraction of the largest feature variance added to all variances.
	VarSmoothing float64

	ClassLabels []string
	ClassCount  []float64
	// Theta and Var hold the per class mean and variance of each feature
	Theta   [][]float64
	Var     [][]float64
	Epsilon float64
}

func NewGaussianNB(varSmoothing float64) *GaussianNB {
	return &GaussianNB{VarSmoothing: varSmoothing}
}

func (g *GaussianNB) Fit(x mat.Matrix, y []string) error {
	dense := asDense(x)
	rows, cols := dense.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: gaussian model needs at least one row and one column, got %dx%d", ErrShape, rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("%w: %d labels for %d rows", ErrShape, len(y), rows)
	}

	classes, counts, encoded := classCounts(y)

	maxVariance := 0.0
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(column, j, dense)
		mean := stat.Mean(column, nil)
		maxVariance = math.Max(maxVariance, stat.MomentAbout(2, column, mean, nil))
	}
	epsilon := g.VarSmoothing * maxVariance

	theta := make([][]float64, len(classes))
	variance := make([][]float64, len(classes))
	classColumn := make([][]float64, len(classes))
	for c := range classes {
		theta[c] = make([]float64, cols)
		variance[c] = make([]float64, cols)
		classColumn[c] = make([]float64, 0, int(counts[c]))
	}
	for j := 0; j < cols; j++ {
		for c := range classColumn {
			classColumn[c] = classColumn[c][:0]
		}
		for i := 0; i < rows; i++ {
			classColumn[encoded[i]] = append(classColumn[encoded[i]], dense.At(i, j))
		}
		for c := range classes {
			mean := stat.Mean(classColumn[c], nil)
			theta[c][j] = mean
			variance[c][j] = stat.MomentAbout(2, classColumn[c], mean, nil) + epsilon
		}
	}

	g.ClassLabels = classes
	g.ClassCount = counts
	g.Theta = theta
	g.Var = variance
	g.Epsilon = epsilon
	return nil
}

func (g *GaussianNB) Classes() []string {
	return copyStrings(g.ClassLabels)
}

// jointLogLikelihood returns log P(c) + log P(x|c) for every row and class.
func (g *GaussianNB) jointLogLikelihood(x mat.Matrix) (*mat.Dense, error) {
	if g.ClassLabels == nil {
		return nil, ErrNotFitted
	}
	dense := asDense(x)
	rows, cols := dense.Dims()
	if cols != len(g.Theta[0]) {
		return nil, fmt.Errorf("%w: gaussian model trained on %d columns, got %d", ErrShape, len(g.Theta[0]), cols)
	}

	total := floats.Sum(g.ClassCount)
	result := mat.NewDense(rows, len(g.ClassLabels), nil)
	for c := range g.ClassLabels {
		normalizer := 0.0
		for _, v := range g.Var[c] {
			normalizer += math.Log(2 * math.Pi * v)
		}
		base := math.Log(g.ClassCount[c]/total) - 0.5*normalizer
		for i := 0; i < rows; i++ {
			sq := 0.0
			for j := 0; j < cols; j++ {
				d := dense.At(i, j) - g.Theta[c][j]
				sq += d * d / g.Var[c][j]
			}
			result.Set(i, c, base-0.5*sq)
		}
	}
	return result, nil
}

func (g *GaussianNB) PredictLogProba(x mat.Matrix) (*mat.Dense, error) {
	jll, err := g.jointLogLikelihood(x)
	if err != nil {
		return nil, err
	}
	normalizeRows(jll)
	return jll, nil
}

func (g *GaussianNB) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	logProba, err := g.PredictLogProba(x)
	if err != nil {
		return nil, err
	}
	return exp(logProba), nil
}

func (g *GaussianNB) Predict(x mat.Matrix) ([]string, error) {
	jll, err := g.jointLogLikelihood(x)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(jll, g.ClassLabels), nil
}
