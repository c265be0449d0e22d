package model

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var _ Classifier = &MixedNB{}

const (
	DefaultVarSmoothing     = 1e-9
	DefaultAlpha            = 1.0
	DefaultNumFeaturesCount = 7
)

type MixedNBConfig struct {
	// VarSmoothing is passed to the Gaussian sub-model
	VarSmoothing float64
	// Alpha is passed to the categorical sub-model
	Alpha float64
	// NumFeaturesCount is the number of leading numeric columns of the feature matrix
	NumFeaturesCount int
	// ParallelFit trains the two sub-models concurrently
	ParallelFit bool
	// MinCategories is a lower bound on the number of categories of each categorical column
	MinCategories []int
}

func DefaultMixedNBConfig() MixedNBConfig {
	return MixedNBConfig{
		VarSmoothing:     DefaultVarSmoothing,
		Alpha:            DefaultAlpha,
		NumFeaturesCount: DefaultNumFeaturesCount,
	}
}

// MixedNB combines a Gaussian Naive Bayes over the numeric columns [0, k) with a categorical
// Naive Bayes over the columns [k, n).
//
// Both sub-models fold the empirical class prior into their log-probabilities, so summing them
// counts the prior twice. MixedNB subtracts the class log-prior once, which leaves a result
// proportional to log P(numeric|c) + log P(categorical|c) + log P(c). The output of
// PredictLogProba is therefore not normalized, and the rows of PredictProba do not in general
// sum to one; callers needing a distribution must renormalize.
type MixedNB struct {
	MixedNBConfig

	Numeric     Classifier
	Categorical Classifier

	ClassLabels []string
	LogPrior    []float64

	// NumericOrder[c] and CategoricalOrder[c] are the sub-model columns holding class c
	NumericOrder     []int
	CategoricalOrder []int

	newNumeric     func(MixedNBConfig) Classifier
	newCategorical func(MixedNBConfig) Classifier
}

type Option func(*MixedNB)

// WithNumericModel replaces the Gaussian sub-model built on every Fit.
func WithNumericModel(factory func(MixedNBConfig) Classifier) Option {
	return func(m *MixedNB) {
		m.newNumeric = factory
	}
}

// WithCategoricalModel replaces the categorical sub-model built on every Fit.
func WithCategoricalModel(factory func(MixedNBConfig) Classifier) Option {
	return func(m *MixedNB) {
		m.newCategorical = factory
	}
}

func NewMixedNB(config MixedNBConfig, options ...Option) *MixedNB {
	m := &MixedNB{MixedNBConfig: config}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *MixedNB) numericFactory() func(MixedNBConfig) Classifier {
	if m.newNumeric != nil {
		return m.newNumeric
	}
	return func(c MixedNBConfig) Classifier { return NewGaussianNB(c.VarSmoothing) }
}

func (m *MixedNB) categoricalFactory() func(MixedNBConfig) Classifier {
	if m.newCategorical != nil {
		return m.newCategorical
	}
	return func(c MixedNBConfig) Classifier {
		nb := NewCategoricalNB(c.Alpha)
		nb.MinCategories = c.MinCategories
		return nb
	}
}

func (m *MixedNB) split(x mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	dense := asDense(x)
	rows, cols := dense.Dims()
	k := m.NumFeaturesCount
	if rows == 0 || k <= 0 || k >= cols {
		return nil, nil, fmt.Errorf("%w: cannot split %dx%d matrix at numeric column count %d", ErrShape, rows, cols, k)
	}
	numeric := dense.Slice(0, rows, 0, k).(*mat.Dense)
	categorical := dense.Slice(0, rows, k, cols).(*mat.Dense)
	return numeric, categorical, nil
}

// Fit trains both sub-models on their column blocks and records the class set and log-prior.
// Any previously trained state is replaced.
func (m *MixedNB) Fit(x mat.Matrix, y []string) error {
	numericBlock, categoricalBlock, err := m.split(x)
	if err != nil {
		return err
	}

	numeric := m.numericFactory()(m.MixedNBConfig)
	categorical := m.categoricalFactory()(m.MixedNBConfig)
	if m.ParallelFit {
		var g errgroup.Group
		g.Go(func() error { return numeric.Fit(numericBlock, y) })
		g.Go(func() error { return categorical.Fit(categoricalBlock, y) })
		err = g.Wait()
	} else {
		err = numeric.Fit(numericBlock, y)
		if err == nil {
			err = categorical.Fit(categoricalBlock, y)
		}
	}
	if err != nil {
		return err
	}

	classes, counts, _ := classCounts(y)
	numericOrder, err := classOrder(classes, numeric.Classes())
	if err != nil {
		return fmt.Errorf("numeric model: %w", err)
	}
	categoricalOrder, err := classOrder(classes, categorical.Classes())
	if err != nil {
		return fmt.Errorf("categorical model: %w", err)
	}

	m.Numeric = numeric
	m.Categorical = categorical
	m.ClassLabels = classes
	m.LogPrior = logPriors(counts, len(y))
	m.NumericOrder = numericOrder
	m.CategoricalOrder = categoricalOrder
	return nil
}

// classOrder maps every canonical class index to the column of that class in a sub-model output.
func classOrder(classes, reported []string) ([]int, error) {
	if len(classes) != len(reported) {
		return nil, fmt.Errorf("%w: expected %d classes, got %d", ErrClassMismatch, len(classes), len(reported))
	}
	position := make(map[string]int, len(reported))
	for i, class := range reported {
		position[class] = i
	}
	order := make([]int, len(classes))
	for c, class := range classes {
		i, ok := position[class]
		if !ok {
			return nil, fmt.Errorf("%w: class %q missing", ErrClassMismatch, class)
		}
		order[c] = i
	}
	return order, nil
}

func (m *MixedNB) Classes() []string {
	return copyStrings(m.ClassLabels)
}

// ClassLogPrior returns the natural log of each class frequency, aligned with Classes.
func (m *MixedNB) ClassLogPrior() []float64 {
	if m.LogPrior == nil {
		return nil
	}
	result := make([]float64, len(m.LogPrior))
	copy(result, m.LogPrior)
	return result
}

// PredictLogProba returns unnormalized per-class log-probabilities, one row per sample.
func (m *MixedNB) PredictLogProba(x mat.Matrix) (*mat.Dense, error) {
	if m.ClassLabels == nil {
		return nil, ErrNotFitted
	}
	numericBlock, categoricalBlock, err := m.split(x)
	if err != nil {
		return nil, err
	}
	numeric, err := m.Numeric.PredictLogProba(numericBlock)
	if err != nil {
		return nil, err
	}
	categorical, err := m.Categorical.PredictLogProba(categoricalBlock)
	if err != nil {
		return nil, err
	}

	rows, _ := numericBlock.Dims()
	result := mat.NewDense(rows, len(m.ClassLabels), nil)
	for i := 0; i < rows; i++ {
		for c := range m.ClassLabels {
			result.Set(i, c, numeric.At(i, m.NumericOrder[c])+categorical.At(i, m.CategoricalOrder[c])-m.LogPrior[c])
		}
	}
	return result, nil
}

// PredictProba returns the exponential of PredictLogProba. Rows are not renormalized.
func (m *MixedNB) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	logProba, err := m.PredictLogProba(x)
	if err != nil {
		return nil, err
	}
	return exp(logProba), nil
}

// Predict returns the most probable class of every row, ties going to the first class.
func (m *MixedNB) Predict(x mat.Matrix) ([]string, error) {
	logProba, err := m.PredictLogProba(x)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(logProba, m.ClassLabels), nil
}

// Score returns the mean accuracy of Predict against y.
func (m *MixedNB) Score(x mat.Matrix, y []string) (float64, error) {
	predicted, err := m.Predict(x)
	if err != nil {
		return 0, err
	}
	if len(predicted) != len(y) {
		return 0, fmt.Errorf("%w: %d labels for %d rows", ErrShape, len(y), len(predicted))
	}
	correct := make([]float64, len(y))
	for i := range y {
		if predicted[i] == y[i] {
			correct[i] = 1
		}
	}
	return floats.Sum(correct) / float64(len(y)), nil
}

// GetParams returns the hyperparameters under their conventional names.
func (m *MixedNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing":      m.VarSmoothing,
		"alpha":              m.Alpha,
		"num_features_count": m.NumFeaturesCount,
	}
}

// WithParams returns a new untrained estimator with the given hyperparameters overridden.
// The sub-model factories are carried over.
func (m *MixedNB) WithParams(params map[string]interface{}) (*MixedNB, error) {
	config := m.MixedNBConfig
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := params[key]
		switch key {
		case "var_smoothing", "alpha":
			f, ok := toFloat(value)
			if !ok || f < 0 || math.IsNaN(f) {
				return nil, fmt.Errorf("invalid value %v for parameter %s", value, key)
			}
			if key == "alpha" {
				config.Alpha = f
			} else {
				config.VarSmoothing = f
			}
		case "num_features_count":
			f, ok := toFloat(value)
			if !ok || f != math.Trunc(f) || f < 1 {
				return nil, fmt.Errorf("invalid value %v for parameter %s", value, key)
			}
			config.NumFeaturesCount = int(f)
		default:
			return nil, fmt.Errorf("unknown parameter %s", key)
		}
	}
	return &MixedNB{
		MixedNBConfig:  config,
		newNumeric:     m.newNumeric,
		newCategorical: m.newCategorical,
	}, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
