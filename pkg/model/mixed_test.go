package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func scenarioConfig() MixedNBConfig {
	return MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: 1}
}

func scenarioData() (*mat.Dense, []string) {
	x := mat.NewDense(4, 2, []float64{
		0.0, 0,
		0.1, 0,
		5.0, 1,
		5.1, 1,
	})
	return x, []string{"A", "A", "B", "B"}
}

func heldOut() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		0.05, 0,
		5.05, 1,
	})
}

func TestMixedNB_Scenario(t *testing.T) {
	x, y := scenarioData()
	m := NewMixedNB(scenarioConfig())
	require.NoError(t, m.Fit(x, y))

	require.Equal(t, []string{"A", "B"}, m.Classes())
	require.InDeltaSlice(t, []float64{math.Log(0.5), math.Log(0.5)}, m.ClassLogPrior(), 1e-12)

	predicted, err := m.Predict(heldOut())
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, predicted)
}

func TestMixedNB_PriorSubtractedOnce(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{
		0.0, 0,
		0.2, 1,
		0.1, 0,
		4.0, 1,
		4.4, 1,
	})
	y := []string{"A", "A", "A", "B", "B"}
	m := NewMixedNB(MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: 1})
	require.NoError(t, m.Fit(x, y))

	query := mat.NewDense(3, 2, []float64{
		0.1, 1,
		2.0, 0,
		4.1, 0,
	})
	numeric, err := m.Numeric.PredictLogProba(query.Slice(0, 3, 0, 1))
	require.NoError(t, err)
	categorical, err := m.Categorical.PredictLogProba(query.Slice(0, 3, 1, 2))
	require.NoError(t, err)

	combined, err := m.PredictLogProba(query)
	require.NoError(t, err)
	rows, cols := combined.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		for c := 0; c < cols; c++ {
			expected := numeric.At(i, c) + categorical.At(i, c) - m.LogPrior[c]
			require.InDelta(t, expected, combined.At(i, c), 1e-12)
		}
	}
	require.InDeltaSlice(t, []float64{math.Log(0.6), math.Log(0.4)}, m.LogPrior, 1e-12)
}

func TestMixedNB_PredictProba(t *testing.T) {
	x, y := scenarioData()
	m := NewMixedNB(scenarioConfig())
	require.NoError(t, m.Fit(x, y))

	query := mat.NewDense(3, 2, []float64{
		0.05, 1,
		2.5, 0,
		5.05, 0,
	})
	logProba, err := m.PredictLogProba(query)
	require.NoError(t, err)
	proba, err := m.PredictProba(query)
	require.NoError(t, err)

	rows, cols := proba.Dims()
	for i := 0; i < rows; i++ {
		for c := 0; c < cols; c++ {
			require.True(t, proba.At(i, c) >= 0)
			require.InDelta(t, math.Exp(logProba.At(i, c)), proba.At(i, c), 1e-12)
		}
	}
}

func TestMixedNB_PredictsOnlyTrainingLabels(t *testing.T) {
	x := mat.NewDense(6, 3, []float64{
		1.0, 0, 2,
		1.5, 1, 0,
		3.0, 1, 1,
		3.2, 0, 1,
		6.0, 2, 0,
		6.3, 2, 2,
	})
	y := []string{"low", "low", "mid", "mid", "high", "high"}
	m := NewMixedNB(MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: 1})
	require.NoError(t, m.Fit(x, y))
	require.Equal(t, []string{"high", "low", "mid"}, m.Classes())

	query := mat.NewDense(4, 3, []float64{
		-10, 0, 0,
		2.2, 1, 1,
		100, 2, 2,
		4.5, 0, 2,
	})
	predicted, err := m.Predict(query)
	require.NoError(t, err)
	for _, label := range predicted {
		require.Contains(t, []string{"low", "mid", "high"}, label)
	}

	score, err := m.Score(x, y)
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
}

func TestMixedNB_Deterministic(t *testing.T) {
	x, y := scenarioData()
	first := NewMixedNB(scenarioConfig())
	second := NewMixedNB(scenarioConfig())
	require.NoError(t, first.Fit(x, y))
	require.NoError(t, second.Fit(x, y))

	a, err := first.PredictLogProba(heldOut())
	require.NoError(t, err)
	b, err := second.PredictLogProba(heldOut())
	require.NoError(t, err)
	require.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}

func TestMixedNB_ParallelFit(t *testing.T) {
	x, y := scenarioData()
	sequential := NewMixedNB(scenarioConfig())
	config := scenarioConfig()
	config.ParallelFit = true
	parallel := NewMixedNB(config)
	require.NoError(t, sequential.Fit(x, y))
	require.NoError(t, parallel.Fit(x, y))

	a, err := sequential.PredictLogProba(heldOut())
	require.NoError(t, err)
	b, err := parallel.PredictLogProba(heldOut())
	require.NoError(t, err)
	require.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}

func TestMixedNB_SingleClass(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1.0, 0,
		2.0, 1,
		3.0, 0,
	})
	m := NewMixedNB(MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: 1})
	require.NoError(t, m.Fit(x, []string{"only", "only", "only"}))
	require.Equal(t, []float64{0}, m.ClassLogPrior())

	predicted, err := m.Predict(mat.NewDense(3, 2, []float64{
		100, 1,
		-5, 0,
		2, 1,
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"only", "only", "only"}, predicted)
}

func TestMixedNB_ColumnSplitBoundary(t *testing.T) {
	x := mat.NewDense(4, 3, []float64{
		0.5, 0, 1,
		0.7, 2, 0,
		3.1, 1, 1,
		3.3, 3, 0,
	})
	y := []string{"A", "A", "B", "B"}

	tests := []struct {
		numFeatures   int
		numericCols   int
		numCategories []int
	}{
		{numFeatures: 1, numericCols: 1, numCategories: []int{4, 2}},
		{numFeatures: 2, numericCols: 2, numCategories: []int{2}},
	}

	for _, tt := range tests {
		m := NewMixedNB(MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: tt.numFeatures})
		require.NoError(t, m.Fit(x, y))
		gaussian := m.Numeric.(*GaussianNB)
		categorical := m.Categorical.(*CategoricalNB)
		require.Equal(t, tt.numericCols, len(gaussian.Theta[0]))
		require.Equal(t, tt.numCategories, categorical.NumCategories)
		require.InDelta(t, 0.6, gaussian.Theta[0][0], 1e-12)
		require.InDelta(t, 3.2, gaussian.Theta[1][0], 1e-12)
	}
}

func TestMixedNB_Errors(t *testing.T) {
	x, y := scenarioData()

	m := NewMixedNB(scenarioConfig())
	_, err := m.Predict(heldOut())
	require.ErrorIs(t, err, ErrNotFitted)
	_, err = m.PredictProba(heldOut())
	require.ErrorIs(t, err, ErrNotFitted)

	for _, k := range []int{0, 2, 3} {
		m := NewMixedNB(MixedNBConfig{VarSmoothing: 1e-9, Alpha: 1.0, NumFeaturesCount: k})
		require.ErrorIs(t, m.Fit(x, y), ErrShape)
	}

	require.ErrorIs(t, m.Fit(x, []string{"A", "B"}), ErrShape)
	require.ErrorIs(t, m.Fit(mat.NewDense(4, 2, []float64{0, 0.5, 1, 0, 2, 1, 3, 1}), y), ErrUnknownCategory)

	require.NoError(t, m.Fit(x, y))
	_, err = m.Predict(mat.NewDense(1, 2, []float64{0.1, 5}))
	require.ErrorIs(t, err, ErrUnknownCategory)
	_, err = m.Predict(mat.NewDense(1, 3, []float64{0.1, 0, 0}))
	require.ErrorIs(t, err, ErrShape)
	_, err = m.Predict(mat.NewDense(1, 1, []float64{0.1}))
	require.ErrorIs(t, err, ErrShape)
}

func TestMixedNB_MinCategories(t *testing.T) {
	x, y := scenarioData()
	config := scenarioConfig()
	config.MinCategories = []int{3}
	m := NewMixedNB(config)
	require.NoError(t, m.Fit(x, y))
	require.Equal(t, []int{3}, m.Categorical.(*CategoricalNB).NumCategories)

	predicted, err := m.Predict(mat.NewDense(1, 2, []float64{5.05, 2}))
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, predicted)
}

func TestMixedNB_EmptyInput(t *testing.T) {
	m := NewMixedNB(scenarioConfig())
	var missing *mat.Dense
	require.ErrorIs(t, m.Fit(missing, nil), ErrShape)
	require.ErrorIs(t, m.Fit(nil, nil), ErrShape)
}

func TestMixedNB_RefitReplacesState(t *testing.T) {
	x, y := scenarioData()
	m := NewMixedNB(scenarioConfig())
	require.NoError(t, m.Fit(x, y))

	require.NoError(t, m.Fit(x, []string{"C", "D", "D", "D"}))
	require.Equal(t, []string{"C", "D"}, m.Classes())
	require.InDeltaSlice(t, []float64{math.Log(0.25), math.Log(0.75)}, m.ClassLogPrior(), 1e-12)
}

// reversedModel reverses the class columns of the wrapped classifier output. When honest is set
// it also reports its classes in the reversed order.
type reversedModel struct {
	Classifier
	honest bool
}

func (r *reversedModel) PredictLogProba(x mat.Matrix) (*mat.Dense, error) {
	logProba, err := r.Classifier.PredictLogProba(x)
	if err != nil {
		return nil, err
	}
	rows, cols := logProba.Dims()
	result := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			result.Set(i, j, logProba.At(i, cols-1-j))
		}
	}
	return result, nil
}

func (r *reversedModel) Classes() []string {
	classes := r.Classifier.Classes()
	if !r.honest {
		return classes
	}
	for i, j := 0, len(classes)-1; i < j; i, j = i+1, j-1 {
		classes[i], classes[j] = classes[j], classes[i]
	}
	return classes
}

func reversedGaussian(honest bool) Option {
	return WithNumericModel(func(c MixedNBConfig) Classifier {
		return &reversedModel{Classifier: NewGaussianNB(c.VarSmoothing), honest: honest}
	})
}

func TestMixedNB_ClassOrdering(t *testing.T) {
	x, y := scenarioData()

	reference := NewMixedNB(scenarioConfig())
	require.NoError(t, reference.Fit(x, y))
	expected, err := reference.PredictLogProba(heldOut())
	require.NoError(t, err)

	// a sub-model reporting its own ordering is reindexed to the canonical one
	reindexed := NewMixedNB(scenarioConfig(), reversedGaussian(true))
	require.NoError(t, reindexed.Fit(x, y))
	require.Equal(t, []int{1, 0}, reindexed.NumericOrder)
	require.Equal(t, []int{0, 1}, reindexed.CategoricalOrder)
	actual, err := reindexed.PredictLogProba(heldOut())
	require.NoError(t, err)
	require.Equal(t, expected.RawMatrix().Data, actual.RawMatrix().Data)

	// a sub-model misreporting its ordering silently corrupts the combination
	misaligned := NewMixedNB(scenarioConfig(), reversedGaussian(false))
	require.NoError(t, misaligned.Fit(x, y))
	actual, err = misaligned.PredictLogProba(heldOut())
	require.NoError(t, err)
	require.NotEqual(t, expected.RawMatrix().Data, actual.RawMatrix().Data)
	predicted, err := misaligned.Predict(heldOut())
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, predicted)
}

type fixedClassesModel struct {
	Classifier
	classes []string
}

func (f *fixedClassesModel) Classes() []string {
	return f.classes
}

func TestMixedNB_ClassMismatch(t *testing.T) {
	x, y := scenarioData()

	tests := [][]string{
		{"A"},
		{"A", "C"},
		{"A", "B", "C"},
	}
	for _, classes := range tests {
		classes := classes
		m := NewMixedNB(scenarioConfig(), WithCategoricalModel(func(c MixedNBConfig) Classifier {
			return &fixedClassesModel{Classifier: NewCategoricalNB(c.Alpha), classes: classes}
		}))
		require.ErrorIs(t, m.Fit(x, y), ErrClassMismatch)
		require.Nil(t, m.Classes())
	}
}

func TestMixedNB_Params(t *testing.T) {
	m := NewMixedNB(DefaultMixedNBConfig())
	require.Equal(t, map[string]interface{}{
		"var_smoothing":      1e-9,
		"alpha":              1.0,
		"num_features_count": 7,
	}, m.GetParams())

	other, err := m.WithParams(map[string]interface{}{"alpha": 0.5, "num_features_count": 1})
	require.NoError(t, err)
	require.Equal(t, 0.5, other.Alpha)
	require.Equal(t, 1, other.NumFeaturesCount)
	require.Equal(t, 1e-9, other.VarSmoothing)
	require.Equal(t, 7, m.NumFeaturesCount)

	x, y := scenarioData()
	require.NoError(t, other.Fit(x, y))
	require.Nil(t, m.Classes())

	_, err = m.WithParams(map[string]interface{}{"num_features_count": 1.5})
	require.Error(t, err)
	_, err = m.WithParams(map[string]interface{}{"alpha": -1.0})
	require.Error(t, err)
	_, err = m.WithParams(map[string]interface{}{"alpha": "high"})
	require.Error(t, err)
	_, err = m.WithParams(map[string]interface{}{"depth": 3})
	require.Error(t, err)
}

func TestArgmaxTieBreak(t *testing.T) {
	logProba := mat.NewDense(2, 3, []float64{
		1, 2, 2,
		-1, -1, -1,
	})
	require.Equal(t, []string{"b", "a"}, argmaxLabels(logProba, []string{"a", "b", "c"}))
}
