package pkg

import (
	"fmt"
	gio "io"
	"os"
	"sort"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"mixednb/pkg/io"
	"mixednb/pkg/model"
)

type NoopWriter struct{}

func (x NoopWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// Test evaluates the model saved in modelFileName on inputFileName. When outputFileName is set
// each prediction is written to it as "label,predicted,log-probability".
func Test(modelFileName, inputFileName, outputFileName string) error {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}
	return testModel(m, inputFileName, outputFileName)
}

func testModel(m *model.Model, inputFileName, outputFileName string) error {
	_, records, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:     inputFileName,
		TargetColumn: m.MetaData.TargetName(),
	}, m.MetaData)
	if err != nil {
		return fmt.Errorf("error loading data from %s: %w", inputFileName, err)
	}
	printDataErrors(dataErrors)
	if len(records) == 0 {
		return fmt.Errorf("no data to test in %s", inputFileName)
	}
	return testInternal(m, io.NewDataSet(records, nil), outputFileName)
}

type classificationPrediction struct {
	predictedClass string
	label          string
	logProba       float64
}

type classificationEvaluator struct {
	metrics      map[string]*stats.ClassMetrics
	outputWriter gio.Writer
}

func newClassificationEvaluator(classes []string, outputWriter gio.Writer) *classificationEvaluator {
	metrics := make(map[string]*stats.ClassMetrics, len(classes))
	for _, class := range classes {
		metrics[class] = stats.NewMetricCounter()
	}
	return &classificationEvaluator{metrics: metrics, outputWriter: outputWriter}
}

func (c *classificationEvaluator) EvaluatePrediction(prediction classificationPrediction) {
	fmt.Fprintf(c.outputWriter, "%s,%s,%.5f\n", prediction.label, prediction.predictedClass, prediction.logProba)

	labelClassMetrics, ok := c.metrics[prediction.label]
	if !ok {
		labelClassMetrics = stats.NewMetricCounter()
		c.metrics[prediction.label] = labelClassMetrics
	}
	predictedClassMetrics := c.metrics[prediction.predictedClass]

	if prediction.label == prediction.predictedClass {
		labelClassMetrics.IncTruePos()
	} else {
		labelClassMetrics.IncFalseNeg()
		predictedClassMetrics.IncFalsePos()
	}
	for class, metrics := range c.metrics {
		if class != prediction.label && class != prediction.predictedClass {
			metrics.IncTrueNeg()
		}
	}
}

func (c *classificationEvaluator) LogMetrics() {
	// Sort class names for deterministic output
	for _, class := range sortClasses(c.metrics) {
		result := c.metrics[class]
		log.Info().Str("Class", class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("TN", result.TrueNeg).
			Int("FN", result.FalseNeg).
			Float64("Precision", result.Precision()).
			Float64("Recall", result.Recall()).
			Float64("F1", result.F1Score()).
			Msg("")
	}

	macroF1, microF1 := computeOverallF1(c.metrics)
	log.Info().Float64("MacroF1", macroF1).Float64("MicroF1", microF1).Msg("")
}

func testInternal(m *model.Model, data *io.DataSet, outputFileName string) error {
	var outputWriter gio.Writer
	if outputFileName != "" {
		outputFile, err := os.Create(outputFileName)
		if err != nil {
			return fmt.Errorf("error opening output file %s: %w", outputFileName, err)
		}
		defer outputFile.Close()
		outputWriter = outputFile
	} else {
		outputWriter = NoopWriter{}
	}

	x, labels := data.Matrix()
	logProba, err := m.Classifier.PredictLogProba(x)
	if err != nil {
		return fmt.Errorf("error predicting: %w", err)
	}

	classes := m.Classifier.Classes()
	evaluator := newClassificationEvaluator(classes, outputWriter)
	for i, label := range labels {
		row := logProba.RawRowView(i)
		best := floats.MaxIdx(row)
		evaluator.EvaluatePrediction(classificationPrediction{
			predictedClass: classes[best],
			label:          label,
			logProba:       row[best],
		})
	}
	evaluator.LogMetrics()
	return nil
}

// computeOverallF1 returns the macro and micro averaged F1 scores.
func computeOverallF1(metrics map[string]*stats.ClassMetrics) (float64, float64) {
	macroF1 := 0.0
	for _, metric := range metrics {
		macroF1 += metric.F1Score()
	}
	macroF1 /= float64(len(metrics))

	micro := stats.NewMetricCounter()
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
		micro.TrueNeg += result.TrueNeg
	}
	return macroF1, micro.F1Score()
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}
