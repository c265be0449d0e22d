package pkg

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog/log"

	"mixednb/pkg/config"
	"mixednb/pkg/io"
	"mixednb/pkg/model"
)

type TrainingParameters struct {
	CategoricalColumns []string
	ValidationFraction float64
	RndSeed            int64
}

// Train fits a classifier on trainFile and saves it together with its metadata to outputFileName.
// When testFile is set, or a validation fraction is configured, the fitted model is evaluated on
// the held out data.
func Train(trainFile, testFile, outputFileName, targetColumn string, cfg *config.Config, trainingParams TrainingParameters) error {
	metaData, records, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:           trainFile,
		TargetColumn:       targetColumn,
		CategoricalColumns: io.NewSet(trainingParams.CategoricalColumns...),
	}, nil)
	if err != nil {
		return fmt.Errorf("error reading training data: %w", err)
	}
	printDataErrors(dataErrors)
	if len(records) == 0 {
		return fmt.Errorf("no data to train")
	}
	if trainingParams.ValidationFraction < 0 || trainingParams.ValidationFraction >= 1 {
		return fmt.Errorf("validation fraction %v outside [0, 1)", trainingParams.ValidationFraction)
	}

	data := io.NewDataSet(records, rand.New(rand.NewSource(trainingParams.RndSeed)))
	var validation *io.DataSet
	if validationSize := int(trainingParams.ValidationFraction * float64(data.Size())); validationSize > 0 {
		if data.Size()-validationSize < 1 {
			return fmt.Errorf("no training rows left after holding out %d of %d for validation", validationSize, data.Size())
		}
		splits := data.RandomSplit(data.Size()-validationSize, validationSize)
		data, validation = splits[0], splits[1]
	}

	//Overwrite values that are only known after parsing the dataset
	classifierConfig := cfg.MixedNBConfig(metaData.NumericFeatureCount())
	classifierConfig.MinCategories = metaData.CategoryCounts()
	classifier := model.NewMixedNB(classifierConfig)

	x, y := data.Matrix()
	log.Info().Int("Rows", data.Size()).
		Int("NumericFeatures", metaData.NumericFeatureCount()).
		Int("CategoricalFeatures", metaData.CategoricalFeaturesMap.Size()).
		Msg("Training")
	if err := classifier.Fit(x, y); err != nil {
		return fmt.Errorf("error training model: %w", err)
	}
	for i, class := range classifier.Classes() {
		log.Debug().Str("Class", class).Float64("LogPrior", classifier.LogPrior[i]).Msg("")
	}

	m := model.Model{
		MetaData:   metaData,
		Classifier: classifier,
	}

	outputFile, err := os.Create(outputFileName)
	if err != nil {
		return fmt.Errorf("error creating output file %s: %w", outputFileName, err)
	}
	defer outputFile.Close()

	if err := io.SaveModel(&m, outputFile); err != nil {
		return fmt.Errorf("error saving model to %s: %w", outputFileName, err)
	}

	if validation != nil {
		log.Info().Int("Rows", validation.Size()).Msg("Validation")
		if err := testInternal(&m, validation, ""); err != nil {
			return err
		}
	}
	if testFile != "" {
		return testModel(&m, testFile, "")
	}
	return nil
}
