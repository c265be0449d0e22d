package io

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"mixednb/pkg/model"
	"os"
	"strconv"
)

// DataRecord is a parsed data row.
type DataRecord struct {
	// ContinuousFeatures are in the order of the numeric feature matrix columns
	ContinuousFeatures []float64

	// CategoricalFeatures contain the category code of every categorical feature
	CategoricalFeatures []int

	Target string
}

type void struct{}

var Void = void{}

type Set map[string]void

func NewSet(values ...string) Set {
	set := Set{}
	for _, val := range values {
		set[val] = Void
	}
	return set
}

type DataParameters struct {
	DataFile           string
	TargetColumn       string
	CategoricalColumns Set
}

type DataError struct {
	Line  int
	Error string
}

// LoadData reads a CSV file with a header line. When metaData is nil a new one is built from the
// header and the data; otherwise values unknown to metaData are reported as data errors.
func LoadData(p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	inputFile, err := os.Open(p.DataFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()

	return ReadData(inputFile, p, metaData)
}

func ReadData(input io.Reader, p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	var errors []DataError

	reader := csv.NewReader(input)
	reader.Comma = ','

	//First line is expected to be a header
	record, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	newMetadata := false
	if metaData == nil {
		metaData = model.NewMetadata()
		newMetadata = true
		metaData.Columns = record
		if err := setTargetColumn(p, metaData); err != nil {
			return nil, nil, nil, err
		}
		buildFeatureIndex(p, metaData)
	} else if len(record) != len(metaData.Columns) {
		return nil, nil, nil, fmt.Errorf("data header has %d columns, model expects %d", len(record), len(metaData.Columns))
	}

	continuousColumns := metaData.ContinuousFeaturesMap.SortedColumns()
	categoricalColumns := metaData.CategoricalFeaturesMap.SortedColumns()

	var result []*DataRecord
	currentLine := 1
	for record, err = reader.Read(); err == nil; record, err = reader.Read() {
		currentLine++
		target, err := parseTarget(newMetadata, metaData, record[metaData.TargetColumn])
		if err != nil {
			errors = append(errors, DataError{Line: currentLine, Error: err.Error()})
			continue
		}

		continuousFeatures, err := parseContinuousFeatures(metaData, continuousColumns, record)
		if err != nil {
			errors = append(errors, DataError{Line: currentLine, Error: err.Error()})
			continue
		}

		categoricalFeatures, err := parseCategoricalFeatures(metaData, newMetadata, categoricalColumns, record)
		if err != nil {
			errors = append(errors, DataError{Line: currentLine, Error: err.Error()})
			continue
		}

		result = append(result, &DataRecord{
			ContinuousFeatures:  continuousFeatures,
			CategoricalFeatures: categoricalFeatures,
			Target:              target,
		})
	}
	if err != io.EOF {
		return nil, nil, nil, fmt.Errorf("error reading data at line %d: %w", currentLine+1, err)
	}

	return metaData, result, errors, nil
}

func parseCategoricalFeatures(metaData *model.Metadata, newMetadata bool, columns []int, record []string) ([]int, error) {
	categoricalFeatures := make([]int, 0, len(columns))
	for _, column := range columns {
		index := metaData.CategoricalFeaturesMap.ColumnToIndex[column]
		categoryNameMap, ok := metaData.CategoricalValuesMap[index]
		if !ok {
			if !newMetadata {
				return nil, fmt.Errorf("unknown categorical attribute %s (should not happen!)", metaData.Columns[column])
			}
			categoryNameMap = model.NewNameMap()
			metaData.CategoricalValuesMap[index] = categoryNameMap
		}
		var categoryValue int
		if newMetadata {
			categoryValue = categoryNameMap.ValueFor(record[column])
		} else {
			categoryValue, ok = categoryNameMap.NameToIndex[record[column]]
			if !ok {
				return nil, fmt.Errorf("unknown value %s for categorical attribute %s", record[column], metaData.Columns[column])
			}
		}
		categoricalFeatures = append(categoricalFeatures, categoryValue)
	}
	return categoricalFeatures, nil
}

func parseContinuousFeatures(metaData *model.Metadata, columns []int, record []string) ([]float64, error) {
	features := make([]float64, len(columns))
	for i, column := range columns {
		value, err := strconv.ParseFloat(record[column], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing feature %s: %w", metaData.Columns[column], err)
		}
		features[i] = value
	}
	return features, nil
}

func parseTarget(newMetadata bool, metaData *model.Metadata, target string) (string, error) {
	if newMetadata {
		metaData.TargetMap.ValueFor(target)
		return target, nil
	}
	if _, ok := metaData.TargetMap.NameToIndex[target]; !ok {
		return "", fmt.Errorf("unknown target value %s", target)
	}
	return target, nil
}

// buildFeatureIndex lays out the feature matrix with all continuous columns first.
func buildFeatureIndex(p DataParameters, metaData *model.Metadata) {
	featureIndex := 0
	for i, col := range metaData.Columns {
		if _, isCategorical := p.CategoricalColumns[col]; !isCategorical && i != metaData.TargetColumn {
			metaData.ContinuousFeaturesMap.Set(i, featureIndex)
			featureIndex++
		}
	}
	for i, col := range metaData.Columns {
		if _, isCategorical := p.CategoricalColumns[col]; isCategorical && i != metaData.TargetColumn {
			metaData.CategoricalFeaturesMap.Set(i, featureIndex)
			featureIndex++
		}
	}
}

func setTargetColumn(p DataParameters, metaData *model.Metadata) error {
	for i, col := range metaData.Columns {
		if col == p.TargetColumn {
			metaData.TargetColumn = i
			return nil
		}
	}
	return fmt.Errorf("target column %s not found in data header", p.TargetColumn)
}

func SaveModel(model *model.Model, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	err := encoder.Encode(model)
	if err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func LoadModel(input io.Reader) (*model.Model, error) {
	decoder := gob.NewDecoder(input)
	model := model.Model{}
	err := decoder.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	return &model, nil
}
