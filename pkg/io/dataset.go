package io

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

type DataSet struct {
	Data        []*DataRecord
	Rand        *rand.Rand
	dataIndices []int
}

func NewDataSet(data []*DataRecord, rnd *rand.Rand) *DataSet {
	dataIndices := make([]int, len(data))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	return NewDataSetSplit(data, rnd, dataIndices)
}

func NewDataSetSplit(data []*DataRecord, rnd *rand.Rand, indices []int) *DataSet {
	return &DataSet{Data: data, Rand: rnd, dataIndices: indices}
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

// RandomSplit shuffles the records and partitions them into data sets of the given sizes.
func (d *DataSet) RandomSplit(sizes ...int) []*DataSet {
	indices := make([]int, len(d.dataIndices))
	copy(indices, d.dataIndices)
	d.Rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	splits := make([]*DataSet, len(sizes))
	idx := 0
	for i := range sizes {
		splitIndices := make([]int, sizes[i])
		for j := range splitIndices {
			splitIndices[j] = indices[idx]
			idx++
		}
		splits[i] = NewDataSetSplit(d.Data, d.Rand, splitIndices)
	}
	return splits
}

// Matrix assembles the feature matrix, continuous columns first, and the target labels.
func (d *DataSet) Matrix() (*mat.Dense, []string) {
	if len(d.dataIndices) == 0 {
		return nil, nil
	}
	first := d.Data[d.dataIndices[0]]
	numContinuous := len(first.ContinuousFeatures)
	cols := numContinuous + len(first.CategoricalFeatures)
	if cols == 0 {
		return nil, nil
	}
	features := mat.NewDense(len(d.dataIndices), cols, nil)
	targets := make([]string, len(d.dataIndices))
	for i, index := range d.dataIndices {
		record := d.Data[index]
		row := features.RawRowView(i)
		copy(row, record.ContinuousFeatures)
		for j, code := range record.CategoricalFeatures {
			row[numContinuous+j] = float64(code)
		}
		targets[i] = record.Target
	}
	return features, targets
}
