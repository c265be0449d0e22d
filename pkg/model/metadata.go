package model

import "sort"

// NameMap implements a bidirectional mapping between a name and an index
type NameMap struct {
	NameToIndex map[string]int
	IndexToName map[int]string
}

func NewNameMap() NameMap {
	return NameMap{
		NameToIndex: map[string]int{},
		IndexToName: map[int]string{},
	}
}

func (f NameMap) Set(name string, index int) {
	f.NameToIndex[name] = index
	f.IndexToName[index] = name
}

func (f NameMap) Size() int {
	return len(f.IndexToName)
}

// ValueFor returns the index of name, adding it with the next free index if not present.
func (f NameMap) ValueFor(name string) int {
	index, ok := f.NameToIndex[name]
	if !ok {
		index = f.Size()
		f.Set(name, index)
	}
	return index
}

func (f NameMap) SortedNames() []string {
	result := make([]string, 0, len(f.NameToIndex))
	for name := range f.NameToIndex {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ColumnMap is a bidirectional mapping between a column index and a dense matrix index
type ColumnMap struct {
	ColumnToIndex map[int]int
	IndexToColumn map[int]int
}

func NewColumnMap() ColumnMap {
	return ColumnMap{
		ColumnToIndex: map[int]int{},
		IndexToColumn: map[int]int{},
	}
}

func (f ColumnMap) Set(column int, index int) {
	f.ColumnToIndex[column] = index
	f.IndexToColumn[index] = column
}

func (f ColumnMap) Size() int {
	return len(f.ColumnToIndex)
}

// SortedColumns returns the data row columns ordered by their matrix index.
func (f ColumnMap) SortedColumns() []int {
	result := make([]int, 0, len(f.ColumnToIndex))
	for column := range f.ColumnToIndex {
		result = append(result, column)
	}
	sort.Slice(result, func(i, j int) bool { return f.ColumnToIndex[result[i]] < f.ColumnToIndex[result[j]] })
	return result
}

type Metadata struct {
	Columns []string

	// ContinuousFeaturesMap maps a data row column index to a feature matrix column in [0, k)
	ContinuousFeaturesMap ColumnMap

	// CategoricalFeaturesMap maps a data row column index to a feature matrix column in [k, n)
	CategoricalFeaturesMap ColumnMap

	// CategoricalValuesMap maps each categorical feature matrix column to its value codes
	CategoricalValuesMap map[int]NameMap

	// TargetColumn points to the column in the data row that contains the prediction target
	TargetColumn int

	// TargetMap contains the target labels observed in the training data
	TargetMap NameMap
}

func NewMetadata() *Metadata {
	return &Metadata{
		ContinuousFeaturesMap:  NewColumnMap(),
		CategoricalFeaturesMap: NewColumnMap(),
		CategoricalValuesMap:   map[int]NameMap{},
		TargetMap:              NewNameMap(),
	}
}

func (d *Metadata) FeatureCount() int {
	return d.CategoricalFeaturesMap.Size() + d.ContinuousFeaturesMap.Size()
}

// NumericFeatureCount is the split point between the numeric and categorical feature blocks.
func (d *Metadata) NumericFeatureCount() int {
	return d.ContinuousFeaturesMap.Size()
}

// CategoryCounts returns the number of known values of every categorical feature, in feature order.
func (d *Metadata) CategoryCounts() []int {
	result := make([]int, 0, d.CategoricalFeaturesMap.Size())
	for _, column := range d.CategoricalFeaturesMap.SortedColumns() {
		result = append(result, d.CategoricalValuesMap[d.CategoricalFeaturesMap.ColumnToIndex[column]].Size())
	}
	return result
}

func (d *Metadata) TargetName() string {
	return d.Columns[d.TargetColumn]
}
