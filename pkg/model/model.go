package model

import "encoding/gob"

func init() {
	gob.Register(&GaussianNB{})
	gob.Register(&CategoricalNB{})
}

// Model is the unit persisted by the train command: the trained classifier together with the
// metadata needed to turn data rows into its feature matrix.
type Model struct {
	MetaData   *Metadata
	Classifier *MixedNB
}
