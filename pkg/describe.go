package pkg

import (
	"fmt"
	gio "io"
	"os"
	"sort"

	"mixednb/pkg/io"
)

// Describe writes the hyperparameters, classes and class log-priors of a saved model to w.
func Describe(modelFileName string, w gio.Writer) error {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}

	params := m.Classifier.GetParams()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %v\n", name, params[name])
	}
	fmt.Fprintf(w, "target: %s\n", m.MetaData.TargetName())
	logPrior := m.Classifier.ClassLogPrior()
	for i, class := range m.Classifier.Classes() {
		fmt.Fprintf(w, "class %s: %.5f\n", class, logPrior[i])
	}
	return nil
}
