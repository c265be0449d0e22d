package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mixednb/pkg"
	"mixednb/pkg/config"
)

func TrainCommand() *cobra.Command {

	var trainFile string
	var testFile string
	var outputFile string
	var targetColumn string
	var configFile string
	var trainingParameters pkg.TrainingParameters
	var modelParameters config.ModelConfig

	var cmd = &cobra.Command{
		Use:   "train -i trainData -o outputFile -t targetColumn",
		Short: "Trains a new model on the provided training data and saves the trained model",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("error loading configuration %s: %w", configFile, err)
			}
			overrideConfig(cmd, cfg, modelParameters, trainingParameters)
			config.ApplyDefaults(cfg)
			trainingParameters.ValidationFraction = cfg.Training.ValidationFraction
			trainingParameters.RndSeed = cfg.Training.RandomSeed
			return pkg.Train(trainFile, testFile, outputFile, targetColumn, cfg, trainingParameters)
		},
	}

	cmd.Flags().StringVarP(&trainFile, "train-file", "i", "", "name of train file")
	cmd.Flags().StringVarP(&testFile, "test-file", "", "", "name of test file")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "name of the file to save model to.")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML file with model and training parameters")
	cmd.Flags().StringSliceVarP(&trainingParameters.CategoricalColumns, "categorical-columns", "", nil, "list of columns holding categorical data")
	cmd.Flags().Float64VarP(&trainingParameters.ValidationFraction, "validation-fraction", "", 0, "fraction of the training data held out for validation")
	cmd.Flags().Int64VarP(&trainingParameters.RndSeed, "random-seed", "x", 42, "random seed")

	cmd.Flags().Float64VarP(&modelParameters.VarSmoothing, "var-smoothing", "", 1e-9, "portion of the largest variance added to all variances")
	cmd.Flags().Float64VarP(&modelParameters.Alpha, "alpha", "a", 1.0, "additive smoothing of categorical features")
	cmd.Flags().BoolVarP(&modelParameters.ParallelFit, "parallel-fit", "", false, "fit the numeric and categorical models concurrently")

	cmd.Flags().StringVarP(&targetColumn, "target-column", "t", "", "target column")

	_ = cmd.MarkFlagRequired("train-file")
	_ = cmd.MarkFlagRequired("output-file")
	_ = cmd.MarkFlagRequired("target-column")

	return cmd
}

// overrideConfig applies the flags explicitly set on the command line over the loaded configuration.
func overrideConfig(cmd *cobra.Command, cfg *config.Config, modelParameters config.ModelConfig, trainingParameters pkg.TrainingParameters) {
	flags := cmd.Flags()
	if flags.Changed("var-smoothing") {
		cfg.Model.VarSmoothing = modelParameters.VarSmoothing
	}
	if flags.Changed("alpha") {
		cfg.Model.Alpha = modelParameters.Alpha
	}
	if flags.Changed("parallel-fit") {
		cfg.Model.ParallelFit = modelParameters.ParallelFit
	}
	if flags.Changed("validation-fraction") {
		cfg.Training.ValidationFraction = trainingParameters.ValidationFraction
	}
	if flags.Changed("random-seed") {
		cfg.Training.RandomSeed = trainingParameters.RndSeed
	}
}

func TestCommand() *cobra.Command {
	var modelFile string
	var inputFile string
	var outputFile string

	var cmd = &cobra.Command{
		Use:   "test -m modelFile -i testFile [-o outputFile]",
		Short: "Runs the provided model on the specified data input and optionally writes the predictions",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Test(modelFile, inputFile, outputFile)
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of model to test")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of data input file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional)")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func ParamsCommand() *cobra.Command {
	var modelFile string

	var cmd = &cobra.Command{
		Use:   "params -m modelFile",
		Short: "Prints the hyperparameters and classes of a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Describe(modelFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of model to describe")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "mixednb", PersistentPreRunE: setupLogging, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(TrainCommand())
	Main.AddCommand(TestCommand())
	Main.AddCommand(ParamsCommand())

	if err := Main.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %s", logLevel)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		return fmt.Errorf("invalid log format %s", logFormat)
	}
	return nil
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
