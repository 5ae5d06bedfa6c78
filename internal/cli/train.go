package cli

import (
	"log/slog"
	"time"

	"github.com/happyhackingspace/treecrf"
	"github.com/happyhackingspace/treecrf/internal/dataset"
	"github.com/spf13/cobra"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var dataFile string
	var lambda float64
	var maxIter int

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on a labeled dataset",
		Args:  cobra.ExactArgs(1),
		Example: `  treecrf train model.json --data train.json
  treecrf train model.json --data train.json --lambda 0.01 -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			ds, err := dataset.Load(dataFile)
			if err != nil {
				return err
			}
			slog.Info("Training", "data", dataFile, "instances", len(ds.Instances), "output", modelPath)

			config := treecrf.DefaultTrainerConfig()
			config.MaxIterations = maxIter
			config.Progress = !c.silent

			start := time.Now()
			model, err := treecrf.Train(ds.Instances, ds.Params(lambda), config)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))
			if err := treecrf.SaveModel(model, modelPath); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "train.json", "Path to the dataset file")
	cmd.Flags().Float64Var(&lambda, "lambda", 0.01, "L2 regularization strength")
	cmd.Flags().IntVar(&maxIter, "max-iter", 100, "Maximum training iterations")
	return cmd
}
