package cli

import (
	"fmt"
	"log/slog"

	"github.com/happyhackingspace/treecrf"
	"github.com/happyhackingspace/treecrf/internal/dataset"
	"github.com/spf13/cobra"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:     "evaluate <modelfile>",
		Short:   "Evaluate a trained model on a labeled dataset",
		Args:    cobra.ExactArgs(1),
		Example: `  treecrf evaluate model.json --data test.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := treecrf.LoadModel(args[0])
			if err != nil {
				return err
			}
			ds, err := dataset.Load(dataFile)
			if err != nil {
				return err
			}
			if len(ds.Instances) == 0 {
				return fmt.Errorf("dataset %s has no instances", dataFile)
			}
			if ds.NumHiddenStates != model.Params.NumHiddenStates ||
				ds.NumObservedStates != model.Params.NumObservedStates {
				return fmt.Errorf("dataset dimensions %d/%d do not match model %d/%d",
					ds.NumHiddenStates, ds.NumObservedStates,
					model.Params.NumHiddenStates, model.Params.NumObservedStates)
			}
			slog.Info("Evaluating", "data", dataFile, "instances", len(ds.Instances))

			var posCorrect, posTotal, seqCorrect int
			nll := 0.0
			for i, inst := range ds.Instances {
				n, _, err := treecrf.Evaluate(inst.X, inst.Y, model.Theta, model.Params)
				if err != nil {
					return fmt.Errorf("instance %d: %w", i, err)
				}
				nll += n

				pred, err := model.Predict(inst.X)
				if err != nil {
					return fmt.Errorf("instance %d: %w", i, err)
				}
				allCorrect := true
				for j := range pred {
					if pred[j] == inst.Y[j] {
						posCorrect++
					} else {
						allCorrect = false
					}
					posTotal++
				}
				if allCorrect {
					seqCorrect++
				}
			}

			fmt.Printf("Mean NLL: %.4f\n", nll/float64(len(ds.Instances)))
			fmt.Printf("Position accuracy: %.1f%% (%d/%d)\n",
				100*float64(posCorrect)/float64(posTotal), posCorrect, posTotal)
			fmt.Printf("Sequence accuracy: %.1f%% (%d/%d)\n",
				100*float64(seqCorrect)/float64(len(ds.Instances)), seqCorrect, len(ds.Instances))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "test.json", "Path to the dataset file")
	return cmd
}
