// Package dataset reads and writes labeled instance files.
//
// A dataset is a single JSON document carrying the model dimensions and
// the instances, e.g.:
//
//	{
//	  "num_hidden_states": 26,
//	  "num_observed_states": 2,
//	  "instances": [{"x": [0, 1, 0], "y": [3, 7, 3]}]
//	}
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/happyhackingspace/treecrf"
)

// Dataset couples instances with the dimensions they were encoded
// under.
type Dataset struct {
	NumHiddenStates   int                `json:"num_hidden_states"`
	NumObservedStates int                `json:"num_observed_states"`
	Instances         []treecrf.Instance `json:"instances"`
}

// Params returns the model dimensions with the given regularization
// strength.
func (d *Dataset) Params(lambda float64) treecrf.ModelParams {
	return treecrf.ModelParams{
		NumHiddenStates:   d.NumHiddenStates,
		NumObservedStates: d.NumObservedStates,
		Lambda:            lambda,
	}
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}

// Save writes the dataset to a JSON file.
func Save(d *Dataset, path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (d *Dataset) validate() error {
	if d.NumHiddenStates < 1 || d.NumObservedStates < 1 {
		return fmt.Errorf("invalid dimensions %d/%d", d.NumHiddenStates, d.NumObservedStates)
	}
	for i, inst := range d.Instances {
		if len(inst.X) == 0 || len(inst.X) != len(inst.Y) {
			return fmt.Errorf("instance %d: lengths %d/%d", i, len(inst.X), len(inst.Y))
		}
		for j, v := range inst.X {
			if v < 0 || v >= d.NumObservedStates {
				return fmt.Errorf("instance %d: observed state %d at position %d out of range", i, v, j)
			}
		}
		for j, v := range inst.Y {
			if v < 0 || v >= d.NumHiddenStates {
				return fmt.Errorf("instance %d: hidden state %d at position %d out of range", i, v, j)
			}
		}
	}
	return nil
}
