package treecrf

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model holds the fitted parameters together with the dimensions they
// were trained under.
type Model struct {
	Params ModelParams `json:"params"`
	Theta  []float64   `json:"theta"`
}

// NewModel creates a zero-initialized model for the given dimensions.
func NewModel(p ModelParams) *Model {
	return &Model{Params: p, Theta: make([]float64, FeatureSetSize(p))}
}

// SaveModel serializes the model to JSON.
func SaveModel(m *Model, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes a model from JSON and checks that the
// parameter vector matches the stored dimensions.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if want := FeatureSetSize(m.Params); len(m.Theta) != want {
		return nil, fmt.Errorf("treecrf: model has %d parameters, dimensions need %d", len(m.Theta), want)
	}
	return &m, nil
}
