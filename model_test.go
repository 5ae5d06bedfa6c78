package treecrf

import (
	"path/filepath"
	"testing"
)

func TestModelSaveLoad(t *testing.T) {
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2, Lambda: 0.01}
	m := NewModel(p)
	for i := range m.Theta {
		m.Theta[i] = 0.1 * float64(i)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveModel(m, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Params != m.Params {
		t.Errorf("params = %+v, want %+v", loaded.Params, m.Params)
	}
	if len(loaded.Theta) != len(m.Theta) {
		t.Fatalf("theta length = %d, want %d", len(loaded.Theta), len(m.Theta))
	}
	for i := range m.Theta {
		if loaded.Theta[i] != m.Theta[i] {
			t.Errorf("theta[%d] = %v, want %v", i, loaded.Theta[i], m.Theta[i])
		}
	}
}

func TestLoadModelDimensionMismatch(t *testing.T) {
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2}
	m := &Model{Params: p, Theta: []float64{1, 2, 3}} // wrong length

	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveModel(m, path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(path); err == nil {
		t.Error("expected a dimension mismatch error")
	}
}
