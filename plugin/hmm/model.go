package hmm

import (
	"fmt"
	"math"
	"sync"
)

// Model holds the three probability tables of a trained HMM.
// A Model must not be modified once it is trained or loaded; concurrent
// decodes share it without locking.
type Model struct {
	Initial    map[State]float64
	Transition map[State]map[State]float64
	Emission   map[State]map[string]float64

	denseOnce sync.Once
	logInit   []float64
	logTrans  [][]float64
}

// NewModel returns a model with empty tables.
func NewModel() *Model {
	return &Model{
		Initial:    make(map[State]float64),
		Transition: make(map[State]map[State]float64),
		Emission:   make(map[State]map[string]float64),
	}
}

// Knows reports whether any state has an emission entry for symbol.
func (m *Model) Knows(symbol string) bool {
	for _, table := range m.Emission {
		if _, ok := table[symbol]; ok {
			return true
		}
	}
	return false
}

// dense returns log-space initial and transition tables indexed by State.Index.
func (m *Model) dense() ([]float64, [][]float64) {
	m.denseOnce.Do(func() {
		n := len(alphabet)
		m.logInit = make([]float64, n)
		m.logTrans = make([][]float64, n)
		for i, s := range alphabet {
			m.logInit[i] = logProb(m.Initial[s])
			row := make([]float64, n)
			next := m.Transition[s]
			for j, t := range alphabet {
				row[j] = logProb(next[t])
			}
			m.logTrans[i] = row
		}
	})
	return m.logInit, m.logTrans
}

func logProb(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return math.Log(p)
}

// Tables returns the model as string-keyed mappings, the form persisted by the
// model store: states render as "B_n" and symbols stay as they are.
func (m *Model) Tables() (initial map[string]float64, transition map[string]map[string]float64, emission map[string]map[string]float64) {
	initial = make(map[string]float64, len(m.Initial))
	for s, p := range m.Initial {
		initial[s.String()] = p
	}

	transition = make(map[string]map[string]float64, len(m.Transition))
	for s, row := range m.Transition {
		out := make(map[string]float64, len(row))
		for t, p := range row {
			out[t.String()] = p
		}
		transition[s.String()] = out
	}

	emission = make(map[string]map[string]float64, len(m.Emission))
	for s, row := range m.Emission {
		out := make(map[string]float64, len(row))
		for sym, p := range row {
			out[sym] = p
		}
		emission[s.String()] = out
	}
	return initial, transition, emission
}

// FromTables rebuilds a model from the string-keyed mappings returned by Tables.
func FromTables(initial map[string]float64, transition map[string]map[string]float64, emission map[string]map[string]float64) (*Model, error) {
	m := NewModel()
	for k, p := range initial {
		s, err := ParseState(k)
		if err != nil {
			return nil, fmt.Errorf("initial table: %w", err)
		}
		m.Initial[s] = p
	}
	for k, row := range transition {
		s, err := ParseState(k)
		if err != nil {
			return nil, fmt.Errorf("transition table: %w", err)
		}
		out := make(map[State]float64, len(row))
		for k2, p := range row {
			t, err := ParseState(k2)
			if err != nil {
				return nil, fmt.Errorf("transition table row %s: %w", k, err)
			}
			out[t] = p
		}
		m.Transition[s] = out
	}
	for k, row := range emission {
		s, err := ParseState(k)
		if err != nil {
			return nil, fmt.Errorf("emission table: %w", err)
		}
		out := make(map[string]float64, len(row))
		for sym, p := range row {
			out[sym] = p
		}
		m.Emission[s] = out
	}
	return m, nil
}
