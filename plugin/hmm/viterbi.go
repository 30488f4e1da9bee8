package hmm

import (
	"math"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
)

// Result is the outcome of one Viterbi decode.
type Result struct {
	// Prob is the probability of the best path. It may underflow to 0 for long
	// inputs; LogProb does not.
	Prob    float64
	LogProb float64
	Path    []State
}

// lattice holds the per-call DP state: best log score and backpointer for
// every (position, state) pair.
type lattice struct {
	score [][]float64
	back  [][]int
}

func newLattice(n, states int) *lattice {
	l := &lattice{score: make([][]float64, n), back: make([][]int, n)}
	for t := 0; t < n; t++ {
		l.score[t] = make([]float64, states)
		l.back[t] = make([]int, states)
	}
	return l
}

// Decode returns the most likely state path for text, one state per rune.
func Decode(text string, m *Model) (float64, []State, error) {
	runes := []rune(text)
	symbols := make([]string, len(runes))
	for i, r := range runes {
		symbols[i] = string(r)
	}
	res, err := Viterbi(symbols, m)
	if err != nil {
		return 0, nil, err
	}
	return res.Prob, res.Path, nil
}

// Viterbi decodes a symbol sequence.
//
// A symbol no state has ever emitted gets emission 1.0 in every state, so at
// that position transitions alone choose the state. Predecessors with zero
// probability are never extended. Ties go to the state that comes first in
// alphabet order.
func Viterbi(symbols []string, m *Model) (Result, error) {
	if len(symbols) == 0 {
		return Result{}, taggererrors.EmptyInput("decode called with empty text")
	}
	if m == nil {
		return Result{}, taggererrors.InvalidArgument("decode called without a model")
	}

	logInit, logTrans := m.dense()
	n, k := len(symbols), len(alphabet)
	lat := newLattice(n, k)
	emit := make([]float64, k)

	emissionColumn(m, symbols[0], emit)
	for i := 0; i < k; i++ {
		lat.score[0][i] = logInit[i] + emit[i]
		lat.back[0][i] = -1
	}

	for t := 1; t < n; t++ {
		prev := lat.score[t-1]
		if !anyPositive(prev) {
			return Result{}, taggererrors.DecodeDegenerate(t - 1)
		}
		emissionColumn(m, symbols[t], emit)

		for i := 0; i < k; i++ {
			best, arg := math.Inf(-1), -1
			for j := 0; j < k; j++ {
				if math.IsInf(prev[j], -1) {
					continue
				}
				v := prev[j] + logTrans[j][i] + emit[i]
				if arg < 0 || v > best {
					best, arg = v, j
				}
			}
			lat.score[t][i] = best
			lat.back[t][i] = arg
		}
	}

	last := lat.score[n-1]
	if !anyPositive(last) {
		return Result{}, taggererrors.DecodeDegenerate(n - 1)
	}
	best, arg := math.Inf(-1), -1
	for i, v := range last {
		if arg < 0 || v > best {
			best, arg = v, i
		}
	}

	path := make([]State, n)
	for t := n - 1; t >= 0; t-- {
		path[t] = alphabet[arg]
		arg = lat.back[t][arg]
	}
	return Result{Prob: math.Exp(best), LogProb: best, Path: path}, nil
}

// emissionColumn fills out with log emission probabilities of symbol for
// every state. The unseen check runs once per position across all states.
func emissionColumn(m *Model, symbol string, out []float64) {
	if !m.Knows(symbol) {
		for i := range out {
			out[i] = 0
		}
		return
	}
	for i, s := range alphabet {
		out[i] = logProb(m.Emission[s][symbol])
	}
}

func anyPositive(scores []float64) bool {
	for _, v := range scores {
		if !math.IsInf(v, -1) {
			return true
		}
	}
	return false
}
