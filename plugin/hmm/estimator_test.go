package hmm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
)

var trainingLines = []string{
	"迈向/v 充满/v 希望/n 的/u 新/a 世纪/n",
	"[希望/n 工程/n]nz 救助/v 了/u 一/m 批/q 失学/v 儿童/n",
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func st(s string) State {
	state, err := ParseState(s)
	if err != nil {
		panic(err)
	}
	return state
}

func trainToy(t *testing.T, workers int, lines []string) (*Model, *Report) {
	t.Helper()
	m, report, err := NewEstimator(workers, quietLogger()).Estimate(context.Background(), lines)
	require.NoError(t, err)
	return m, report
}

func TestEstimate_InitialProbabilities(t *testing.T) {
	m, report := trainToy(t, 1, trainingLines)

	assert.Equal(t, 2, report.Lines)
	assert.Equal(t, int64(2), report.Records)
	assert.Equal(t, int64(23), report.Symbols)

	assert.InDelta(t, 0.5, m.Initial[st("B_v")], 1e-12)
	assert.InDelta(t, 0.5, m.Initial[st("B_nz")], 1e-12)

	var sum float64
	for _, p := range m.Initial {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestEstimate_TransitionSmoothing(t *testing.T) {
	m, _ := trainToy(t, 1, trainingLines)

	// B_v occurs 4 times, always followed by E_v.
	assert.InDelta(t, 1.0, m.Transition[st("B_v")][st("E_v")], 1e-12)
	assert.InDelta(t, 0.2, m.Transition[st("B_v")][st("S_u")], 1e-12)

	// E_v occurs 4 times: twice before B_n, once before B_v.
	assert.InDelta(t, 0.6, m.Transition[st("E_v")][st("B_n")], 1e-12)
	assert.InDelta(t, 0.4, m.Transition[st("E_v")][st("B_v")], 1e-12)

	// Every row covers the whole alphabet, including unseen source states.
	for _, s := range Alphabet() {
		require.Len(t, m.Transition[s], AlphabetSize(), s.String())
	}
	assert.InDelta(t, 1.0, m.Transition[st("B_ag")][st("S_z")], 1e-12)
}

func TestEstimate_EmissionOnlyAfterFirstPosition(t *testing.T) {
	m, _ := trainToy(t, 1, trainingLines)

	assert.Equal(t, map[string]float64{"充": 0.4, "救": 0.4, "失": 0.4}, m.Emission[st("B_v")])
	assert.Equal(t, map[string]float64{"向": 0.4, "满": 0.4, "助": 0.4, "学": 0.4}, m.Emission[st("E_v")])
	assert.InDelta(t, 1.0, m.Emission[st("S_m")]["一"], 1e-12)

	// 希 of 希望工程 sits at position 0 and is never emitted by B_nz.
	_, ok := m.Emission[st("B_nz")]
	assert.False(t, ok)
	assert.False(t, m.Knows("迈"))
	assert.True(t, m.Knows("希"))
}

func TestEstimate_DeterministicAcrossWorkers(t *testing.T) {
	lines := append([]string{}, trainingLines...)
	lines = append(lines,
		"中国/ns 人民/n 热爱/v 和平/n",
		"",
		"他/r 说/v 的/u 确实/ad 在理/a",
		"一九九八年/t 新年/t 讲话/n",
	)

	want, _ := trainToy(t, 1, lines)
	wi, wt, we := want.Tables()
	for _, workers := range []int{2, 3, 8, 64} {
		got, report := trainToy(t, workers, lines)
		gi, gt, ge := got.Tables()
		assert.Equal(t, wi, gi, "workers=%d", workers)
		assert.Equal(t, wt, gt, "workers=%d", workers)
		assert.Equal(t, we, ge, "workers=%d", workers)
		assert.Equal(t, 6, report.Lines)
	}
}

func TestCounts_MergeKeepsFirstSeenOrder(t *testing.T) {
	rec := func(line string) Record {
		r, err := recordFromLine(line)
		require.NoError(t, err)
		return r
	}

	a := NewCounts()
	a.Add(rec("的/u 的/u 了/u"))
	b := NewCounts()
	b.Add(rec("的/u 着/u 过/u 了/u"))

	a.Merge(b)
	u := a.Emission[st("S_u").Index()]
	assert.Equal(t, []string{"的", "了", "着", "过"}, u.Order)
	assert.Equal(t, int64(2), u.Counts["了"])
	assert.Equal(t, int64(2), a.Initial[st("S_u").Index()])
	assert.Equal(t, int64(2), a.Lines)
}

func TestEstimate_SkipsMalformedLines(t *testing.T) {
	lines := append([]string{"坏行 没有/斜杠", "[未闭合/n"}, trainingLines...)
	m, report := trainToy(t, 2, lines)

	assert.Equal(t, 4, report.Lines)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, int64(2), report.Records)
	assert.InDelta(t, 0.5, m.Initial[st("B_v")], 1e-12)
}

func TestEstimate_Errors(t *testing.T) {
	est := NewEstimator(4, quietLogger())

	_, _, err := est.Estimate(context.Background(), nil)
	assert.True(t, errors.Is(err, taggererrors.ErrInvalidArgument))

	_, _, err = est.Estimate(context.Background(), []string{"", "  ", "坏行"})
	assert.True(t, errors.Is(err, taggererrors.ErrInvalidArgument))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = est.Estimate(ctx, trainingLines)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateReader(t *testing.T) {
	r := strings.NewReader(strings.Join(trainingLines, "\n") + "\n")
	m, report, err := NewEstimator(2, quietLogger()).EstimateReader(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Lines)
	assert.InDelta(t, 0.5, m.Initial[st("B_nz")], 1e-12)
}

func TestModel_TablesRoundTrip(t *testing.T) {
	m, _ := trainToy(t, 1, trainingLines)
	initial, transition, emission := m.Tables()
	assert.InDelta(t, 0.5, initial["B_v"], 1e-12)

	back, err := FromTables(initial, transition, emission)
	require.NoError(t, err)
	assert.Equal(t, m.Initial, back.Initial)
	assert.Equal(t, m.Emission, back.Emission)
	assert.Equal(t, m.Transition, back.Transition)

	_, err = FromTables(map[string]float64{"Q_n": 1}, nil, nil)
	assert.Error(t, err)
}

func TestLogProb(t *testing.T) {
	assert.True(t, math.IsInf(logProb(0), -1))
	assert.Equal(t, 0.0, logProb(1))
}
