package hmm

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
)

// Counts accumulates training frequencies. Slices are indexed by State.Index.
type Counts struct {
	Lines       int64
	Symbols     int64
	Initial     []int64
	Occurrences []int64
	Transition  [][]int64
	Emission    []*SymbolCounts
}

// SymbolCounts counts symbols for one state, remembering first-seen order.
type SymbolCounts struct {
	Order  []string
	Counts map[string]int64
}

func (sc *SymbolCounts) add(symbol string, n int64) {
	if _, ok := sc.Counts[symbol]; !ok {
		sc.Order = append(sc.Order, symbol)
	}
	sc.Counts[symbol] += n
}

// NewCounts returns zeroed counts for the full alphabet.
func NewCounts() *Counts {
	n := len(alphabet)
	c := &Counts{
		Initial:     make([]int64, n),
		Occurrences: make([]int64, n),
		Transition:  make([][]int64, n),
		Emission:    make([]*SymbolCounts, n),
	}
	for i := range c.Transition {
		c.Transition[i] = make([]int64, n)
		c.Emission[i] = &SymbolCounts{Counts: make(map[string]int64)}
	}
	return c
}

// Add counts one record. The first state feeds the initial counts; every later
// position feeds a transition from its predecessor and an emission.
func (c *Counts) Add(rec Record) {
	if rec.Len() == 0 {
		return
	}
	c.Lines++
	prev := -1
	for t, s := range rec.States {
		i := s.Index()
		c.Occurrences[i]++
		c.Symbols++
		if t == 0 {
			c.Initial[i]++
		} else {
			c.Transition[prev][i]++
			c.Emission[i].add(rec.Symbols[t], 1)
		}
		prev = i
	}
}

// Merge folds o into c. Symbols new to c are appended in o's first-seen order,
// so merging shards in line order reproduces a sequential pass.
func (c *Counts) Merge(o *Counts) {
	c.Lines += o.Lines
	c.Symbols += o.Symbols
	for i := range c.Initial {
		c.Initial[i] += o.Initial[i]
		c.Occurrences[i] += o.Occurrences[i]
		for j, n := range o.Transition[i] {
			c.Transition[i][j] += n
		}
		for _, sym := range o.Emission[i].Order {
			c.Emission[i].add(sym, o.Emission[i].Counts[sym])
		}
	}
}

// Model converts the counts into smoothed probabilities.
//
//	Initial[s]       = initial(s) / lines
//	Transition[s][t] = (transition(s,t) + 1) / (occurrences(s) + 1), for every t
//	Emission[s][c]   = (emission(s,c) + 1) / (occurrences(s) + 1), observed c only
func (c *Counts) Model() *Model {
	m := NewModel()
	for i, s := range alphabet {
		if c.Initial[i] > 0 && c.Lines > 0 {
			m.Initial[s] = float64(c.Initial[i]) / float64(c.Lines)
		}

		denom := float64(c.Occurrences[i] + 1)
		row := make(map[State]float64, len(alphabet))
		for j, t := range alphabet {
			row[t] = float64(c.Transition[i][j]+1) / denom
		}
		m.Transition[s] = row

		sc := c.Emission[i]
		if len(sc.Order) == 0 {
			continue
		}
		emit := make(map[string]float64, len(sc.Order))
		for _, sym := range sc.Order {
			emit[sym] = float64(sc.Counts[sym]+1) / denom
		}
		m.Emission[s] = emit
	}
	return m
}

// Report summarises a training run.
type Report struct {
	Lines    int           // non-blank lines seen
	Skipped  int           // malformed lines skipped
	Records  int64         // lines counted
	Symbols  int64         // (symbol, state) pairs counted
	Duration time.Duration // wall time of the run
}

// Estimator trains a Model from corpus lines.
type Estimator struct {
	// Workers is the number of shards counted concurrently.
	Workers int
	Logger  *slog.Logger
}

// NewEstimator creates an estimator. Non-positive workers means one.
func NewEstimator(workers int, logger *slog.Logger) *Estimator {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{Workers: workers, Logger: logger}
}

type shardResult struct {
	counts  *Counts
	lines   int
	skipped int
}

// Estimate counts every line and returns the smoothed model.
// Malformed lines are logged and skipped; they never abort the run.
func (e *Estimator) Estimate(ctx context.Context, lines []string) (*Model, *Report, error) {
	start := time.Now()
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(lines) {
		workers = len(lines)
	}
	if workers == 0 {
		return nil, nil, taggererrors.InvalidArgument("corpus is empty")
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]shardResult, workers)
	size := (len(lines) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * size
		hi := min(lo+size, len(lines))
		if lo >= hi {
			results[w].counts = NewCounts()
			continue
		}
		g.Go(func() error {
			res, err := countShard(gctx, logger, lines[lo:hi], lo)
			if err != nil {
				return err
			}
			results[w] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "training canceled")
	}

	total := NewCounts()
	report := &Report{}
	for _, res := range results {
		total.Merge(res.counts)
		report.Lines += res.lines
		report.Skipped += res.skipped
	}
	if total.Lines == 0 {
		return nil, nil, taggererrors.InvalidArgument("corpus has no well-formed lines")
	}

	report.Records = total.Lines
	report.Symbols = total.Symbols
	report.Duration = time.Since(start)
	logger.Info("estimated model",
		slog.Int("lines", report.Lines),
		slog.Int("skipped", report.Skipped),
		slog.Int64("symbols", report.Symbols),
		slog.Int64(observability.LogFieldDuration, report.Duration.Milliseconds()),
	)
	return total.Model(), report, nil
}

func countShard(ctx context.Context, logger *slog.Logger, lines []string, offset int) (shardResult, error) {
	res := shardResult{counts: NewCounts()}
	for i, line := range lines {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		res.lines++

		rec, err := recordFromLine(line)
		if err != nil {
			res.skipped++
			logger.Warn("skipping malformed corpus line",
				slog.Int(observability.LogFieldLine, offset+i+1),
				slog.String(observability.LogFieldErrorCode, string(taggererrors.GetCodeFromError(err, taggererrors.ErrCodeMalformedRecord))),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.counts.Add(rec)
	}
	return res, nil
}

func recordFromLine(line string) (Record, error) {
	words, err := ParseLine(line)
	if err != nil {
		return Record{}, err
	}
	return NewRecord(words)
}

// EstimateReader reads a UTF-8 corpus, one sentence per line, and estimates a model.
func (e *Estimator) EstimateReader(ctx context.Context, r io.Reader) (*Model, *Report, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read corpus")
	}
	return e.Estimate(ctx, lines)
}
