package hmm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
)

type countingLoader struct {
	key   string
	model *Model
	delay time.Duration
	loads atomic.Int32
}

func (l *countingLoader) Key() string { return l.key }

func (l *countingLoader) Load(context.Context) (*Model, error) {
	l.loads.Add(1)
	time.Sleep(l.delay)
	return l.model, nil
}

func newTestTagger(loader ModelLoader, opts ...TaggerOption) *Tagger {
	opts = append([]TaggerOption{WithCache(NewModelCache(2)), WithLogger(quietLogger())}, opts...)
	return NewTagger(loader, opts...)
}

func TestTagger_LoadsLazilyOnce(t *testing.T) {
	loader := &countingLoader{key: "toy", model: toyModel()}
	tagger := newTestTagger(loader)
	assert.Equal(t, int32(0), loader.loads.Load())

	for i := 0; i < 3; i++ {
		words, err := tagger.Cut(context.Background(), "我喜欢")
		require.NoError(t, err)
		assert.Equal(t, []WordTag{{"我", "n"}, {"喜欢", "v"}}, words)
	}
	assert.Equal(t, int32(1), loader.loads.Load())

	tagger.Invalidate()
	_, err := tagger.Cut(context.Background(), "我")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.loads.Load())
}

func TestTagger_ConcurrentFirstUse(t *testing.T) {
	loader := &countingLoader{key: "toy", model: toyModel(), delay: 20 * time.Millisecond}
	tagger := newTestTagger(loader)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tagger.Cut(context.Background(), "我喜欢")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), loader.loads.Load())
}

func TestTagger_EmptyTextDoesNotLoad(t *testing.T) {
	loader := &countingLoader{key: "toy", model: toyModel()}
	tagger := newTestTagger(loader)

	_, err := tagger.Cut(context.Background(), "")
	assert.True(t, errors.Is(err, taggererrors.ErrEmptyInput))
	assert.Equal(t, int32(0), loader.loads.Load())
}

func TestTagger_MissingModel(t *testing.T) {
	tagger := newTestTagger(NewStaticLoader("none", nil))

	_, err := tagger.Cut(context.Background(), "我")
	assert.True(t, errors.Is(err, taggererrors.ErrModelNotFound))
}

func TestTagger_CutBatch(t *testing.T) {
	tagger := newTestTagger(NewStaticLoader("toy", toyModel()), WithWorkers(3))

	out, err := tagger.CutBatch(context.Background(), []string{"我喜欢", "我X欢", "我们"})
	require.NoError(t, err)
	assert.Equal(t, [][]WordTag{
		{{"我", "n"}, {"喜欢", "v"}},
		{{"我", "n"}, {"X欢", "v"}},
		{{"我", "n"}, {"们", "n"}},
	}, out)

	_, err = tagger.CutBatch(context.Background(), []string{"我喜欢", "喜我"})
	assert.True(t, errors.Is(err, taggererrors.ErrDecodeDegenerate))

	_, err = tagger.CutBatch(context.Background(), []string{"我", ""})
	assert.True(t, errors.Is(err, taggererrors.ErrEmptyInput))
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name string
		text string
		path []State
		want []WordTag
	}{
		{
			name: "regular runs",
			text: "希望工程救助",
			path: states("B_nz", "M_nz", "M_nz", "E_nz", "B_v", "E_v"),
			want: []WordTag{{"希望工程", "nz"}, {"救助", "v"}},
		},
		{
			name: "singles",
			text: "了一",
			path: states("S_u", "S_m"),
			want: []WordTag{{"了", "u"}, {"一", "m"}},
		},
		{
			name: "run left open at the end",
			text: "希望工",
			path: states("B_n", "E_n", "M_n"),
			want: []WordTag{{"希望", "n"}, {"工", "n"}},
		},
		{
			name: "run opened by M",
			text: "希望",
			path: states("M_v", "E_v"),
			want: []WordTag{{"希望", "v"}},
		},
		{
			name: "B closes an open run",
			text: "希望",
			path: states("B_n", "B_v"),
			want: []WordTag{{"希", "n"}, {"望", "v"}},
		},
		{
			name: "S closes an open run",
			text: "希望",
			path: states("B_n", "S_u"),
			want: []WordTag{{"希", "n"}, {"望", "u"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reconstruct(tt.text, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconstruct_LogsRepairs(t *testing.T) {
	tests := []struct {
		name string
		text string
		path []State
		logs []string
	}{
		{"regular runs", "希望了", states("B_n", "E_n", "S_u"), nil},
		{"S closes an open run", "希望", states("B_n", "S_u"), []string{"word run closed early", "pos=n", "state=S_u"}},
		{"B closes an open run", "希望", states("B_n", "B_v"), []string{"word run closed early", "state=B_v"}},
		{"run opened by M", "希望", states("M_v", "E_v"), []string{"word run opened without begin", "position=0"}},
		{"run left open at the end", "希望", states("B_n", "M_n"), []string{"word run left open at end of text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			_, err := reconstruct(tt.text, tt.path, logger)
			require.NoError(t, err)

			if len(tt.logs) == 0 {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.logs {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestReconstruct_Errors(t *testing.T) {
	_, err := Reconstruct("希望", states("B_n", "E_v"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, taggererrors.ErrInconsistentTagRun))

	_, err = Reconstruct("希望", states("S_n"))
	assert.True(t, errors.Is(err, taggererrors.ErrInvalidArgument))
}

func TestTagger_CutKeepsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tagger := newTestTagger(NewStaticLoader("toy", toyModel()), WithLogger(logger))

	parent := observability.NewRequestContextWithID(logger, "req-7", "POST /api/v1/segment", "")
	ctx := observability.WithRequestContext(context.Background(), parent)
	_, err := tagger.Cut(ctx, "我喜欢")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "request_id=req-7")
	assert.Contains(t, buf.String(), "operation=cut")
}
