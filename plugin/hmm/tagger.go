package hmm

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
)

// ModelLoader loads a persisted model. Key identifies the model in the cache.
type ModelLoader interface {
	Key() string
	Load(ctx context.Context) (*Model, error)
}

// StaticLoader serves an in-memory model.
type StaticLoader struct {
	key   string
	model *Model
}

// NewStaticLoader wraps an already trained model.
func NewStaticLoader(key string, m *Model) *StaticLoader {
	return &StaticLoader{key: key, model: m}
}

func (l *StaticLoader) Key() string { return l.key }

func (l *StaticLoader) Load(context.Context) (*Model, error) {
	if l.model == nil {
		return nil, taggererrors.ModelNotFound(l.key)
	}
	return l.model, nil
}

// Tagger segments and POS-tags text with a lazily loaded model.
type Tagger struct {
	loader  ModelLoader
	cache   *ModelCache
	logger  *slog.Logger
	workers int
}

// TaggerOption configures a Tagger.
type TaggerOption func(*Tagger)

// WithCache makes the tagger use c instead of the process-wide cache.
func WithCache(c *ModelCache) TaggerOption {
	return func(t *Tagger) { t.cache = c }
}

// WithLogger sets the tagger's logger.
func WithLogger(l *slog.Logger) TaggerOption {
	return func(t *Tagger) { t.logger = l }
}

// WithWorkers bounds the parallelism of CutBatch.
func WithWorkers(n int) TaggerOption {
	return func(t *Tagger) { t.workers = n }
}

// NewTagger creates a tagger. No model is loaded until the first Cut.
func NewTagger(loader ModelLoader, opts ...TaggerOption) *Tagger {
	t := &Tagger{
		loader:  loader,
		cache:   defaultCache,
		logger:  slog.Default(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.workers <= 0 {
		t.workers = 1
	}
	return t
}

// Model returns the loaded model, loading it on first use.
func (t *Tagger) Model(ctx context.Context) (*Model, error) {
	return t.cache.GetOrLoad(ctx, t.loader.Key(), t.loader.Load)
}

// Invalidate drops the cached model so the next call reloads it.
func (t *Tagger) Invalidate() {
	t.cache.Invalidate(t.loader.Key())
}

// Cut segments text into words with their POS labels.
func (t *Tagger) Cut(ctx context.Context, text string) ([]WordTag, error) {
	reqCtx := observability.NewRequestContextFrom(ctx, t.logger, "cut", t.loader.Key())
	if text == "" {
		return nil, taggererrors.EmptyInput("cut called with empty text")
	}
	m, err := t.Model(ctx)
	if err != nil {
		reqCtx.Error("failed to load model", err)
		return nil, err
	}
	words, err := cutWith(m, text, reqCtx.WithFields())
	if err != nil {
		reqCtx.Warn("cut failed",
			slog.Int(observability.LogFieldTextLen, utf8.RuneCountInString(text)),
			slog.String(observability.LogFieldErrorCode, string(taggererrors.GetCodeFromError(err, taggererrors.ErrCodeInvalidArgument))),
		)
		return nil, err
	}
	reqCtx.Debug("cut text",
		slog.Int(observability.LogFieldTextLen, utf8.RuneCountInString(text)),
		slog.Int("words", len(words)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return words, nil
}

// CutBatch cuts independent texts in parallel over the shared model.
// The first failure cancels the batch.
func (t *Tagger) CutBatch(ctx context.Context, texts []string) ([][]WordTag, error) {
	m, err := t.Model(ctx)
	if err != nil {
		return nil, err
	}

	out := make([][]WordTag, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			words, err := cutWith(m, text, t.logger)
			if err != nil {
				return err
			}
			out[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func cutWith(m *Model, text string, logger *slog.Logger) ([]WordTag, error) {
	_, path, err := Decode(text, m)
	if err != nil {
		return nil, err
	}
	return reconstruct(text, path, logger)
}

// Reconstruct turns a decoded path back into words. A run B M* E, or a lone S,
// is one word; every state of a run must carry the same POS label.
//
// Irregular paths are read leniently: B or S closes an open run first, M or E
// without an open run opens one, and a run still open at the end is emitted.
// Each repair is logged at debug level on the default logger.
func Reconstruct(text string, path []State) ([]WordTag, error) {
	return reconstruct(text, path, slog.Default())
}

func reconstruct(text string, path []State, logger *slog.Logger) ([]WordTag, error) {
	runes := []rune(text)
	if len(runes) != len(path) {
		return nil, taggererrors.InvalidArgument("path length does not match text length")
	}

	var (
		out   []WordTag
		word  strings.Builder
		label string
		open  bool
	)
	flush := func() {
		if open {
			out = append(out, WordTag{Word: word.String(), POS: label})
			word.Reset()
			open = false
		}
	}

	closeEarly := func(i int, s State) {
		if open {
			logger.Debug("word run closed early",
				slog.String("word", word.String()),
				slog.String("pos", label),
				slog.Int("position", i),
				slog.String("state", s.String()),
			)
		}
		flush()
	}

	for i, s := range path {
		switch s.Position {
		case Single:
			closeEarly(i, s)
			out = append(out, WordTag{Word: string(runes[i]), POS: s.Label})
		case Begin:
			closeEarly(i, s)
			word.WriteRune(runes[i])
			label, open = s.Label, true
		case Middle, End:
			if !open {
				logger.Debug("word run opened without begin",
					slog.Int("position", i),
					slog.String("state", s.String()),
				)
				label, open = s.Label, true
			} else if s.Label != label {
				word.WriteRune(runes[i])
				return nil, taggererrors.InconsistentTagRun(word.String(), label, s.Label)
			}
			word.WriteRune(runes[i])
			if s.Position == End {
				flush()
			}
		}
	}
	if open {
		logger.Debug("word run left open at end of text",
			slog.String("word", word.String()),
			slog.String("pos", label),
		)
	}
	flush()
	return out, nil
}
