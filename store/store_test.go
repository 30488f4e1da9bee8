package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/plugin/hmm"
	"github.com/hrygo/hmmseg/store"
	"github.com/hrygo/hmmseg/store/db"
)

var corpus = []string{
	"迈向/v 充满/v 希望/n 的/u 新/a 世纪/n",
	"[希望/n 工程/n]nz 救助/v 了/u 一/m 批/q 失学/v 儿童/n",
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, codecName string) (*store.Store, *profile.Profile) {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Data: t.TempDir(), Driver: profile.DriverFile, Codec: codecName}
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	s, err := store.New(driver, p)
	require.NoError(t, err)
	s.WithLogger(quietLogger()).WithCache(hmm.NewModelCache(2))
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s, p
}

func trainModel(t *testing.T) *hmm.Model {
	t.Helper()
	m, _, err := hmm.NewEstimator(1, quietLogger()).Estimate(context.Background(), corpus)
	require.NoError(t, err)
	return m
}

func TestStore_SaveAndLoad(t *testing.T) {
	for _, codecName := range []string{"gob", "msgpack"} {
		t.Run(codecName, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newStore(t, codecName)
			m := trainModel(t)

			blob, err := s.SaveModel(ctx, "default", m)
			require.NoError(t, err)
			assert.NotEmpty(t, blob.UID)
			assert.Equal(t, codecName, blob.Codec)

			loaded, err := s.LoadModel(ctx, "default")
			require.NoError(t, err)
			wantI, wantT, wantE := m.Tables()
			gotI, gotT, gotE := loaded.Tables()
			assert.Equal(t, wantI, gotI)
			assert.Equal(t, wantT, gotT)
			assert.Equal(t, wantE, gotE)

			list, err := s.ListModels(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "default", list[0].Name)
		})
	}
}

func TestStore_ReadsBlobsOfOtherCodecs(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t, "msgpack")
	_, err := s.SaveModel(ctx, "packed", trainModel(t))
	require.NoError(t, err)

	p.Codec = "gob"
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)
	reader, err := store.New(driver, p)
	require.NoError(t, err)

	m, err := reader.LoadModel(ctx, "packed")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Initial[hmm.State{Position: hmm.Begin, Label: "v"}], 1e-12)
}

func TestStore_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, "gob")

	for _, name := range []string{"", "../escape", "a/b", ".hidden", "has space"} {
		_, err := s.SaveModel(ctx, name, hmm.NewModel())
		assert.True(t, errors.Is(err, taggererrors.ErrInvalidArgument), name)
	}
	_, err := s.SaveModel(ctx, "ok", nil)
	assert.True(t, errors.Is(err, taggererrors.ErrInvalidArgument))

	_, err = s.LoadModel(ctx, "missing")
	assert.True(t, errors.Is(err, taggererrors.ErrModelNotFound))
	assert.True(t, errors.Is(s.DeleteModel(ctx, "missing"), taggererrors.ErrModelNotFound))

	p := &profile.Profile{Driver: profile.DriverFile, Data: t.TempDir(), Codec: "json"}
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)
	_, err = store.New(driver, p)
	assert.Error(t, err)
}

func TestStore_LoaderFeedsTagger(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t, "gob")
	_, err := s.SaveModel(ctx, "default", trainModel(t))
	require.NoError(t, err)

	loader := s.Loader("default")
	assert.Equal(t, "file:"+p.Data+":default", loader.Key())

	tagger := hmm.NewTagger(loader, hmm.WithCache(s.Cache()), hmm.WithLogger(quietLogger()))
	words, err := tagger.Cut(ctx, "救助失学儿童")
	require.NoError(t, err)

	var joined string
	for _, w := range words {
		joined += w.Word
	}
	assert.Equal(t, "救助失学儿童", joined)
	assert.Equal(t, 1, s.Cache().Size())

	// Saving a new version drops the cached one.
	_, err = s.SaveModel(ctx, "default", trainModel(t))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cache().Size())

	_, err = hmm.NewTagger(s.Loader("nope"), hmm.WithCache(s.Cache())).Cut(ctx, "救助")
	assert.True(t, errors.Is(err, taggererrors.ErrModelNotFound))
}
