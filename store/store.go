package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/plugin/hmm"
	"github.com/hrygo/hmmseg/store/codec"
)

var (
	modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	dsnPasswordRe    = regexp.MustCompile(`password=\S+`)
)

// Store persists trained models through a Driver.
type Store struct {
	profile *profile.Profile
	driver  Driver
	codec   codec.Codec
	cache   *hmm.ModelCache
	logger  *slog.Logger
}

// New creates a new instance of Store. Models are written with the codec named
// by the profile; blobs written with any registered codec can be read.
func New(driver Driver, profile *profile.Profile) (*Store, error) {
	c, err := codec.Get(profile.Codec)
	if err != nil {
		return nil, err
	}
	return &Store{
		profile: profile,
		driver:  driver,
		codec:   c,
		cache:   hmm.DefaultCache(),
		logger:  slog.Default(),
	}, nil
}

// WithLogger sets the store's logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithCache sets the model cache that loaders share and saves invalidate.
func (s *Store) WithCache(c *hmm.ModelCache) *Store {
	if c != nil {
		s.cache = c
	}
	return s
}

// Cache returns the model cache used by this store's loaders.
func (s *Store) Cache() *hmm.ModelCache {
	return s.cache
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// ValidateModelName reports whether name can be used as a model name.
func ValidateModelName(name string) error {
	if !modelNamePattern.MatchString(name) {
		return taggererrors.InvalidArgument(fmt.Sprintf("invalid model name %q", name))
	}
	return nil
}

// SaveModel encodes m and stores it under name, replacing any previous model.
func (s *Store) SaveModel(ctx context.Context, name string, m *hmm.Model) (*ModelBlob, error) {
	if err := ValidateModelName(name); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, taggererrors.InvalidArgument("cannot save a nil model")
	}

	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, m); err != nil {
		return nil, errors.Wrapf(err, "failed to encode model %q", name)
	}
	blob, err := s.driver.SaveModel(ctx, &UpsertModel{
		UID:   shortuuid.New(),
		Name:  name,
		Codec: s.codec.Name(),
		Blob:  buf.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(s.loaderKey(name))

	s.logger.Info("saved model",
		slog.String(observability.LogFieldModel, name),
		slog.String("uid", blob.UID),
		slog.String("codec", blob.Codec),
		slog.Int("bytes", buf.Len()),
	)
	return blob, nil
}

// LoadModel reads and decodes the model stored under name.
func (s *Store) LoadModel(ctx context.Context, name string) (*hmm.Model, error) {
	if err := ValidateModelName(name); err != nil {
		return nil, err
	}
	blob, err := s.driver.GetModel(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := codec.Get(blob.Codec)
	if err != nil {
		return nil, errors.Wrapf(err, "model %q", name)
	}
	m, err := c.Decode(bytes.NewReader(blob.Blob))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode model %q", name)
	}
	return m, nil
}

// ListModels returns the stored models without their blobs.
func (s *Store) ListModels(ctx context.Context) ([]*ModelBlob, error) {
	return s.driver.ListModels(ctx)
}

// DeleteModel removes the model stored under name.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}
	if err := s.driver.DeleteModel(ctx, name); err != nil {
		return err
	}
	s.cache.Invalidate(s.loaderKey(name))
	s.logger.Info("deleted model", slog.String(observability.LogFieldModel, name))
	return nil
}

// Loader returns a lazy loader for the named model, for use with hmm.NewTagger.
func (s *Store) Loader(name string) hmm.ModelLoader {
	return &modelLoader{store: s, name: name}
}

// loaderKey identifies a model across stores: driver, location and name.
func (s *Store) loaderKey(name string) string {
	location := s.profile.Data
	if s.profile.Driver != profile.DriverFile {
		location = redactDSN(s.profile.DSN)
	}
	return fmt.Sprintf("%s:%s:%s", s.profile.Driver, location, name)
}

func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPasswordRe.ReplaceAllString(dsn, "password=xxxxx")
}

type modelLoader struct {
	store *Store
	name  string
}

func (l *modelLoader) Key() string {
	return l.store.loaderKey(l.name)
}

func (l *modelLoader) Load(ctx context.Context) (*hmm.Model, error) {
	reqCtx := observability.NewRequestContext(l.store.logger, "load_model", l.name)
	m, err := l.store.LoadModel(ctx, l.name)
	if err != nil {
		reqCtx.Error("failed to load model", err)
		return nil, err
	}
	reqCtx.Info("loaded model", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return m, nil
}
