// Package file stores each model as one msgpack record under <data>/models.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/store"
)

const ext = ".hmm"

type record struct {
	UID       string `msgpack:"uid"`
	Name      string `msgpack:"name"`
	Codec     string `msgpack:"codec"`
	Blob      []byte `msgpack:"blob"`
	CreatedTs int64  `msgpack:"created_ts"`
	UpdatedTs int64  `msgpack:"updated_ts"`
}

type DB struct {
	dir     string
	profile *profile.Profile

	mu sync.RWMutex
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.Data == "" {
		return nil, errors.New("data dir is required for the file driver")
	}
	return &DB{
		dir:     filepath.Join(profile.Data, "models"),
		profile: profile,
	}, nil
}

func (d *DB) Migrate(context.Context) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create model dir %s", d.dir)
	}
	return nil
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) path(name string) string {
	return filepath.Join(d.dir, name+ext)
}

func (d *DB) read(name string) (*record, error) {
	buf, err := os.ReadFile(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, taggererrors.ModelNotFound(name)
		}
		return nil, errors.Wrapf(err, "failed to read model %q", name)
	}
	rec := &record{}
	if err := msgpack.Unmarshal(buf, rec); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal model %q", name)
	}
	return rec, nil
}

// SaveModel writes the record to a temp file and renames it into place, so a
// reader never sees a partial model.
func (d *DB) SaveModel(_ context.Context, upsert *store.UpsertModel) (*store.ModelBlob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create model dir %s", d.dir)
	}

	now := time.Now().Unix()
	rec := &record{
		UID:       upsert.UID,
		Name:      upsert.Name,
		Codec:     upsert.Codec,
		Blob:      upsert.Blob,
		CreatedTs: now,
		UpdatedTs: now,
	}
	if prev, err := d.read(upsert.Name); err == nil {
		rec.CreatedTs = prev.CreatedTs
	}

	buf, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal model %q", upsert.Name)
	}
	tmp, err := os.CreateTemp(d.dir, upsert.Name+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return nil, errors.Wrapf(err, "failed to write model %q", upsert.Name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, errors.Wrapf(err, "failed to sync model %q", upsert.Name)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrapf(err, "failed to close model %q", upsert.Name)
	}
	if err := os.Rename(tmp.Name(), d.path(upsert.Name)); err != nil {
		return nil, errors.Wrapf(err, "failed to install model %q", upsert.Name)
	}
	return toBlob(rec, true), nil
}

func (d *DB) GetModel(_ context.Context, name string) (*store.ModelBlob, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, err := d.read(name)
	if err != nil {
		return nil, err
	}
	return toBlob(rec, true), nil
}

func (d *DB) ListModels(_ context.Context) ([]*store.ModelBlob, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*store.ModelBlob{}, nil
		}
		return nil, errors.Wrapf(err, "failed to list model dir %s", d.dir)
	}

	list := []*store.ModelBlob{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		rec, err := d.read(strings.TrimSuffix(entry.Name(), ext))
		if err != nil {
			return nil, err
		}
		list = append(list, toBlob(rec, false))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (d *DB) DeleteModel(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path(name)); err != nil {
		if os.IsNotExist(err) {
			return taggererrors.ModelNotFound(name)
		}
		return errors.Wrapf(err, "failed to delete model %q", name)
	}
	return nil
}

func toBlob(rec *record, withBlob bool) *store.ModelBlob {
	blob := &store.ModelBlob{
		UID:       rec.UID,
		Name:      rec.Name,
		Codec:     rec.Codec,
		Size:      int64(len(rec.Blob)),
		CreatedTs: rec.CreatedTs,
		UpdatedTs: rec.UpdatedTs,
	}
	if withBlob {
		blob.Blob = rec.Blob
	}
	return blob
}
