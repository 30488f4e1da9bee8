package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/store"
)

func (d *DB) SaveModel(ctx context.Context, upsert *store.UpsertModel) (*store.ModelBlob, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO hmm_model (name, uid, codec, blob, created_ts, updated_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (name) DO UPDATE SET
			uid = EXCLUDED.uid,
			codec = EXCLUDED.codec,
			blob = EXCLUDED.blob,
			updated_ts = EXCLUDED.updated_ts
		RETURNING uid, name, codec, created_ts, updated_ts`

	result := &store.ModelBlob{Blob: upsert.Blob, Size: int64(len(upsert.Blob))}
	err := d.db.QueryRowContext(ctx, stmt, upsert.Name, upsert.UID, upsert.Codec, upsert.Blob, now, now).Scan(
		&result.UID,
		&result.Name,
		&result.Codec,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		return nil, taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to save hmm_model")
	}
	return result, nil
}

func (d *DB) GetModel(ctx context.Context, name string) (*store.ModelBlob, error) {
	query := `SELECT uid, name, codec, blob, created_ts, updated_ts FROM hmm_model WHERE name = ` + placeholder(1)

	result := &store.ModelBlob{}
	err := d.db.QueryRowContext(ctx, query, name).Scan(
		&result.UID,
		&result.Name,
		&result.Codec,
		&result.Blob,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taggererrors.ModelNotFound(name)
		}
		return nil, taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to get hmm_model")
	}
	result.Size = int64(len(result.Blob))
	return result, nil
}

func (d *DB) ListModels(ctx context.Context) ([]*store.ModelBlob, error) {
	query := `SELECT uid, name, codec, octet_length(blob), created_ts, updated_ts FROM hmm_model ORDER BY name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to list hmm_model")
	}
	defer rows.Close()

	list := []*store.ModelBlob{}
	for rows.Next() {
		m := &store.ModelBlob{}
		if err := rows.Scan(&m.UID, &m.Name, &m.Codec, &m.Size, &m.CreatedTs, &m.UpdatedTs); err != nil {
			return nil, taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to scan hmm_model")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to list hmm_model")
	}
	return list, nil
}

func (d *DB) DeleteModel(ctx context.Context, name string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM hmm_model WHERE name = `+placeholder(1), name)
	if err != nil {
		return taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to delete hmm_model")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return taggererrors.Wrap(err, taggererrors.ErrCodeInternal, "failed to delete hmm_model")
	}
	if n == 0 {
		return taggererrors.ModelNotFound(name)
	}
	return nil
}
