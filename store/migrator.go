package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// Schema files live under store/migration/{driver}/LATEST.sql. Each statement
// is idempotent, so applying the file on every start is safe.

//go:embed migration
var migrationFS embed.FS

const (
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"
)

// LatestSchema returns the schema for a SQL driver.
func LatestSchema(driver string) (string, error) {
	path := fmt.Sprintf("migration/%s/%s", driver, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read latest schema %q", path)
	}
	return string(buf), nil
}

// Migrate prepares the backing storage.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}
	s.logger.Debug("store migrated", slog.String("driver", s.profile.Driver))
	return nil
}
