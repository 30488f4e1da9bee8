package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/store"
	"github.com/hrygo/hmmseg/store/db/file"
	"github.com/hrygo/hmmseg/store/db/postgres"
	"github.com/hrygo/hmmseg/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(p *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch p.Driver {
	case profile.DriverFile:
		driver, err = file.NewDB(p)
	case profile.DriverSQLite:
		driver, err = sqlite.NewDB(p)
	case profile.DriverPostgres:
		driver, err = postgres.NewDB(p)
	default:
		return nil, errors.Errorf("unknown db driver %q: supported drivers are file, sqlite and postgres", p.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
