package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/internal/timezone"
	"github.com/hrygo/hmmseg/internal/version"
	"github.com/hrygo/hmmseg/plugin/hmm"
	"github.com/hrygo/hmmseg/plugin/timeextract"
	"github.com/hrygo/hmmseg/store"
	"github.com/hrygo/hmmseg/store/db"
)

var rootCmd = &cobra.Command{
	Use:           "hmmseg",
	Short:         "Chinese word segmentation and POS tagging with a hidden Markov model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", profile.DriverFile)
	viper.SetDefault("codec", "gob")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the process, can be "prod" or "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", profile.DriverFile, "model store driver: file, sqlite or postgres")
	flags.String("dsn", "", "database source name for the sqlite and postgres drivers")
	flags.String("codec", "gob", "model blob encoding: gob or msgpack")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	for _, name := range []string{"mode", "data", "driver", "dsn", "codec", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("hmmseg")
	viper.AutomaticEnv()

	rootCmd.AddCommand(trainCmd, cutCmd, extractCmd, modelsCmd, serveCmd, versionCmd)
}

// loadProfile builds the profile from flags, HMMSEG_* variables and defaults.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:     viper.GetString("mode"),
		Addr:     viper.GetString("addr"),
		Port:     viper.GetInt("port"),
		Data:     viper.GetString("data"),
		Driver:   viper.GetString("driver"),
		DSN:      viper.GetString("dsn"),
		Codec:    viper.GetString("codec"),
		LogLevel: viper.GetString("log-level"),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	return p, nil
}

// app holds what every command that touches models needs.
type app struct {
	profile *profile.Profile
	store   *store.Store
	logger  *slog.Logger
}

func newApp(ctx context.Context) (*app, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(os.Stderr, p.Mode, p.LogLevel)
	slog.SetDefault(logger)

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st, err := store.New(driver, p)
	if err != nil {
		driver.Close()
		return nil, err
	}
	st.WithLogger(logger).WithCache(hmm.NewModelCache(p.CacheSize))
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, errors.Wrap(err, "failed to migrate model store")
	}
	return &app{profile: p, store: st, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close model store", slog.String("error", err.Error()))
	}
}

// tagger returns a lazily loading tagger over the named model.
func (a *app) tagger(name string) *hmm.Tagger {
	if name == "" {
		name = a.profile.ModelName
	}
	return hmm.NewTagger(a.store.Loader(name),
		hmm.WithCache(a.store.Cache()),
		hmm.WithLogger(a.logger),
		hmm.WithWorkers(a.profile.Workers),
	)
}

func (a *app) extractor(seg timeextract.Segmenter) (*timeextract.Extractor, error) {
	loc, err := timezone.ParseTimezone(a.profile.Timezone)
	if err != nil {
		return nil, err
	}
	return timeextract.NewExtractor(seg, loc).WithLogger(a.logger), nil
}

// errorHint suggests a next step for errors a user can act on.
func errorHint(err error) string {
	switch {
	case taggererrors.IsCode(err, taggererrors.ErrCodeModelNotFound):
		return "train one first: hmmseg train --corpus FILE --model NAME"
	case taggererrors.IsCode(err, taggererrors.ErrCodeInternal):
		return "check the model store settings (--driver, --dsn, --data)"
	default:
		return ""
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
