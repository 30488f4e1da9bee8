package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	cpuprofile "github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/hrygo/hmmseg/internal/observability"
	"github.com/hrygo/hmmseg/plugin/hmm"
)

var (
	corpusPath  string // annotated corpus, one sentence per line
	trainModel  string // name to save the model under
	trainWorker int    // counting goroutines
	profiling   bool   // write a CPU profile for the run
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Estimate a model from an annotated corpus and save it to the model store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if profiling {
			defer cpuprofile.Start(cpuprofile.ProfilePath("./")).Stop()
		}
		return runTrain(cmd)
	},
}

func init() {
	trainCmd.Flags().StringVar(&corpusPath, "corpus", "", "annotated corpus file (word/pos tokens, [..]tag groups) - required")
	trainCmd.Flags().StringVar(&trainModel, "model", "", "model name (default: HMMSEG_MODEL or \"default\")")
	trainCmd.Flags().IntVar(&trainWorker, "workers", runtime.NumCPU(), "number of counting workers")
	trainCmd.Flags().BoolVar(&profiling, "profiling", false, "write a CPU profile to the working directory")
	trainCmd.MarkFlagRequired("corpus")
}

func runTrain(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	name := trainModel
	if name == "" {
		name = a.profile.ModelName
	}
	reqCtx := observability.NewRequestContext(a.logger, "train", name)

	f, err := os.Open(corpusPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open corpus %s", corpusPath)
	}
	defer f.Close()

	m, report, err := hmm.NewEstimator(trainWorker, a.logger).EstimateReader(ctx, f)
	if err != nil {
		reqCtx.Error("training failed", err)
		return err
	}
	blob, err := a.store.SaveModel(ctx, name, m)
	if err != nil {
		reqCtx.Error("failed to save model", err)
		return err
	}
	reqCtx.Info("model trained",
		slog.String("corpus", filepath.Base(corpusPath)),
		slog.Int("lines", report.Lines),
		slog.Int("skipped", report.Skipped),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "saved model %q (%s, %d bytes): %d lines, %d skipped, %d symbols in %s\n",
		blob.Name, blob.Codec, blob.Size, report.Lines, report.Skipped, report.Symbols, report.Duration.Round(time.Millisecond))
	return nil
}
