package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/hmmseg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the segmentation and time extraction JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		tagger := a.tagger("")
		extractor, err := a.extractor(tagger)
		if err != nil {
			return err
		}
		s := server.NewServer(a.profile, tagger, extractor, a.logger)

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		// The default signal sent by the `kill` command is SIGTERM,
		// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		if err := s.Start(ctx); err != nil {
			return err
		}
		a.logger.Info("hmmseg started",
			slog.String("version", a.profile.Version),
			slog.String("mode", a.profile.Mode),
			slog.String("driver", a.profile.Driver),
			slog.String("model", a.profile.ModelName),
		)

		sig := <-c
		a.logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		s.Shutdown(ctx)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "address of server")
	serveCmd.Flags().Int("port", 8081, "port of server")
	if err := viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
}
