package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/hmmseg/plugin/hmm"
)

var cutModel string

var cutCmd = &cobra.Command{
	Use:   "cut TEXT...",
	Short: "Segment and tag each argument, printing word/pos tokens",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.tagger(cutModel).CutBatch(cmd.Context(), args)
		if err != nil {
			return err
		}
		for _, words := range results {
			fmt.Fprintln(cmd.OutOrStdout(), formatWords(words))
		}
		return nil
	},
}

var extractModel string

var extractCmd = &cobra.Command{
	Use:   "extract TEXT...",
	Short: "Print the date and time expressions found in each argument",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		extractor, err := a.extractor(a.tagger(extractModel))
		if err != nil {
			return err
		}
		for _, text := range args {
			times, err := extractor.Extract(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(times, "\t"))
		}
		return nil
	},
}

func init() {
	cutCmd.Flags().StringVar(&cutModel, "model", "", "model name (default: HMMSEG_MODEL or \"default\")")
	extractCmd.Flags().StringVar(&extractModel, "model", "", "model name (default: HMMSEG_MODEL or \"default\")")
}

// formatWords renders words in the corpus token format.
func formatWords(words []hmm.WordTag) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word + "/" + w.POS
	}
	return strings.Join(parts, " ")
}
