package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/hmmseg/internal/timezone"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage saved models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		loc, err := timezone.ParseTimezone(a.profile.Timezone)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCODEC\tSIZE\tUPDATED")
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Name, m.Codec, m.Size, timezone.FormatUnix(m.UpdatedTs, loc, time.RFC3339))
		}
		return w.Flush()
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a saved model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.DeleteModel(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted model %q\n", args[0])
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsDeleteCmd)
}
