package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/loykin/webstep/internal/journal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled requests, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		j, err := doc.OpenJournal(cmd.Context())
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("journal is disabled in the config")
		}
		defer closeJournal(j)

		runs, err := j.ListRuns(cmd.Context(), viper.GetString("step"), viper.GetInt("limit"))
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func printRuns(w io.Writer, runs []journal.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTEP\tMETHOD\tSTATUS\tRESULT\tDURATION\tRAN AT\tURL")
	for _, r := range runs {
		result := "ok"
		if r.Failed {
			result = "failed"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Step, r.Method, r.StatusCode, result, r.Duration, r.RanAt.Format("2006-01-02T15:04:05Z07:00"), r.URL)
	}
	return tw.Flush()
}
