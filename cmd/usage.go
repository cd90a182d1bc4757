package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/placefinder/internal/model"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show this month's search quota",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Governor.Stats(ctx)
		if err != nil {
			return err
		}
		remaining, err := env.Governor.Remaining(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, map[string]any{
				"stats":     stats,
				"limit":     env.Governor.Limit(),
				"remaining": remaining,
			})
		}
		formatUsage(os.Stdout, stats, env.Governor.Limit(), remaining)
		return nil
	},
}

func formatUsage(w io.Writer, s *model.UsageStats, limit, remaining int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month:\t%s\n", s.CurrentMonth)
	fmt.Fprintf(tw, "Searches:\t%d of %d (%d left)\n", s.SearchCount, limit, remaining)
	fmt.Fprintf(tw, "Place views:\t%d\n", s.PlaceViewCount)
	fmt.Fprintf(tw, "All time:\t%d searches, %d place views\n", s.TotalSearchesAllTime, s.TotalPlaceViewsAllTime)
	if !s.LastSearchAt.IsZero() {
		fmt.Fprintf(tw, "Last search:\t%s\n", s.LastSearchAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func init() {
	usageCmd.Flags().Bool("json", false, "print usage as JSON")
	rootCmd.AddCommand(usageCmd)
}
