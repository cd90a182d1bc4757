package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/search"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Service.CacheStats(ctx)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, st)
		}
		formatCacheStats(os.Stdout, st)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the grid, last-search, details, and tips caches",
	Long:  "Clears every cache. Hidden place names are kept; use `placefinder unhide` to remove them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.ClearCaches(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Caches cleared.")
		return nil
	},
}

func formatCacheStats(w io.Writer, st *search.CacheStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Grid entries:\t%d (%d expired)\n", st.Grid.Entries, st.Grid.Expired)
	fmt.Fprintf(tw, "Grid searches:\t%d\n", st.Grid.TotalSearches)

	cats := make([]string, 0, len(st.Grid.ByCategory))
	for c := range st.Grid.ByCategory {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		label := c
		if label == "" {
			label = "ALL"
		}
		fmt.Fprintf(tw, "  %s:\t%d\n", label, st.Grid.ByCategory[model.Category(c)])
	}

	fmt.Fprintf(tw, "Place details:\t%d\n", st.Details)
	fmt.Fprintf(tw, "Tips:\t%d\n", st.Tips)
	fmt.Fprintf(tw, "Hidden names:\t%d\n", st.Hidden)
	if st.Last != nil {
		fmt.Fprintf(tw, "Last search:\t%s ago\n", time.Since(*st.Last).Round(time.Minute))
	} else {
		fmt.Fprintln(tw, "Last search:\tnone")
	}
	tw.Flush()
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "print stats as JSON")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
