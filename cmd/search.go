package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for places around a point",
	Long:  "Runs a search around --lat/--lng. Results for the same grid cell, category filter, and query are served from cache without counting against the monthly quota.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.Search(ctx, q)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeResponse(os.Stdout, resp, format)
	},
}

var moreCmd = &cobra.Command{
	Use:   "more",
	Short: "Load more places for the last search",
	Long:  "Repeats the last search excluding every place it already showed. Counts against the monthly quota.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		last, ok, err := env.Service.Restore(ctx)
		if err != nil {
			return err
		}
		q, _, err := env.Service.LastQuery(ctx)
		if err != nil {
			return err
		}
		if !ok || q == nil {
			return eris.New("no recent search to extend; run `placefinder search` first")
		}

		shown := last.Result.Names()
		extra, _ := cmd.Flags().GetStringSlice("exclude")
		shown = append(shown, extra...)

		resp, err := env.Service.LoadMore(ctx, *q, shown)
		if err != nil {
			return eris.Wrap(err, "more")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeResponse(os.Stdout, resp, format)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Show the last search if it is still fresh",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, ok, err := env.Service.Restore(ctx)
		if err != nil {
			return err
		}
		if !ok {
			cmd.PrintErrln("No recent search.")
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		return writeResponse(os.Stdout, resp, format)
	},
}

func queryFromFlags(cmd *cobra.Command) (search.Query, error) {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	text, _ := cmd.Flags().GetString("query")
	radius, _ := cmd.Flags().GetFloat64("radius")
	raw, _ := cmd.Flags().GetStringSlice("category")

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return search.Query{}, eris.Errorf("coordinates out of range: %f,%f", lat, lng)
	}
	if radius < 0 {
		return search.Query{}, eris.New("--radius must be >= 0")
	}

	q := search.Query{
		Center:   model.Coordinates{Latitude: lat, Longitude: lng},
		Query:    text,
		RadiusKm: radius,
	}
	for _, r := range raw {
		c, ok := model.ParseCategory(r)
		if !ok {
			return search.Query{}, eris.Errorf("unknown category %q (want EAT, DRINK, or EXPLORE)", r)
		}
		if !c.In(q.Categories) {
			q.Categories = append(q.Categories, c)
		}
	}
	return q, nil
}

func init() {
	searchCmd.Flags().Float64("lat", 0, "latitude of the search center")
	searchCmd.Flags().Float64("lng", 0, "longitude of the search center")
	searchCmd.Flags().StringP("query", "q", "", "free-text query, e.g. \"oysters\"")
	searchCmd.Flags().Float64("radius", 0, "search radius in km (default from config)")
	searchCmd.Flags().StringSliceP("category", "c", nil, "category filter: EAT, DRINK, EXPLORE (repeatable)")
	_ = searchCmd.MarkFlagRequired("lat")
	_ = searchCmd.MarkFlagRequired("lng")

	moreCmd.Flags().StringSlice("exclude", nil, "additional place names to exclude")

	for _, c := range []*cobra.Command{searchCmd, moreCmd, restoreCmd} {
		c.Flags().String("format", formatTable, "output format: table, json, geojson")
		rootCmd.AddCommand(c)
	}
}
