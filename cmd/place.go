package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placefinder/internal/model"
)

// placeFromFlags builds the place a tips or photos command refers to.
func placeFromFlags(cmd *cobra.Command, name string) model.Place {
	source, _ := cmd.Flags().GetString("source")
	id, _ := cmd.Flags().GetString("id")
	address, _ := cmd.Flags().GetString("address")
	category, _ := cmd.Flags().GetString("category")
	c, _ := model.ParseCategory(category)
	return model.Place{Name: name, Source: source, ProviderID: id, Address: address, Category: c}
}

var tipsCmd = &cobra.Command{
	Use:   "tips <name>",
	Short: "Show visitor tips for a place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "tips")
		if err != nil {
			return err
		}
		defer env.Close()

		tips, err := env.Service.Tips(ctx, placeFromFlags(cmd, args[0]))
		if err != nil {
			return eris.Wrap(err, "tips")
		}
		for _, t := range tips {
			fmt.Fprintf(os.Stdout, "- %s\n", t)
		}
		return nil
	},
}

var photosCmd = &cobra.Command{
	Use:   "photos <name>",
	Short: "List photo URLs for a place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p := placeFromFlags(cmd, args[0])
		if p.Source == "" || p.ProviderID == "" {
			return eris.New("--source and --id are required")
		}

		env, err := initEnv(ctx, "photos")
		if err != nil {
			return err
		}
		defer env.Close()

		p, err = env.Service.Photos(ctx, p)
		if err != nil {
			return err
		}
		if len(p.Images) == 0 {
			cmd.PrintErrln("No photos found.")
			return nil
		}
		for _, u := range p.Images {
			fmt.Fprintln(os.Stdout, u)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{tipsCmd, photosCmd} {
		c.Flags().String("source", "", "provider the id belongs to (google, foursquare)")
		c.Flags().String("id", "", "provider place id")
		c.Flags().String("address", "", "street address, used as context for written tips")
		c.Flags().String("category", "", "place category: EAT, DRINK, EXPLORE")
		rootCmd.AddCommand(c)
	}
}
