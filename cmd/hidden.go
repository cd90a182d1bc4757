package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var hideCmd = &cobra.Command{
	Use:   "hide <name>",
	Short: "Hide a place from all future results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.Hidden.Hide(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Hidden %q.\n", args[0])
		return nil
	},
}

var unhideCmd = &cobra.Command{
	Use:   "unhide <name>",
	Short: "Show a hidden place again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.Service.Hidden.Unhide(ctx, args[0])
		if err != nil {
			return err
		}
		if !removed {
			cmd.PrintErrf("%q was not hidden.\n", args[0])
			return nil
		}
		fmt.Fprintf(os.Stdout, "Unhidden %q.\n", args[0])
		return nil
	},
}

var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "List hidden place names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		names, err := env.Service.Hidden.List(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			cmd.PrintErrln("No hidden places.")
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(os.Stdout, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hideCmd, unhideCmd, hiddenCmd)
}
