package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the " + appName + " config directory",
	Long:  "Commands for initialising and inspecting the " + appName + " config directory.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved config directory, settings and documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n\n", styleKey.Render("config:"), e.configDir)
		data, err := yaml.Marshal(e.settings)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		fmt.Fprintf(out, "\n%s\n", styleKey.Render("documents:"))
		for _, f := range e.documents {
			fmt.Fprintf(out, "  %s\n", f)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
