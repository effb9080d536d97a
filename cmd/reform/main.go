package main

import (
	"reform/pkg/lib"
)

var flagFiles []string

func main() {
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringArrayVarP(&flagFiles, "file", "f", nil,
		"document YAML file (repeatable; default: ~/.config/"+appName+"/documents/*.yml)")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		lib.Exit(err)
	}
}
