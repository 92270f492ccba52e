package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:          "curator",
		Short:        "Collect, extract and cite web sources for a research topic",
		Version:      version,
		SilenceUsage: true,
	}

	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ., ./config, ~/.curator)")

	root.AddCommand(researchCMD(&cfgPath), extractCMD(&cfgPath), citeCMD(&cfgPath), versionCMD())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
