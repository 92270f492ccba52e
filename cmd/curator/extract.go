package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curatorlabs/curator/config"
	"github.com/curatorlabs/curator/internal/pipeline"
)

func extractCMD(cfgPath *string) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch one URL and print the extracted source as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Fetch.Backend = backend
				if err := cfg.Fetch.Validate(); err != nil {
					return err
				}
			}
			p, err := pipeline.New(pipeline.Options{Config: cfg})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.MaxProcessingTime)
			defer cancel()
			src, err := p.ProcessURL(ctx, args[0])
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(src, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "fetch backend (http, chrome)")
	return cmd
}
