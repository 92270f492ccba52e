package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curatorlabs/curator/config"
	"github.com/curatorlabs/curator/internal/citation"
	"github.com/curatorlabs/curator/internal/pipeline"
)

func citeCMD(cfgPath *string) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "cite <url>",
		Short: "Cite one URL in a chosen style, or every style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
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
			if src.Failed {
				return fmt.Errorf("extraction failed: %s", src.FailureReason)
			}
			entry, err := p.Registry().Register(src)
			if err != nil {
				return err
			}

			styles := citation.Styles()
			if cmd.Flags().Changed("style") {
				parsed, err := citation.ParseStyle(style)
				if err != nil {
					return err
				}
				styles = []citation.Style{parsed}
			}
			for _, st := range styles {
				rec, err := citation.Format(entry, st, 1)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n  in-text:   %s\n  reference: %s\n", strings.ToUpper(string(st)), rec.InText, rec.Reference)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "citation style (apa, mla, chicago, harvard, ieee)")
	return cmd
}
