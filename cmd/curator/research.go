package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/curatorlabs/curator/config"
	"github.com/curatorlabs/curator/internal/export"
	"github.com/curatorlabs/curator/internal/pipeline"
	"github.com/curatorlabs/curator/internal/telemetry"
)

func researchCMD(cfgPath *string) *cobra.Command {
	var (
		sources      int
		style        string
		formats      []string
		outputDir    string
		tone         string
		analysisType string
		timeFilter   string
	)
	cmd := &cobra.Command{
		Use:   "research <topic>",
		Short: "Research a topic and export cited reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sources") {
				cfg.Research.SourceCount = sources
			}
			if cmd.Flags().Changed("style") {
				cfg.Citation.Style = style
			}
			if cmd.Flags().Changed("format") {
				cfg.Export.Formats = formats
			}
			if cmd.Flags().Changed("output") {
				cfg.Export.OutputDir = outputDir
			}
			if cmd.Flags().Changed("tone") {
				cfg.Research.Tone = tone
			}
			if cmd.Flags().Changed("type") {
				cfg.Research.AnalysisType = analysisType
			}
			if cmd.Flags().Changed("time-filter") {
				cfg.Research.TimeFilter = timeFilter
			}
			*cfg = cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runResearch(cmd.Context(), cfg, strings.Join(args, " "))
		},
	}
	cmd.Flags().IntVarP(&sources, "sources", "n", 0, "number of sources to collect")
	cmd.Flags().StringVarP(&style, "style", "s", "", "citation style (apa, mla, chicago, harvard, ieee)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "export formats (markdown, text, pdf, json)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for exported reports")
	cmd.Flags().StringVar(&tone, "tone", "", "analysis tone (default, academic, casual, professional, creative)")
	cmd.Flags().StringVar(&analysisType, "type", "", "analysis type (comprehensive, summary, trends, viewpoints)")
	cmd.Flags().StringVar(&timeFilter, "time-filter", "", "restrict search recency (d, w, m, y)")
	return cmd
}

func runResearch(ctx context.Context, cfg *config.Config, topic string) error {
	metrics := telemetry.NewMetrics()
	if cfg.Telemetry.Enabled {
		server := metrics.StartServer(fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort))
		defer server.Close()
	}

	p, err := pipeline.New(pipeline.Options{Config: cfg, Metrics: metrics})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.General.MaxProcessingTime)
	defer cancel()

	result, err := p.Research(ctx, topic)
	if err != nil {
		return err
	}

	for _, name := range cfg.Export.Formats {
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		path, err := export.WriteReport(result, format, cfg.Export.OutputDir)
		if err != nil {
			return err
		}
		metrics.ObserveExport(string(format))
		fmt.Printf("wrote %s\n", path)
	}

	fmt.Printf("collected %d sources (%d duplicates folded, %d fetch failures, %d extract failures)\n",
		result.Stats.TotalSources, result.Stats.Deduplicated, result.Stats.FetchFailures, result.Stats.ExtractFailures)
	return nil
}
