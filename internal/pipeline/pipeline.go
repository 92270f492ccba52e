// Package pipeline drives a research run end to end: discover candidate
// URLs, fetch and extract them concurrently, resolve their metadata,
// register the survivors, analyze the registered set and assemble the
// exportable result. One Pipeline carries the state of one research
// session; its registry starts empty and is discarded with it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curatorlabs/curator/config"
	"github.com/curatorlabs/curator/internal/analysis"
	"github.com/curatorlabs/curator/internal/citation"
	"github.com/curatorlabs/curator/internal/export"
	"github.com/curatorlabs/curator/internal/extract"
	"github.com/curatorlabs/curator/internal/fetch"
	"github.com/curatorlabs/curator/internal/metadata"
	"github.com/curatorlabs/curator/internal/registry"
	"github.com/curatorlabs/curator/internal/telemetry"
	"github.com/curatorlabs/curator/tools/websearch"
)

// Options configures a Pipeline. Searcher and Analyzer override the ones
// built from the config, which is how tests plug in stubs.
type Options struct {
	Config   *config.Config
	Searcher websearch.Searcher
	Analyzer analysis.Analyzer
	Logger   *log.Logger
	Metrics  *telemetry.Metrics
}

type Pipeline struct {
	cfg      *config.Config
	searcher websearch.Searcher
	fetcher  *fetch.Fetcher
	ensemble *extract.Ensemble
	resolver *metadata.Resolver
	reg      *registry.Registry
	analyzer analysis.Analyzer
	logger   *log.Logger
	metrics  *telemetry.Metrics
}

// New wires the pipeline components from the configuration. A supplied
// Logger is shared by every component; leaving it nil gives each component
// its own prefixed default.
func New(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	fetcher, err := fetch.New(fetch.Options{
		Backend:   fetch.Backend(cfg.Fetch.Backend),
		Timeout:   cfg.Fetch.Timeout,
		Retries:   cfg.Fetch.Retries,
		Backoff:   cfg.Fetch.Backoff,
		Delay:     cfg.Fetch.CourtesyDelay,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("building fetcher: %w", err)
	}

	reg, err := registry.New(registry.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	if err != nil {
		return nil, fmt.Errorf("building registry: %w", err)
	}

	searcher := opts.Searcher
	if searcher == nil {
		searcher, err = websearch.NewWithFallback(websearch.Options{
			Provider: websearch.Provider(cfg.Search.Provider),
			APIKey:   cfg.Search.APIKey(),
			Timeout:  cfg.Search.Timeout,
			Logger:   opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("building searcher: %w", err)
		}
	}

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer, err = analysis.New(analysis.Options{
			Provider:    cfg.Analysis.Provider,
			APIKey:      cfg.Analysis.APIKey,
			Model:       cfg.Analysis.Model,
			BaseURL:     cfg.Analysis.BaseURL,
			Temperature: cfg.Analysis.Temperature,
			MaxTokens:   cfg.Analysis.MaxTokens,
			Timeout:     cfg.Analysis.Timeout,
			Registry:    reg,
			Logger:      opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("building analyzer: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewLogger("PIPELINE")
	}
	return &Pipeline{
		cfg:      cfg,
		searcher: searcher,
		fetcher:  fetcher,
		ensemble: extract.NewEnsemble(extract.Options{MaxBodyChars: cfg.Extract.MaxBodyChars, Logger: opts.Logger, Metrics: opts.Metrics}),
		resolver: metadata.NewResolver(opts.Logger),
		reg:      reg,
		analyzer: analyzer,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Registry exposes the session's source registry.
func (p *Pipeline) Registry() *registry.Registry { return p.reg }

// Research runs the whole pipeline for one topic. Per-URL failures are
// counted, never fatal; cancelling the context stops discovery and fetching
// but still assembles a result from whatever registered before the cut.
func (p *Pipeline) Research(ctx context.Context, topic string) (export.ResearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return export.ResearchResult{}, errors.New("empty research topic")
	}
	style, err := citation.ParseStyle(p.cfg.Citation.Style)
	if err != nil {
		return export.ResearchResult{}, err
	}

	p.logger.Printf("researching %q (up to %d sources, %s citations)", topic, p.cfg.Research.SourceCount, style)
	started := time.Now()

	candidates := p.discover(ctx, topic)
	fetchFailures, extractFailures := p.collect(ctx, candidates)

	snapshot := p.reg.Snapshot()
	p.logger.Printf("registered %d sources from %d candidates (%d fetch failures, %d extract failures)",
		len(snapshot), len(candidates), fetchFailures, extractFailures)

	result := p.analyze(ctx, topic, snapshot)

	citations, err := citation.FormatAll(snapshot, style)
	if err != nil {
		return export.ResearchResult{}, err
	}

	stats := p.reg.Stats()
	stats.FetchFailures = fetchFailures
	stats.ExtractFailures = extractFailures

	p.metrics.ObserveRun(time.Since(started))

	return export.ResearchResult{
		RunID:       uuid.NewString(),
		Query:       topic,
		GeneratedAt: time.Now().UTC(),
		Style:       style,
		Sources:     snapshot,
		Citations:   citations,
		Analysis:    result,
		Stats:       stats,
	}, nil
}

// ProcessURL fetches, extracts and resolves one URL without touching the
// registry. The returned source may be flagged failed.
func (p *Pipeline) ProcessURL(ctx context.Context, rawURL string) (extract.Source, error) {
	page, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return extract.Source{}, err
	}
	src := p.ensemble.Extract(page)
	p.resolver.Resolve(&src)
	return src, nil
}

// discover asks the searcher for candidates. Search failure means zero
// candidates, never a dead run.
func (p *Pipeline) discover(ctx context.Context, topic string) []websearch.Candidate {
	count := p.cfg.Research.SourceCount
	candidates, err := p.searcher.Search(ctx, topic, count, p.cfg.Research.TimeFilter)
	if err != nil {
		p.logger.Printf("search failed, continuing with no candidates: %v", err)
		return nil
	}
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

type outcome int

const (
	outcomeRegistered outcome = iota
	outcomeFetchFailed
	outcomeExtractFailed
)

// collect fans candidates out over a bounded worker set. No candidate's
// failure touches any other candidate; the registry deduplicates whatever
// arrives concurrently.
func (p *Pipeline) collect(ctx context.Context, candidates []websearch.Candidate) (fetchFailures, extractFailures int) {
	if len(candidates) == 0 {
		return 0, 0
	}

	sem := make(chan struct{}, p.cfg.Research.Concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(cand websearch.Candidate) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			result := p.process(ctx, cand)
			mu.Lock()
			switch result {
			case outcomeFetchFailed:
				fetchFailures++
			case outcomeExtractFailed:
				extractFailures++
			}
			mu.Unlock()
		}(cand)
	}
	wg.Wait()
	return fetchFailures, extractFailures
}

func (p *Pipeline) process(ctx context.Context, cand websearch.Candidate) outcome {
	page, err := p.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		return outcomeFetchFailed
	}

	src := p.ensemble.Extract(page)
	if src.Failed {
		p.logger.Printf("%s: extraction failed: %s", cand.URL, src.FailureReason)
		return outcomeExtractFailed
	}

	// The search result fills whatever extraction could not, ranking above
	// anything the resolver would derive from the body.
	if src.Title == "" {
		src.Title = strings.TrimSpace(cand.Title)
	}
	if src.Summary == "" {
		src.Summary = strings.TrimSpace(cand.Snippet)
	}
	p.resolver.Resolve(&src)

	if _, err := p.reg.Register(src); err != nil {
		p.logger.Printf("%s: registration failed: %v", cand.URL, err)
		return outcomeExtractFailed
	}
	return outcomeRegistered
}

// analyze never loses a run: when the analyzer errors (typically a cancelled
// context) the result degrades to a bare source-count summary.
func (p *Pipeline) analyze(ctx context.Context, topic string, snapshot []registry.Source) analysis.Result {
	typ := analysis.ParseType(p.cfg.Research.AnalysisType)
	tone := analysis.ParseTone(p.cfg.Research.Tone)

	result, err := p.analyzer.Analyze(ctx, topic, snapshot, typ, tone)
	if err != nil {
		p.logger.Printf("analysis failed, reporting sources without findings: %v", err)
		return analysis.Result{
			Summary:         fmt.Sprintf("Collected %d sources for %q; analysis was interrupted.", len(snapshot), topic),
			SourcesAnalyzed: len(snapshot),
		}
	}
	return result
}
