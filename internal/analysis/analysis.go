// Package analysis distills a registered source set into structured
// findings: a summary, attributed key points, trends, viewpoints, knowledge
// gaps and recommendations. Two analyzers implement the same contract: an
// offline one built on registry search heuristics that always works, and an
// OpenAI-backed one that degrades to the offline analyzer on any failure, so
// a research run never dies in analysis.
package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/curatorlabs/curator/internal/registry"
	"github.com/curatorlabs/curator/internal/telemetry"
)

// Type selects which sections of the result get filled.
type Type string

const (
	TypeComprehensive Type = "comprehensive"
	TypeSummary       Type = "summary"
	TypeTrends        Type = "trends"
	TypeViewpoints    Type = "viewpoints"
)

// Tone adjusts the writing register of generated text.
type Tone string

const (
	ToneDefault      Tone = "default"
	ToneAcademic     Tone = "academic"
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneCreative     Tone = "creative"
)

// ParseType is forgiving: anything unrecognized analyzes comprehensively.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeSummary:
		return TypeSummary
	case TypeTrends:
		return TypeTrends
	case TypeViewpoints:
		return TypeViewpoints
	default:
		return TypeComprehensive
	}
}

// ParseTone is forgiving: anything unrecognized reads as the default tone.
func ParseTone(s string) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(s))) {
	case ToneAcademic:
		return ToneAcademic
	case ToneCasual:
		return ToneCasual
	case ToneProfessional:
		return ToneProfessional
	case ToneCreative:
		return ToneCreative
	default:
		return ToneDefault
	}
}

// KeyPoint is a finding attributed to the source it came from.
type KeyPoint struct {
	Point       string  `json:"point"`
	SourceURL   string  `json:"source_url"`
	SourceTitle string  `json:"source_title"`
	Confidence  float64 `json:"confidence"`
}

type Trend struct {
	Trend       string   `json:"trend"`
	Description string   `json:"description,omitempty"`
	SourceURLs  []string `json:"source_urls,omitempty"`
}

type Viewpoint struct {
	Perspective string   `json:"perspective"`
	Evidence    []string `json:"supporting_evidence,omitempty"`
	SourceURLs  []string `json:"source_urls,omitempty"`
}

type ProsCons struct {
	Pros []string `json:"pros,omitempty"`
	Cons []string `json:"cons,omitempty"`
}

// Result is the full analysis payload. Registry and citation code never look
// inside it; export renders it as-is.
type Result struct {
	Summary         string      `json:"summary"`
	KeyPoints       []KeyPoint  `json:"key_points,omitempty"`
	Trends          []Trend     `json:"trends,omitempty"`
	Viewpoints      []Viewpoint `json:"viewpoints,omitempty"`
	Gaps            []string    `json:"gaps,omitempty"`
	ProsCons        ProsCons    `json:"pros_cons,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
	SourcesAnalyzed int         `json:"sources_analyzed"`
}

type Analyzer interface {
	Analyze(ctx context.Context, topic string, sources []registry.Source, typ Type, tone Tone) (Result, error)
}

// Options configures the analyzer factory.
type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Registry    *registry.Registry
	Logger      *log.Logger
}

// New builds the analyzer the options name. An openai provider without an
// API key silently becomes the offline analyzer, mirroring how the rest of
// the pipeline degrades instead of failing.
func New(opts Options) (Analyzer, error) {
	if opts.Logger == nil {
		opts.Logger = telemetry.NewLogger("ANALYSIS")
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "offline":
		return NewOffline(opts.Registry, opts.Logger), nil
	case "openai":
		if opts.APIKey == "" {
			opts.Logger.Printf("openai provider selected without api key, using offline analyzer")
			return NewOffline(opts.Registry, opts.Logger), nil
		}
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", opts.Provider)
	}
}
