// Package registry owns source identity for a research run. Every extracted
// source registers exactly once per fingerprint: the canonical URL decides
// identity first, the content hash catches syndicated copies under different
// URLs. Entries get monotonically assigned ids that are never recycled, and
// duplicate registrations merge field-by-field instead of being dropped.
package registry

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/curatorlabs/curator/internal/extract"
	"github.com/curatorlabs/curator/internal/metadata"
	"github.com/curatorlabs/curator/internal/telemetry"
)

var (
	ErrNotFound     = errors.New("source not found")
	ErrFailedSource = errors.New("source is flagged failed")
)

// Source is a registry entry: the extracted source plus the identity fields
// the registry assigns. Entries are handed out by value; the registry keeps
// the only mutable copy.
type Source struct {
	ID           int64     `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	RegisteredAt time.Time `json:"registered_at"`
	extract.Source
}

// RunStats aggregates what a run collected.
type RunStats struct {
	TotalSources    int            `json:"total_sources"`
	Deduplicated    int            `json:"deduplicated"`
	Domains         map[string]int `json:"domains,omitempty"`
	Authors         map[string]int `json:"authors,omitempty"`
	Years           map[int]int    `json:"years,omitempty"`
	TopDomain       string         `json:"top_domain,omitempty"`
	FetchFailures   int            `json:"fetch_failures"`
	ExtractFailures int            `json:"extract_failures"`
}

type Options struct {
	Logger  *log.Logger
	Metrics *telemetry.Metrics
}

type Registry struct {
	mu        sync.RWMutex
	sources   map[int64]*Source
	order     []int64
	byURL     map[string]int64
	byContent map[string]int64
	nextID    int64
	dupes     int
	index     bleve.Index
	logger    *log.Logger
	metrics   *telemetry.Metrics
}

func New(opts Options) (*Registry, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewLogger("REGISTRY")
	}
	return &Registry{
		sources:   make(map[int64]*Source),
		byURL:     make(map[string]int64),
		byContent: make(map[string]int64),
		index:     index,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Register adds a source or folds it into the entry it duplicates, and
// returns the registered entry either way. The check and the insert happen
// under one lock, so concurrent registrations of the same source cannot race
// into two entries. Failed sources and sources without a parseable URL are
// rejected.
func (r *Registry) Register(src extract.Source) (Source, error) {
	if src.Failed {
		return Source{}, ErrFailedSource
	}
	canonical, err := CanonicalURL(src.URL)
	if err != nil {
		return Source{}, fmt.Errorf("canonicalizing %q: %w", src.URL, err)
	}
	ckey := ContentKey(src.Body)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byURL[canonical]; ok {
		return r.mergeLocked(id, src), nil
	}
	if ckey != "" {
		if id, ok := r.byContent[ckey]; ok {
			return r.mergeLocked(id, src), nil
		}
	}

	r.nextID++
	entry := &Source{
		ID:           r.nextID,
		Fingerprint:  Fingerprint(canonical, src.Body),
		RegisteredAt: time.Now().UTC(),
		Source:       src,
	}
	r.sources[entry.ID] = entry
	r.order = append(r.order, entry.ID)
	r.byURL[canonical] = entry.ID
	if ckey != "" {
		r.byContent[ckey] = entry.ID
	}
	r.indexLocked(entry)
	r.metrics.ObserveRegistration(false)
	return *entry, nil
}

func (r *Registry) mergeLocked(id int64, src extract.Source) Source {
	entry := r.sources[id]
	if mergeFields(&entry.Source, src) {
		r.indexLocked(entry)
	}
	r.dupes++
	r.metrics.ObserveRegistration(true)
	return *entry
}

// mergeFields folds a duplicate into the existing entry: empty fields fill
// in, and a strictly higher-confidence duplicate replaces the weaker values.
// Existing data never degrades. Reports whether indexed text changed.
func mergeFields(dst *extract.Source, src extract.Source) bool {
	stronger := src.Confidence > dst.Confidence
	reindex := false
	if src.Title != "" && (dst.Title == "" || (stronger && src.Title != dst.Title)) {
		dst.Title = src.Title
		reindex = true
	}
	if len(src.Authors) > 0 && (len(dst.Authors) == 0 || stronger) {
		dst.Authors = append([]string(nil), src.Authors...)
	}
	if src.DateText != "" && (dst.DateText == "" || stronger) {
		dst.DateText = src.DateText
	}
	if !src.PublishedAt.IsZero() && (dst.PublishedAt.IsZero() || stronger) {
		dst.PublishedAt = src.PublishedAt
	}
	if src.Body != "" && (dst.Body == "" || (stronger && src.Body != dst.Body)) {
		dst.Body = src.Body
		reindex = true
	}
	if src.Summary != "" && (dst.Summary == "" || stronger) {
		dst.Summary = src.Summary
	}
	if src.Domain != "" && src.Domain != metadata.UnknownDomain && (dst.Domain == "" || dst.Domain == metadata.UnknownDomain) {
		dst.Domain = src.Domain
	}
	if src.Credibility > dst.Credibility {
		dst.Credibility = src.Credibility
	}
	dst.Methods = unionMethods(dst.Methods, src.Methods)
	if stronger {
		dst.Confidence = src.Confidence
	}
	return reindex
}

func unionMethods(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, m := range existing {
		seen[m] = true
	}
	for _, m := range incoming {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Get(id int64) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sources[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return *entry, nil
}

// Snapshot returns every entry in insertion order. The copies are safe to
// hold across later registrations.
func (r *Registry) Snapshot() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sources[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Stats() RunStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := RunStats{
		TotalSources: len(r.order),
		Deduplicated: r.dupes,
		Domains:      make(map[string]int),
		Authors:      make(map[string]int),
		Years:        make(map[int]int),
	}
	for _, id := range r.order {
		src := r.sources[id]
		if src.Domain != "" {
			stats.Domains[src.Domain]++
		}
		for _, author := range src.Authors {
			stats.Authors[author]++
		}
		if !src.PublishedAt.IsZero() {
			stats.Years[src.PublishedAt.Year()]++
		}
	}
	stats.TopDomain = topKey(stats.Domains)
	return stats
}

// topKey picks the most frequent key, breaking count ties on the smaller key
// so the answer is stable.
func topKey(counts map[string]int) string {
	var best string
	bestN := 0
	for key, n := range counts {
		if n > bestN || (n == bestN && bestN > 0 && key < best) {
			best, bestN = key, n
		}
	}
	return best
}

func (r *Registry) indexLocked(entry *Source) {
	doc := struct {
		Title   string `json:"title"`
		Body    string `json:"body"`
		Summary string `json:"summary"`
		Domain  string `json:"domain"`
	}{entry.Title, entry.Body, entry.Summary, entry.Domain}
	if err := r.index.Index(strconv.FormatInt(entry.ID, 10), doc); err != nil {
		r.logger.Printf("indexing source %d: %v", entry.ID, err)
	}
}
