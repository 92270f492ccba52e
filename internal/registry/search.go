package registry

import (
	"strconv"

	"github.com/blevesearch/bleve"
)

// Hit is a search match with its BM25 score.
type Hit struct {
	Source
	Score float64 `json:"score"`
}

// Search runs a full-text match query over the registered titles, bodies and
// summaries and returns up to k hits, best first. A query matching nothing
// returns an empty slice, not an error.
func (r *Registry) Search(query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), k*3, 0, false)
	res, err := r.index.Search(req)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hit, 0, k)
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		entry, ok := r.sources[id]
		if !ok {
			continue
		}
		out = append(out, Hit{Source: *entry, Score: hit.Score})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
