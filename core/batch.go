package core

import (
	"context"

	"github.com/sourcegraph/conc/iter"
)

const maxBatchWorkers = 8

// ItemResult is the outcome of one item of a batch mutation.
type ItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type BatchResult struct {
	Results   []ItemResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

func (br BatchResult) AllOK() bool { return br.Failed == 0 }

// RunBatch applies fn to every id concurrently and reports each outcome in input order.
// Failed items are not rolled back.
func RunBatch(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) BatchResult {
	mapper := iter.Mapper[string, ItemResult]{MaxGoroutines: maxBatchWorkers}
	results := mapper.Map(ids, func(id *string) ItemResult {
		if err := ctx.Err(); err != nil {
			return ItemResult{ID: *id, Error: err.Error()}
		}
		if err := fn(ctx, *id); err != nil {
			return ItemResult{ID: *id, Error: err.Error()}
		}
		return ItemResult{ID: *id, OK: true}
	})

	br := BatchResult{Results: results}
	if br.Results == nil {
		br.Results = []ItemResult{}
	}
	for _, r := range br.Results {
		if r.OK {
			br.Succeeded++
		} else {
			br.Failed++
		}
	}
	return br
}
