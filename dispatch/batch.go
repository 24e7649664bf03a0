package dispatch

import "github.com/kestrelphys/proximity/shape"

// Query is one independent (pos12, g1, g2) distance request.
type Query struct {
	Pos12  shape.Isometry
	G1, G2 shape.SupportMap
}

// BatchDistance dispatches queries across workerCount goroutines and
// returns each query's distance in the same order: each worker claims a
// contiguous chunk of the slice, joined by a WaitGroup. The core itself
// holds no shared mutable state; concurrency only happens here, across
// independent queries.
func BatchDistance(d Dispatcher, queries []Query, workerCount int) []float64 {
	results := make([]float64, len(queries))
	if len(queries) == 0 {
		return results
	}
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(queries) {
		workerCount = len(queries)
	}

	task(workerCount, len(queries), func(start, end int) {
		for i := start; i < end; i++ {
			q := queries[i]
			results[i] = d.Distance(q.Pos12, q.G1, q.G2)
		}
	})

	return results
}
