// Package batch hashes many left-hand-sides concurrently. Each worker owns
// an exclusive hashedrpz.Hasher, matching the concurrency model the core
// package documents: a Hasher is never shared across goroutines, but
// distinct Hashers derived from the same key may run on separate
// goroutines without coordination, because the underlying digest
// primitive keeps no state outside its own struct.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dlukt/hashedrpz/internal/hashedrpz"
)

// Request is one left-hand-side to hash, tagged with an index so Results
// can be reassembled in input order despite out-of-order completion.
type Request struct {
	Index int
	LHS   string
}

// Result is one Request's outcome. Err is nil on success. Hash never
// salvages a too-long name itself — that decision belongs to the caller's
// policy (see cmd/hashedrpzctl's --addwildcards handling), so WasWildcarded
// is always false here; it exists so Result's shape matches what a caller
// reports after its own salvage pass.
type Result struct {
	Index         int
	LHS           string
	Hashed        string
	WasWildcarded bool
	Err           error
}

// Run hashes every request in reqs using up to workers goroutines, each
// backed by its own Hasher derived from key. It returns one Result per
// request, in the same order as reqs, regardless of completion order.
// Run only returns an error itself if a Hasher could not be derived from
// key or ctx is cancelled; individual hash failures are reported through each Result's Err
// instead, so one bad name never aborts the rest of the batch.
func Run(ctx context.Context, key, origin string, workers int, reqs []Request) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(reqs))
	work := make(chan Request)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			h, err := hashedrpz.New(key)
			if err != nil {
				return err
			}
			defer h.Close()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case req, ok := <-work:
					if !ok {
						return nil
					}
					hashed, err := h.Hash(req.LHS, origin, nil)
					results[req.Index] = Result{
						Index:  req.Index,
						LHS:    req.LHS,
						Hashed: hashed,
						Err:    err,
					}
				}
			}
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, req := range reqs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case work <- req:
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
