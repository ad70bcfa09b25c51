package fetch

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

type resolveResult struct {
	url string
	err error
}

// Resolve fetches every URL once, concurrently, and partitions them
// into reachable and failed sets. Used by the one-shot check command
// to validate a feed list before running the daemon.
func Resolve(ctx context.Context, fetcher Fetcher, urls []string) (ok []string, failed []string) {
	results := make([]resolveResult, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			_, err := fetcher.Fetch(ctx, u)
			results[i] = resolveResult{url: u, err: err}
		}(i, u)
	}
	wg.Wait()

	ok = lo.FilterMap(results, func(r resolveResult, _ int) (string, bool) {
		return r.url, r.err == nil
	})
	failed = lo.FilterMap(results, func(r resolveResult, _ int) (string, bool) {
		return r.url, r.err != nil
	})

	return ok, failed
}
