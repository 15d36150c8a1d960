package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/metrics"
	"github.com/raphaelgruber/matsim/internal/models"
	"golang.org/x/sync/errgroup"
)

// fetchMaterials loads ids from the material store with at most
// fetchConcurrency requests in flight. The result follows the order of ids.
// The first failure cancels the remaining fetches.
func (s *ComparisonService) fetchMaterials(ctx context.Context, ids []string) (mats []*models.Material, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpFetch, start, len(ids), err) }()

	mats = make([]*models.Material, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			m, err := s.materials.GetMaterial(gctx, id)
			if err != nil {
				return fmt.Errorf("get material %s: %w", id, err)
			}
			if m == nil {
				return errs.NotFound("material", id)
			}
			mats[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mats, nil
}

// parallel runs fn(0..n-1) on a fixed pool of workers. Workers stop picking
// up items once ctx is done; in that case ctx.Err() is returned and the
// caller must discard whatever fn produced. progress, when set, is called
// after every completed item.
func (s *ComparisonService) parallel(ctx context.Context, n int, progress func(done, total int), fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}

	workers := min(s.workers, n)
	work := make(chan int, n)
	for i := range n {
		work <- i
	}
	close(work)

	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					return
				}
				fn(i)
				completed := done.Add(1)
				if progress != nil {
					progress(int(completed), n)
				}
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}
