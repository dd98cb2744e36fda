package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stats содержит агрегаты по сниппетам и отзывам
type Stats struct {
	TotalSnippets     int64
	CompletedSnippets int64
	PendingSnippets   int64
	TotalReviews      int64
	UniqueReviewers   int64
}

// Stats считает агрегаты; запросы идут параллельно
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	completed, pending := true, false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalSnippets, err = s.repo.CountSnippets(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		st.CompletedSnippets, err = s.repo.CountSnippets(gctx, &completed)
		return err
	})
	g.Go(func() (err error) {
		st.PendingSnippets, err = s.repo.CountSnippets(gctx, &pending)
		return err
	})
	g.Go(func() (err error) {
		st.TotalReviews, err = s.repo.CountReviews(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.UniqueReviewers, err = s.repo.CountDistinctReviewers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, s.storeErr("stats", err)
	}
	return st, nil
}
