package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

func TestRankingService_Index(t *testing.T) {
	t.Parallel()

	stored := []ranking.Ranking{{Rank: 2, TeamName: "France", FIFACode: "FRA", Points: 1870.5, FetchedAt: fixedNow.Add(-24 * time.Hour)}}
	staleStored := []ranking.Ranking{{Rank: 2, TeamName: "France", FIFACode: "FRA", Points: 1870.5, FetchedAt: fixedNow.Add(-40 * 24 * time.Hour)}}
	fresh := []ranking.Ranking{
		{Rank: 1, TeamName: "France", FIFACode: "FRA", Points: 1880.1},
		{Rank: 43, TeamName: "Norway", FIFACode: "NOR", Points: 1502.3},
	}

	cases := []struct {
		name         string
		stored       []ranking.Ranking
		providerErr  error
		wantCalls    int
		wantFRARank  int
		wantReplaced int
	}{
		{name: "fresh data is reused", stored: stored, wantCalls: 0, wantFRARank: 2},
		{name: "empty store triggers fetch", stored: nil, wantCalls: 1, wantFRARank: 1, wantReplaced: 1},
		{name: "provider failure keeps stored data", stored: staleStored, providerErr: errors.New("blocked"), wantCalls: 1, wantFRARank: 2},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &stubRankingRepo{items: tc.stored}
			provider := &stubRankingProvider{items: append([]ranking.Ranking(nil), fresh...), err: tc.providerErr}
			svc := NewRankingService(repo, provider, 30*24*time.Hour, nil)
			svc.now = fixedClock

			idx := svc.Index(context.Background())
			if provider.calls != tc.wantCalls {
				t.Fatalf("unexpected provider calls: got=%d want=%d", provider.calls, tc.wantCalls)
			}
			got := idx.Find(tournament.Team{Name: "France", FIFACode: "fra"})
			if got == nil || got.Rank != tc.wantFRARank {
				t.Fatalf("unexpected france rank: got=%+v want=%d", got, tc.wantFRARank)
			}
			if repo.replaced != tc.wantReplaced {
				t.Fatalf("unexpected replace count: got=%d want=%d", repo.replaced, tc.wantReplaced)
			}
		})
	}
}

func TestRankingService_StaleDataRefreshes(t *testing.T) {
	t.Parallel()

	repo := &stubRankingRepo{items: []ranking.Ranking{{Rank: 5, TeamName: "Norway", FetchedAt: fixedNow.Add(-31 * 24 * time.Hour)}}}
	provider := &stubRankingProvider{items: []ranking.Ranking{{Rank: 43, TeamName: "Norway"}}}
	svc := NewRankingService(repo, provider, 30*24*time.Hour, nil)
	svc.now = fixedClock

	got := svc.Index(context.Background()).Find(tournament.Team{Name: "norway"})
	if got == nil || got.Rank != 43 {
		t.Fatalf("expected refreshed ranking, got %+v", got)
	}
	if !repo.items[0].FetchedAt.Equal(fixedNow) {
		t.Fatalf("expected fetch time to be stamped: got=%s", repo.items[0].FetchedAt)
	}
}
