// Package leaderboard is the cache layer in front of Nakama's native,
// durable sorted leaderboard storage. Nakama already owns paged,
// rating-ordered record storage with reverse owner lookups — this
// package's job is bounded-staleness reads and derived metrics, not
// reimplementing a sorted sequence.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
	"github.com/ironspire/pvpcore/internal/ratingengine"
)

// Category names one rating-ordered leaderboard. Nakama leaderboard ids are
// namespaced by mode + period so a season reset can create a fresh id
// without disturbing historical data.
func Category(mode, period string) string {
	return fmt.Sprintf("pvpcore_%s_%s", mode, period)
}

// Row is one entry of a leaderboard page.
type Row struct {
	Rank          int64
	PreviousRank  int64
	PlayerID      string
	Username      string
	Rating        int64
	Wins          int64
	Losses        int64
	LastUpdateUTC int64
}

// Page is a cached, possibly-stale read of a leaderboard window.
type Page struct {
	Category   string
	Rows       []Row
	NextCursor string
	PrevCursor string
	FetchedUTC int64
	Stale      bool
}

type cacheKey struct {
	category string
	cursor   string
	limit    int
}

type cacheEntry struct {
	page      Page
	expiresAt time.Time
}

// Store wraps runtime.NakamaModule's leaderboard primitives with a
// TTL page cache and ensures the categories it serves exist.
type Store struct {
	nk     runtime.NakamaModule
	logger runtime.Logger

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
	// refreshing is allocated by New but not read or written by any
	// method: Page re-reads an expired entry synchronously.
	refreshing map[cacheKey]bool
}

// New constructs a leaderboard store bound to a Nakama module instance.
func New(nk runtime.NakamaModule, logger runtime.Logger) *Store {
	return &Store{
		nk:         nk,
		logger:     logger,
		cache:      make(map[cacheKey]cacheEntry),
		refreshing: make(map[cacheKey]bool),
	}
}

// EnsureCategory creates the backing Nakama leaderboard if it does not
// already exist. Nakama's LeaderboardCreate is idempotent against an
// existing id; any error it does return is passed back wrapped as
// ErrCollaboratorCall.
func (s *Store) EnsureCategory(ctx context.Context, category string) error {
	err := s.nk.LeaderboardCreate(ctx, category, true, "desc", "best", "", map[string]interface{}{}, true)
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	return nil
}

// RecordResult writes a player's current rating into the backing
// leaderboard and invalidates the page cache for that category, so a
// rating update is visible to reads that start after it completes.
func (s *Store) RecordResult(ctx context.Context, category, playerID, username string, rating int64, wins, losses int64) error {
	meta := map[string]interface{}{"wins": wins, "losses": losses}
	if _, err := s.nk.LeaderboardRecordWrite(ctx, category, playerID, username, rating, 0, meta, nil); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	s.invalidate(category)
	return nil
}

func (s *Store) invalidate(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.cache {
		if k.category == category {
			delete(s.cache, k)
		}
	}
}

func recordToRow(rec *api.LeaderboardRecord) Row {
	return Row{
		Rank:          rec.Rank,
		PlayerID:      rec.OwnerId,
		Username:      rec.Username.GetValue(),
		Rating:        rec.Score,
		LastUpdateUTC: rec.UpdateTime.GetSeconds(),
	}
}

// Page returns a leaderboard window, serving a cached copy when it is
// within TTL. Once the entry has expired, Page re-reads it synchronously
// from Nakama; the expired copy, marked Stale, is returned only when that
// read fails. No background refresh runs.
func (s *Store) Page(ctx context.Context, category, cursor string, limit int) (Page, error) {
	key := cacheKey{category: category, cursor: cursor, limit: limit}
	ttl := time.Duration(config.Get().LeaderboardCacheTTLSeconds) * time.Second

	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.page, nil
	}

	fresh, err := s.fetch(ctx, category, cursor, limit)
	if err != nil {
		if ok {
			// Bounded staleness: prefer a stale page to a hard failure when
			// the live read fails.
			stale := entry.page
			stale.Stale = true
			return stale, nil
		}
		return Page{}, err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{page: fresh, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return fresh, nil
}

func (s *Store) fetch(ctx context.Context, category, cursor string, limit int) (Page, error) {
	records, _, nextCursor, prevCursor, err := s.nk.LeaderboardRecordsList(ctx, category, nil, limit, cursor, 0)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, recordToRow(rec))
	}
	return Page{
		Category:   category,
		Rows:       rows,
		NextCursor: nextCursor,
		PrevCursor: prevCursor,
		FetchedUTC: time.Now().Unix(),
	}, nil
}

// Position returns a player's rank, percentile, and immediate neighborhood
// (the rows immediately above/below) for a category.
type Position struct {
	Rank         int64
	Percentile   float64
	Neighborhood []Row
}

func (s *Store) Position(ctx context.Context, category, playerID string, neighborhoodSize int) (Position, error) {
	records, err := s.nk.LeaderboardRecordsHaystack(ctx, category, playerID, neighborhoodSize, "", 0)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	if len(records.Records) == 0 {
		return Position{}, coreerrors.ErrUnknownPlayer
	}
	rows := make([]Row, 0, len(records.Records))
	var rank int64
	var total int64
	for _, rec := range records.Records {
		rows = append(rows, recordToRow(rec))
		if rec.OwnerId == playerID {
			rank = rec.Rank
		}
		if rec.Rank > total {
			total = rec.Rank
		}
	}
	percentile := 0.0
	if total > 0 {
		percentile = 1.0 - float64(rank)/float64(total)
	}
	return Position{Rank: rank, Percentile: percentile, Neighborhood: rows}, nil
}

// ModeRoster returns up to limit player ids currently present in a mode's
// current-season category, used by the tick driver to scope scheduled decay
// sweeps without assuming a separate player directory.
func (s *Store) ModeRoster(ctx context.Context, mode string, limit int) ([]string, error) {
	page, err := s.Page(ctx, Category(mode, "current"), "", limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(page.Rows))
	for i, r := range page.Rows {
		ids[i] = r.PlayerID
	}
	return ids, nil
}

// Distribution is a derived metric over a fetched page: tier buckets and
// mean/median/min/max rating. Computed on demand from a page rather than
// maintained incrementally.
type Distribution struct {
	Category     string
	SampleSize   int
	MeanRating   float64
	MedianRating float64
	MinRating    int64
	MaxRating    int64
	TierCounts   map[string]int
}

// Stats computes distribution/averages over a single fetched page. Callers
// wanting a global distribution should page through and aggregate; this
// keeps a single Nakama call per invocation, avoiding long-lived
// suspension points.
func (s *Store) Stats(ctx context.Context, category string, sampleSize int) (Distribution, error) {
	page, err := s.Page(ctx, category, "", sampleSize)
	if err != nil {
		return Distribution{}, err
	}
	if len(page.Rows) == 0 {
		return Distribution{Category: category}, nil
	}
	ratings := make([]int64, len(page.Rows))
	tierCounts := make(map[string]int)
	var sum int64
	for i, r := range page.Rows {
		ratings[i] = r.Rating
		sum += r.Rating
		tierCounts[ratingengine.Tier(int32(r.Rating))]++
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i] < ratings[j] })
	median := ratings[len(ratings)/2]
	return Distribution{
		Category:     category,
		SampleSize:   len(ratings),
		MeanRating:   float64(sum) / float64(len(ratings)),
		MedianRating: float64(median),
		MinRating:    ratings[0],
		MaxRating:    ratings[len(ratings)-1],
		TierCounts:   tierCounts,
	}, nil
}
