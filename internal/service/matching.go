package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amara/cobagage/internal/model"
	"github.com/amara/cobagage/internal/repository"
)

// ─── Configuration ──────────────────────────────────────────

// MatchConfig holds the search parameters of the matching service.
type MatchConfig struct {
	// DateSearchRadiusDays bounds the candidate window on each side of
	// the target date when the caller does not override it.
	DateSearchRadiusDays int

	// BatchConcurrency caps the number of anchor searches a batch call
	// runs in parallel. Each search is independent and order-insensitive.
	BatchConcurrency int
}

// DefaultMatchConfig returns the launch defaults.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		DateSearchRadiusDays: 7,
		BatchConcurrency:     8,
	}
}

// ─── Store interfaces ───────────────────────────────────────

// ColisStore is the candidate-store boundary for packages. Implemented
// by repository.ColisRepository; tests use in-memory fakes.
type ColisStore interface {
	GetColisByID(ctx context.Context, id string) (*model.Colis, error)
	// FindCandidateColis returns packages whose date falls in the window
	// (or is absent), whose weight fits maxWeightKg, excluding the owner.
	FindCandidateColis(ctx context.Context, window model.DateWindow, maxWeightKg float64, excludeUserID string) ([]model.Colis, error)
}

// TrajetStore is the candidate-store boundary for trips.
type TrajetStore interface {
	GetTrajetByID(ctx context.Context, id string) (*model.Trajet, error)
	// FindCandidateTrajets returns trips whose date falls in the window
	// with capacity of at least minCapacityKg, excluding the owner.
	FindCandidateTrajets(ctx context.Context, window model.DateWindow, minCapacityKg float64, excludeUserID string) ([]model.Trajet, error)
}

// ─── MatchingService ────────────────────────────────────────

// MatchingService runs the batch search/filter pipeline on top of the
// pure scoring functions.
//
// Pipeline per call:
//
//  1. FETCH: anchor record by id, then the pre-filtered candidate set
//     (date window + capacity + ownership) in a single store read.
//  2. SCORE: every candidate through CalculateMatch.
//  3. RANK: stable sort by score descending; equal scores order by
//     counterpart id so results never depend on store return order.
//  4. FILTER/LIMIT: minimum score, then truncation.
//
// The service holds no mutable state; concurrent searches are
// independent.
type MatchingService struct {
	colis   ColisStore
	trajets TrajetStore
	config  MatchConfig
}

// NewMatchingService creates a matching service over the given stores.
func NewMatchingService(colis ColisStore, trajets TrajetStore, config MatchConfig) *MatchingService {
	if config.DateSearchRadiusDays <= 0 {
		config.DateSearchRadiusDays = DefaultMatchConfig().DateSearchRadiusDays
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = DefaultMatchConfig().BatchConcurrency
	}
	return &MatchingService{colis: colis, trajets: trajets, config: config}
}

// FindMatchesForColis finds and ranks all viable trips for a package.
//
// The search window is centered on the package's desired date, or on
// the current date when the package is flexible.
func (s *MatchingService) FindMatchesForColis(ctx context.Context, colisID string, opts model.MatchOptions) (*model.ColisMatchResults, error) {
	colis, err := s.colis.GetColisByID(ctx, colisID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrColisNotFound, colisID)
		}
		return nil, fmt.Errorf("fetch colis %s: %w", colisID, err)
	}

	target := time.Now()
	if colis.DateEnvoi != nil {
		target = *colis.DateEnvoi
	}
	window := s.searchWindow(target, opts.DateSearchRadius)

	candidates, err := s.trajets.FindCandidateTrajets(ctx, window, colis.Poids, colis.UserID)
	if err != nil {
		return nil, fmt.Errorf("find candidate trajets: %w", err)
	}

	log.Printf("[match] colis %s: %d candidate trajets in [%s, %s]",
		colisID, len(candidates), window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	matches := make([]model.MatchResult, 0, len(candidates))
	for i := range candidates {
		result, err := CalculateMatch(model.MatchInput{Colis: colis, Trajet: &candidates[i]})
		if err != nil {
			return nil, fmt.Errorf("score trajet %s: %w", candidates[i].ID, err)
		}
		matches = append(matches, *result)
	}

	sortByScore(matches, func(m model.MatchResult) string { return m.TrajetID })

	filtered := filterMinScore(matches, opts.MinScore)
	limited := truncate(filtered, opts.Limit)

	if !opts.WantBreakdown() {
		for i := range limited {
			limited[i].Breakdown = nil
		}
	}

	return &model.ColisMatchResults{
		ColisID:            colisID,
		TotalMatches:       len(filtered),
		RecommendedMatches: countRecommended(filtered),
		ExactMatches:       countExact(filtered),
		Matches:            limited,
		SearchParams: model.SearchParams{
			DateRange: window,
			MinWeight: colis.Poids,
		},
		GeneratedAt: time.Now(),
	}, nil
}

// FindMatchesForTrajet finds and ranks all viable packages for a trip.
//
// Symmetric to FindMatchesForColis, with the window centered on the
// trip's (always concrete) travel date. Packages with no desired date
// are candidates regardless of the window. Breakdowns are always
// included in this direction.
func (s *MatchingService) FindMatchesForTrajet(ctx context.Context, trajetID string, opts model.MatchOptions) (*model.TrajetMatchResults, error) {
	trajet, err := s.trajets.GetTrajetByID(ctx, trajetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTrajetNotFound, trajetID)
		}
		return nil, fmt.Errorf("fetch trajet %s: %w", trajetID, err)
	}

	window := s.searchWindow(trajet.DateVoyage, opts.DateSearchRadius)

	candidates, err := s.colis.FindCandidateColis(ctx, window, trajet.KilosDisponibles, trajet.UserID)
	if err != nil {
		return nil, fmt.Errorf("find candidate colis: %w", err)
	}

	log.Printf("[match] trajet %s: %d candidate colis in [%s, %s]",
		trajetID, len(candidates), window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	matches := make([]model.MatchResult, 0, len(candidates))
	for i := range candidates {
		result, err := CalculateMatch(model.MatchInput{Colis: &candidates[i], Trajet: trajet})
		if err != nil {
			return nil, fmt.Errorf("score colis %s: %w", candidates[i].ID, err)
		}
		matches = append(matches, *result)
	}

	sortByScore(matches, func(m model.MatchResult) string { return m.ColisID })

	filtered := filterMinScore(matches, opts.MinScore)
	limited := truncate(filtered, opts.Limit)

	return &model.TrajetMatchResults{
		TrajetID:           trajetID,
		TotalMatches:       len(filtered),
		RecommendedMatches: countRecommended(filtered),
		ExactMatches:       countExact(filtered),
		Matches:            limited,
		GeneratedAt:        time.Now(),
	}, nil
}

// BatchMatchColis runs FindMatchesForColis for every id concurrently
// and returns the results keyed by colis id. The first failing search
// cancels the rest.
func (s *MatchingService) BatchMatchColis(ctx context.Context, colisIDs []string, opts model.MatchOptions) (map[string]*model.ColisMatchResults, error) {
	results := make([]*model.ColisMatchResults, len(colisIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BatchConcurrency)

	for i, id := range colisIDs {
		i, id := i, id
		g.Go(func() error {
			r, err := s.FindMatchesForColis(gctx, id, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*model.ColisMatchResults, len(colisIDs))
	for i, id := range colisIDs {
		byID[id] = results[i]
	}
	return byID, nil
}

// ─── Pipeline helpers ───────────────────────────────────────

// searchWindow spans ±radius days around the target date.
func (s *MatchingService) searchWindow(target time.Time, radiusDays int) model.DateWindow {
	if radiusDays <= 0 {
		radiusDays = s.config.DateSearchRadiusDays
	}
	return model.DateWindow{
		Start: target.AddDate(0, 0, -radiusDays),
		End:   target.AddDate(0, 0, radiusDays),
	}
}

// sortByScore orders matches by score descending. Equal scores fall
// back to the counterpart id so the ranking is deterministic regardless
// of candidate fetch order.
func sortByScore(matches []model.MatchResult, key func(model.MatchResult) string) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return key(matches[i]) < key(matches[j])
	})
}

func filterMinScore(matches []model.MatchResult, minScore float64) []model.MatchResult {
	if minScore <= 0 {
		return matches
	}
	filtered := matches[:0:0]
	for _, m := range matches {
		if m.Score >= minScore {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func truncate(matches []model.MatchResult, limit int) []model.MatchResult {
	if limit <= 0 || limit >= len(matches) {
		return matches
	}
	return matches[:limit]
}

func countRecommended(matches []model.MatchResult) int {
	n := 0
	for _, m := range matches {
		if m.IsRecommended {
			n++
		}
	}
	return n
}

func countExact(matches []model.MatchResult) int {
	n := 0
	for _, m := range matches {
		if m.IsExactMatch {
			n++
		}
	}
	return n
}
