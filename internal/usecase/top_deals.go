package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ComicScout/internal/domain/models"
	domrepo "ComicScout/internal/domain/repository"
	domsvc "ComicScout/internal/domain/service"
	"ComicScout/internal/services/market"
	"ComicScout/internal/services/normalizer"
	"ComicScout/pkg/logger"
)

const (
	// TopDealsLimit caps the ranked result.
	TopDealsLimit   = 10
	DefaultMinScore = 10.0
)

// DefaultSearchTerms is used when the caller gives none.
var DefaultSearchTerms = []string{
	"Amazing Spider-Man",
	"Batman",
	"X-Men",
	"Superman",
	"Fantastic Four",
	"Avengers",
	"Iron Man",
	"Thor",
	"Captain America",
	"Hulk",
}

// Per-listing outcomes reported to metrics.
const (
	OutcomeDeal           = "deal"
	OutcomeNoComparables  = "no_comparables"
	OutcomeNoMarketValue  = "no_market_value"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeError          = "error"
)

// FetchError reports that the candidate listings could not be loaded.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "Failed to retrieve top deals: " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

type TopDealsParams struct {
	// MinScore defaults to DefaultMinScore when nil.
	MinScore    *float64
	SearchTerms []string
}

// TopDealsUseCase ranks live listings by how far they sit below market value.
type TopDealsUseCase struct {
	listings   domrepo.ListingSource
	valuer     domsvc.MarketValuer
	scorer     domsvc.DealScorer
	normalizer domsvc.TitleNormalizer
	metrics    domrepo.Metrics
	log        *logger.Logger

	workers    int
	windowDays int
	timeout    time.Duration
}

func NewTopDealsUseCase(
	listings domrepo.ListingSource,
	valuer domsvc.MarketValuer,
	scorer domsvc.DealScorer,
	titles domsvc.TitleNormalizer,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *TopDealsUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &TopDealsUseCase{
		listings:   listings,
		valuer:     valuer,
		scorer:     scorer,
		normalizer: titles,
		metrics:    metrics,
		log:        log,
		workers:    8,
		windowDays: market.DefaultWindowDays,
		timeout:    20 * time.Second,
	}
}

// WithLimits overrides worker count, lookback window and overall timeout.
// Non-positive values keep the current setting.
func (uc *TopDealsUseCase) WithLimits(workers, windowDays int, timeout time.Duration) *TopDealsUseCase {
	if workers > 0 {
		uc.workers = workers
	}
	if windowDays > 0 {
		uc.windowDays = windowDays
	}
	if timeout > 0 {
		uc.timeout = timeout
	}
	return uc
}

// GetTopDeals returns at most TopDealsLimit deals scoring at least MinScore,
// best first. Equal scores keep the order the listing source returned.
func (uc *TopDealsUseCase) GetTopDeals(ctx context.Context, p TopDealsParams) ([]models.TopDeal, error) {
	minScore := DefaultMinScore
	if p.MinScore != nil {
		minScore = *p.MinScore
	}
	terms := p.SearchTerms
	if len(terms) == 0 {
		terms = DefaultSearchTerms
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	listings, err := uc.listings.FetchLiveListings(ctx, terms)
	if err != nil {
		uc.recordError("fetch_listings")
		return nil, &FetchError{Err: err}
	}

	// Slots are indexed by fetch position so the final order never depends
	// on which goroutine finished first.
	slots := make([]*models.TopDeal, len(listings))
	sem := make(chan struct{}, uc.workers)
	var wg sync.WaitGroup

	for i := range listings {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			slots[i] = uc.evaluate(ctx, listings[i], minScore)
		}(i)
	}
	wg.Wait()

	deals := make([]models.TopDeal, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			deals = append(deals, *d)
		}
	}
	sort.SliceStable(deals, func(a, b int) bool {
		return deals[a].DealScore.Score > deals[b].DealScore.Score
	})
	if len(deals) > TopDealsLimit {
		deals = deals[:TopDealsLimit]
	}

	if uc.metrics != nil {
		uc.metrics.RecordLatency("top_deals", time.Since(start).Seconds())
	}
	uc.log.Info("top deals computed",
		logger.Int("listings", len(listings)),
		logger.Int("deals", len(deals)),
		logger.Float64("min_score", minScore),
		logger.Duration("elapsed_ms", time.Since(start)))
	return deals, nil
}

// evaluate never fails: every problem with a single listing is logged and
// turned into a nil result.
func (uc *TopDealsUseCase) evaluate(ctx context.Context, l models.Listing, minScore float64) (deal *models.TopDeal) {
	log := uc.log.With(logger.String("listing_id", l.ListingID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("listing evaluation panicked", logger.Any("panic", fmt.Sprint(r)))
			uc.recordOutcome(OutcomeError)
			deal = nil
		}
	}()

	if uc.normalizer != nil {
		parsed := uc.normalizer.Normalize(l.Title)
		if parsed.Confidence < normalizer.LowConfidenceThreshold {
			log.Debug("listing title did not parse cleanly",
				logger.String("title", l.Title),
				logger.Float64("confidence", parsed.Confidence),
				logger.String("notes", parsed.Notes))
		}
	}

	mv, err := uc.valuer.MarketValue(ctx, l.IssueID, l.GradeID, uc.windowDays)
	if err != nil {
		log.Warn("market value lookup failed", logger.String("issue_id", l.IssueID), logger.String("grade_id", l.GradeID), logger.Error(err))
		uc.recordOutcome(OutcomeError)
		return nil
	}
	if mv == nil || mv.SampleCount == 0 {
		uc.recordOutcome(OutcomeNoComparables)
		return nil
	}

	score, err := uc.scorer.Score(l, *mv)
	if err != nil {
		log.Warn("deal score rejected", logger.Error(err))
		uc.recordOutcome(OutcomeNoMarketValue)
		return nil
	}
	if uc.metrics != nil {
		uc.metrics.RecordDealScore(score.Score)
	}
	if float64(score.Score) < minScore {
		uc.recordOutcome(OutcomeBelowThreshold)
		return nil
	}

	uc.recordOutcome(OutcomeDeal)
	return &models.TopDeal{Listing: l, MarketValue: *mv, DealScore: score}
}

func (uc *TopDealsUseCase) recordOutcome(outcome string) {
	if uc.metrics != nil {
		uc.metrics.RecordListingOutcome(outcome)
	}
}

func (uc *TopDealsUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
