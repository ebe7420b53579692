package market

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ComicScout/internal/domain/models"
)

// Score bands for deal flags.
const (
	ExcellentDealScore = 50
	GoodDealScore      = 25
	LowSampleSize      = 5
)

// ErrNonPositiveMedian is returned when a market value has no usable median.
var ErrNonPositiveMedian = errors.New("market value median must be positive")

// DealScorer implements service.DealScorer.
type DealScorer struct {
	now func() time.Time
}

func NewDealScorer() *DealScorer {
	return &DealScorer{now: time.Now}
}

func (s *DealScorer) Score(listing models.Listing, mv models.MarketValue) (models.DealScoreInfo, error) {
	return ComputeDealScore(listing, mv, s.now())
}

// ComputeDealScore rates the listing price as a percentage saving against the
// market median, floored at zero.
func ComputeDealScore(listing models.Listing, mv models.MarketValue, at time.Time) (models.DealScoreInfo, error) {
	median := mv.MedianGBP
	if median <= 0 || math.IsNaN(median) || math.IsInf(median, 0) {
		return models.DealScoreInfo{}, fmt.Errorf("score listing %s: %w", listing.ListingID, ErrNonPositiveMedian)
	}

	savings := median - listing.TotalPriceGBP
	score := int(math.Round(savings / median * 100))
	if score < 0 {
		score = 0
	}

	info := models.DealScoreInfo{
		DealScoreID:      fmt.Sprintf("computed-%s-%d", listing.ListingID, at.UnixMilli()),
		ListingID:        listing.ListingID,
		IssueID:          listing.IssueID,
		GradeID:          listing.GradeID,
		MarketValueGBP:   median,
		TotalPriceGBP:    listing.TotalPriceGBP,
		Score:            score,
		LowData:          mv.SampleCount < LowSampleSize,
		PriceAboveMarket: listing.TotalPriceGBP > median,
		ComputedAt:       at,
	}
	info.Flags = flagsFor(info)
	return info, nil
}

func flagsFor(info models.DealScoreInfo) []string {
	var flags []string
	switch {
	case info.Score >= ExcellentDealScore:
		flags = append(flags, models.FlagExcellentDeal)
	case info.Score >= GoodDealScore:
		flags = append(flags, models.FlagGoodDeal)
	case info.Score > 0:
		flags = append(flags, models.FlagFairDeal)
	default:
		flags = append(flags, models.FlagPoorDeal)
	}
	if info.PriceAboveMarket {
		flags = append(flags, models.FlagAboveMarket)
	}
	if info.LowData {
		flags = append(flags, models.FlagLowSampleSize)
	}
	return flags
}
