package service

import (
	"context"

	"ComicScout/internal/domain/models"
)

// MarketValuer resolves the market value of an issue/grade pair over a lookback window.
// A nil value with a nil error means there is not enough data.
type MarketValuer interface {
	MarketValue(ctx context.Context, issueID, gradeID string, windowDays int) (*models.MarketValue, error)
}

// DealScorer scores a listing against a market value.
type DealScorer interface {
	Score(listing models.Listing, mv models.MarketValue) (models.DealScoreInfo, error)
}

// TitleNormalizer parses free-text listing titles.
type TitleNormalizer interface {
	Normalize(title string) models.ParsedTitle
}
