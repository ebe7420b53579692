package repository

import (
	"context"

	"ComicScout/internal/domain/models"
)

// ListingSource returns the active listings matching any of the search terms.
type ListingSource interface {
	FetchLiveListings(ctx context.Context, searchTerms []string) ([]models.Listing, error)
}

// SalesSource returns completed sales for an issue/grade pair within the lookback window.
type SalesSource interface {
	FetchSoldListings(ctx context.Context, issueID, gradeID string, windowDays int) ([]models.SoldListing, error)
}

// SalesStore persists completed sales used as comparables.
type SalesStore interface {
	StoreSale(ctx context.Context, s models.SoldListing) error
	StoreSales(ctx context.Context, sales []models.SoldListing) error
	Health(ctx context.Context) error
}

// DealPublisher ships computed top-deal snapshots to downstream consumers.
type DealPublisher interface {
	PublishDeals(ctx context.Context, snapshot models.DealsSnapshot) error
	Close() error
}

type Metrics interface {
	RecordListingOutcome(outcome string)
	RecordDealScore(score int)
	RecordMessageSent(backend, topic string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
