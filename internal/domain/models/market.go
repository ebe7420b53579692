package models

import "time"

// MarketValue summarises comparable sales for one issue/grade pair.
type MarketValue struct {
	MarketValueID string    `json:"marketValueId"`
	IssueID       string    `json:"issueId"`
	GradeID       string    `json:"gradeId"`
	WindowDays    int       `json:"windowDays"`
	SampleCount   int       `json:"sampleCount"`
	MedianGBP     float64   `json:"medianGBP"`
	MeanGBP       float64   `json:"meanGBP"`
	StdDevGBP     *float64  `json:"stdDevGBP,omitempty"`
	MinGBP        float64   `json:"minGBP"`
	MaxGBP        float64   `json:"maxGBP"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Deal flags attached to a score.
const (
	FlagExcellentDeal = "EXCELLENT_DEAL"
	FlagGoodDeal      = "GOOD_DEAL"
	FlagFairDeal      = "FAIR_DEAL"
	FlagPoorDeal      = "POOR_DEAL"
	FlagAboveMarket   = "ABOVE_MARKET"
	FlagLowSampleSize = "LOW_SAMPLE_SIZE"
)

// DealScoreInfo compares one listing price against a market median.
type DealScoreInfo struct {
	DealScoreID      string    `json:"dealScoreId"`
	ListingID        string    `json:"listingId"`
	IssueID          string    `json:"issueId"`
	GradeID          string    `json:"gradeId"`
	MarketValueGBP   float64   `json:"marketValueGBP"`
	TotalPriceGBP    float64   `json:"totalPriceGBP"`
	Score            int       `json:"score"`
	LowData          bool      `json:"lowData"`
	PriceAboveMarket bool      `json:"priceAboveMarket"`
	Flags            []string  `json:"flags,omitempty"`
	ComputedAt       time.Time `json:"computedAt"`
}

// TopDeal is one ranked result of the top-deals pipeline.
type TopDeal struct {
	Listing     Listing       `json:"listing"`
	MarketValue MarketValue   `json:"marketValue"`
	DealScore   DealScoreInfo `json:"dealScore"`
}

// DealsSnapshot is a published batch of top deals.
type DealsSnapshot struct {
	EventID     string    `json:"eventId"`
	MinScore    float64   `json:"minScore"`
	SearchTerms []string  `json:"searchTerms"`
	Deals       []TopDeal `json:"deals"`
	GeneratedAt time.Time `json:"generatedAt"`
}
