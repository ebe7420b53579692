package models

import "time"

// Listing is one active marketplace offer. It is read-only once fetched.
type Listing struct {
	ListingID     string     `json:"listingId"`
	IssueID       string     `json:"issueId"`
	GradeID       string     `json:"gradeId"`
	Title         string     `json:"title"`
	TotalPriceGBP float64    `json:"totalPriceGBP"`
	Source        string     `json:"source"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	URL           string     `json:"url,omitempty"`
}

// SoldListing has the same shape as Listing but describes a completed sale.
// It is only used as pricing evidence and is never scored.
type SoldListing Listing

// SaleEvent is the payload of a completed-sale message on the ingest topic.
type SaleEvent struct {
	ListingID     string    `json:"listingId" validate:"required"`
	IssueID       string    `json:"issueId" validate:"required"`
	GradeID       string    `json:"gradeId" validate:"required"`
	Title         string    `json:"title"`
	TotalPriceGBP float64   `json:"totalPriceGBP" validate:"gt=0"`
	Source        string    `json:"source" validate:"required"`
	URL           string    `json:"url,omitempty"`
	SoldAt        time.Time `json:"soldAt" validate:"required"`
}

// Sold converts the event into the listing shape used for comparables.
func (e SaleEvent) Sold() SoldListing {
	end := e.SoldAt
	return SoldListing{
		ListingID:     e.ListingID,
		IssueID:       e.IssueID,
		GradeID:       e.GradeID,
		Title:         e.Title,
		TotalPriceGBP: e.TotalPriceGBP,
		Source:        e.Source,
		EndTime:       &end,
		URL:           e.URL,
	}
}
