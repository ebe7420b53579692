package market

import (
	"context"
	"fmt"

	"ComicScout/internal/domain/models"
	domrepo "ComicScout/internal/domain/repository"
)

// ComparablesValuer computes a market value from the comparable sales
// returned by a SalesSource. It holds no state between calls.
type ComparablesValuer struct {
	sales domrepo.SalesSource
}

func NewComparablesValuer(sales domrepo.SalesSource) *ComparablesValuer {
	return &ComparablesValuer{sales: sales}
}

// MarketValue returns nil, nil when there are no comparables. The computed
// value is stamped with the window the sales were gathered over.
func (v *ComparablesValuer) MarketValue(ctx context.Context, issueID, gradeID string, windowDays int) (*models.MarketValue, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	sold, err := v.sales.FetchSoldListings(ctx, issueID, gradeID, windowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch sold listings %s/%s: %w", issueID, gradeID, err)
	}

	mv := Calculate(sold)
	if mv == nil {
		return nil, nil
	}
	if windowDays != mv.WindowDays {
		mv.WindowDays = windowDays
		mv.MarketValueID = fmt.Sprintf("calculated-%s-%s-%dd", mv.IssueID, mv.GradeID, windowDays)
	}
	return mv, nil
}
