package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ComicScout/internal/domain/models"
)

// DefaultWindowDays is the lookback reported on computed market values.
const DefaultWindowDays = 30

// Calculate summarises the given sales. It returns nil when there is nothing
// to summarise; callers treat that as "not enough data".
func Calculate(sales []models.SoldListing) *models.MarketValue {
	return calculateAt(sales, time.Now())
}

func calculateAt(sales []models.SoldListing, now time.Time) *models.MarketValue {
	if len(sales) == 0 {
		return nil
	}

	prices := make([]float64, len(sales))
	for i, s := range sales {
		prices[i] = s.TotalPriceGBP
	}
	sort.Float64s(prices)

	mean := Mean(prices)
	sd := round2(PopulationStdDev(prices, mean))
	first := sales[0]

	return &models.MarketValue{
		MarketValueID: fmt.Sprintf("calculated-%s-%s-%dd", first.IssueID, first.GradeID, DefaultWindowDays),
		IssueID:       first.IssueID,
		GradeID:       first.GradeID,
		WindowDays:    DefaultWindowDays,
		SampleCount:   len(prices),
		MedianGBP:     round2(Median(prices)),
		MeanGBP:       round2(mean),
		StdDevGBP:     &sd,
		MinGBP:        round2(prices[0]),
		MaxGBP:        round2(prices[len(prices)-1]),
		LastUpdated:   now,
	}
}

// Median expects sorted input.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopulationStdDev divides by N, not N-1.
func PopulationStdDev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
