package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ComicScout/internal/domain/models"
	"ComicScout/internal/domain/repository"
)

const (
	// DefaultSalesTable holds completed sales used as comparables.
	DefaultSalesTable = "sold_listings"

	salesChunkSize    = 2000
	maxComparableRows = 1000
)

// SalesSchema returns the DDL for the sales table.
func SalesSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	listing_id String,
	issue_id LowCardinality(String),
	grade_id LowCardinality(String),
	title String,
	total_price_gbp Float64,
	source LowCardinality(String),
	url String,
	sold_at DateTime64(3),
	ingested_at DateTime64(3) DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(ingested_at)
PARTITION BY toYYYYMM(sold_at)
ORDER BY (issue_id, grade_id, listing_id)`, table),
	}
}

// CHSalesStore reads and writes completed sales in ClickHouse.
type CHSalesStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var (
	_ repository.SalesSource = (*CHSalesStore)(nil)
	_ repository.SalesStore  = (*CHSalesStore)(nil)
)

func NewCHSalesStore(db *sql.DB, table string) *CHSalesStore {
	if table == "" {
		table = DefaultSalesTable
	}
	return &CHSalesStore{db: db, table: table, now: time.Now}
}

// FetchSoldListings returns the most recent sales for the pair inside the window.
func (s *CHSalesStore) FetchSoldListings(ctx context.Context, issueID, gradeID string, windowDays int) ([]models.SoldListing, error) {
	since := s.now().AddDate(0, 0, -windowDays)
	q := fmt.Sprintf(`SELECT listing_id, issue_id, grade_id, title, total_price_gbp, source, url, sold_at
FROM %s FINAL
WHERE issue_id = ? AND grade_id = ? AND sold_at >= ?
ORDER BY sold_at DESC
LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, issueID, gradeID, since, maxComparableRows)
	if err != nil {
		return nil, fmt.Errorf("query sold listings: %w", err)
	}
	defer rows.Close()

	var out []models.SoldListing
	for rows.Next() {
		var (
			sl     models.SoldListing
			soldAt time.Time
		)
		if err := rows.Scan(&sl.ListingID, &sl.IssueID, &sl.GradeID, &sl.Title, &sl.TotalPriceGBP, &sl.Source, &sl.URL, &soldAt); err != nil {
			return nil, fmt.Errorf("scan sold listing: %w", err)
		}
		sl.EndTime = &soldAt
		out = append(out, sl)
	}
	return out, rows.Err()
}

func (s *CHSalesStore) StoreSale(ctx context.Context, sale models.SoldListing) error {
	return s.StoreSales(ctx, []models.SoldListing{sale})
}

// StoreSales inserts in multi-row chunks. Rows without a listing id, pair or
// positive price are skipped.
func (s *CHSalesStore) StoreSales(ctx context.Context, sales []models.SoldListing) error {
	for start := 0; start < len(sales); start += salesChunkSize {
		end := start + salesChunkSize
		if end > len(sales) {
			end = len(sales)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, sl := range sales[start:end] {
			if sl.ListingID == "" || sl.IssueID == "" || sl.GradeID == "" || sl.TotalPriceGBP <= 0 {
				continue
			}
			soldAt := s.now()
			if sl.EndTime != nil {
				soldAt = *sl.EndTime
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, sl.ListingID, sl.IssueID, sl.GradeID, sl.Title, sl.TotalPriceGBP, sl.Source, sl.URL, soldAt)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (listing_id, issue_id, grade_id, title, total_price_gbp, source, url, sold_at) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert sold listings: %w", err)
		}
	}
	return nil
}

func (s *CHSalesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
