package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"ComicScout/internal/domain/models"
	"ComicScout/internal/domain/repository"
)

const (
	DefaultListingsTable = "live_listings"
	maxLiveListings      = 500
)

// ListingsSchema returns the DDL for the live listings table.
func ListingsSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	listing_id TEXT PRIMARY KEY,
	issue_id TEXT NOT NULL,
	grade_id TEXT NOT NULL,
	title TEXT NOT NULL,
	total_price_gbp DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL,
	end_time TIMESTAMPTZ,
	url TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_active_idx ON %s (active, end_time)`, table, table),
	}
}

// PGListingStore serves active listings mirrored into Postgres.
type PGListingStore struct {
	db    *sql.DB
	table string
}

var _ repository.ListingSource = (*PGListingStore)(nil)

func NewPGListingStore(db *sql.DB, table string) *PGListingStore {
	if table == "" {
		table = DefaultListingsTable
	}
	return &PGListingStore{db: db, table: table}
}

// FetchLiveListings matches titles case-insensitively against any term.
func (s *PGListingStore) FetchLiveListings(ctx context.Context, searchTerms []string) ([]models.Listing, error) {
	patterns := make([]string, 0, len(searchTerms))
	for _, term := range searchTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		patterns = append(patterns, "%"+escapeLike(term)+"%")
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`SELECT listing_id, issue_id, grade_id, title, total_price_gbp, source, end_time, url
FROM %s
WHERE active AND (end_time IS NULL OR end_time > NOW()) AND title ILIKE ANY($1)
ORDER BY listing_id
LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, q, pq.Array(patterns), maxLiveListings)
	if err != nil {
		return nil, fmt.Errorf("query live listings: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		var (
			l   models.Listing
			end pq.NullTime
		)
		if err := rows.Scan(&l.ListingID, &l.IssueID, &l.GradeID, &l.Title, &l.TotalPriceGBP, &l.Source, &end, &l.URL); err != nil {
			return nil, fmt.Errorf("scan live listing: %w", err)
		}
		if end.Valid {
			t := end.Time
			l.EndTime = &t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertListings mirrors listings fetched from a marketplace.
func (s *PGListingStore) UpsertListings(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO %s (listing_id, issue_id, grade_id, title, total_price_gbp, source, end_time, url, active, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
ON CONFLICT (listing_id) DO UPDATE SET
	issue_id = EXCLUDED.issue_id,
	grade_id = EXCLUDED.grade_id,
	title = EXCLUDED.title,
	total_price_gbp = EXCLUDED.total_price_gbp,
	source = EXCLUDED.source,
	end_time = EXCLUDED.end_time,
	url = EXCLUDED.url,
	active = TRUE,
	updated_at = EXCLUDED.updated_at`, s.table)

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range listings {
		var end interface{}
		if l.EndTime != nil {
			end = *l.EndTime
		}
		if _, err := stmt.ExecContext(ctx, l.ListingID, l.IssueID, l.GradeID, l.Title, l.TotalPriceGBP, l.Source, end, l.URL, now); err != nil {
			return fmt.Errorf("upsert listing %s: %w", l.ListingID, err)
		}
	}
	return tx.Commit()
}

func (s *PGListingStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
