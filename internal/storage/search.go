package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SearchResult is a page matching a term search.
type SearchResult struct {
	URL     string  `db:"url"`
	Title   string  `db:"title"`
	Score   float64 `db:"score"`
	Matched int     `db:"matched"`
}

// Counts summarizes the store contents.
type Counts struct {
	Pages int `db:"pages"`
	Terms int `db:"terms"`
	Hits  int `db:"hits"`
}

// Search ranks pages by the summed weight of the given stemmed terms.
func (s *Store) Search(ctx context.Context, terms []string, limit int) ([]SearchResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query, args, err := sqlx.In(`
		SELECT p.url AS url, COALESCE(p.title, '') AS title,
			SUM(t.weight) AS score, COUNT(*) AS matched
		FROM page_terms t
		JOIN pages p ON p.url = t.url
		WHERE t.term IN (?)
		GROUP BY p.url, p.title
		ORDER BY score DESC, p.url ASC
		LIMIT ?
	`, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	var results []SearchResult
	if err := s.db.SelectContext(ctx, &results, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return results, nil
}

// Counts returns page, distinct term and hit totals.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM pages) AS pages,
			(SELECT COUNT(DISTINCT term) FROM page_terms) AS terms,
			(SELECT COALESCE(SUM(hits), 0) FROM pages) AS hits
	`)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count: %w", err)
	}
	return c, nil
}
