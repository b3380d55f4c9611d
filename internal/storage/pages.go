package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/termspider/internal/rank"
)

// PageRecord is a stored page.
type PageRecord struct {
	URL          string         `db:"url"`
	Title        sql.NullString `db:"title"`
	FirstSeen    int64          `db:"first_seen"`
	LastVisited  int64          `db:"last_visited"`
	OutlinkCount int            `db:"outlink_count"`
	Hits         int            `db:"hits"`
}

// FirstSeenTime returns FirstSeen as a time.
func (p *PageRecord) FirstSeenTime() time.Time {
	return time.UnixMilli(p.FirstSeen).UTC()
}

// LastVisitedTime returns LastVisited as a time.
func (p *PageRecord) LastVisitedTime() time.Time {
	return time.UnixMilli(p.LastVisited).UTC()
}

func nullTitle(title string) sql.NullString {
	return sql.NullString{String: title, Valid: title != ""}
}

// Exists reports whether a record for link exists.
func (s *Store) Exists(ctx context.Context, link string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM pages WHERE url = ?"), link)
	if err != nil {
		return false, fmt.Errorf("failed to check page: %w", err)
	}
	return n > 0, nil
}

// RecordHit increments the reference counter of link.
func (s *Store) RecordHit(ctx context.Context, link string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE pages SET hits = hits + 1 WHERE url = ?"), link)
	if err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}
	return nil
}

// LastVisited returns the last visit time of link.
func (s *Store) LastVisited(ctx context.Context, link string) (time.Time, bool, error) {
	var ms int64
	err := s.db.GetContext(ctx, &ms, s.db.Rebind("SELECT last_visited FROM pages WHERE url = ?"), link)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last visited: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Insert creates a record for link. It returns false without error when the
// record already exists, which is how a lost insert race shows up.
func (s *Store) Insert(ctx context.Context, link, title string, outlinks int, seen time.Time) (bool, error) {
	ms := seen.UnixMilli()
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO pages (url, title, first_seen, last_visited, outlink_count, hits)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT (url) DO NOTHING
	`), link, nullTitle(title), ms, ms, outlinks)
	if err != nil {
		return false, fmt.Errorf("failed to insert page: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n == 1, nil
}

// Update sets the title and moves last_visited forward. An older visited
// time never replaces a newer one.
func (s *Store) Update(ctx context.Context, link string, visited time.Time, title string) error {
	ms := visited.UnixMilli()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE pages
		SET title = ?,
			last_visited = CASE WHEN last_visited < ? THEN ? ELSE last_visited END
		WHERE url = ?
	`), nullTitle(title), ms, ms, link)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

// SetVector replaces the term vector of link.
func (s *Store) SetVector(ctx context.Context, link string, v rank.Vector) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM page_terms WHERE url = ?"), link); err != nil {
		return fmt.Errorf("failed to clear vector: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind("INSERT INTO page_terms (url, term, weight) VALUES (?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for term, weight := range v {
		if _, err := stmt.ExecContext(ctx, link, term, weight); err != nil {
			return fmt.Errorf("failed to insert term %s: %w", term, err)
		}
	}

	return tx.Commit()
}

// SetContent stores the plain text of link.
func (s *Store) SetContent(ctx context.Context, link, text string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO page_content (url, content) VALUES (?, ?)
		ON CONFLICT (url) DO UPDATE SET content = excluded.content
	`), link, text)
	if err != nil {
		return fmt.Errorf("failed to set content: %w", err)
	}
	return nil
}

// Page returns the record of link, or nil when it does not exist.
func (s *Store) Page(ctx context.Context, link string) (*PageRecord, error) {
	var page PageRecord
	err := s.db.GetContext(ctx, &page, s.db.Rebind(`
		SELECT url, title, first_seen, last_visited, outlink_count, hits
		FROM pages WHERE url = ?
	`), link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

// Vector returns the stored term vector of link.
func (s *Store) Vector(ctx context.Context, link string) (rank.Vector, error) {
	var rows []struct {
		Term   string  `db:"term"`
		Weight float64 `db:"weight"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind("SELECT term, weight FROM page_terms WHERE url = ?"), link)
	if err != nil {
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}

	v := make(rank.Vector, len(rows))
	for _, row := range rows {
		v[row.Term] = row.Weight
	}
	return v, nil
}

// Content returns the stored plain text of link.
func (s *Store) Content(ctx context.Context, link string) (string, error) {
	var content string
	err := s.db.GetContext(ctx, &content, s.db.Rebind("SELECT content FROM page_content WHERE url = ?"), link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content: %w", err)
	}
	return content, nil
}
