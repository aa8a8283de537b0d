package stats

import (
	"context"
	"database/sql"
	"time"
)

// ContentCounts summarizes the store as the pipelines see it.
type ContentCounts struct {
	Public     int `json:"public_articles"`
	Drafts     int `json:"drafts"`
	Pending    int `json:"pending_articles"`
	Categories int `json:"categories"`
	Series     int `json:"series"`
	Tags       int `json:"tags"`
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const queryCounts = `SELECT ` +
	`COUNT(*) FILTER (WHERE status = 'published' AND published_at <= $1), ` +
	`COUNT(*) FILTER (WHERE status = 'draft'), ` +
	`COUNT(*) FILTER (WHERE status = 'scheduled' OR (status = 'published' AND (published_at IS NULL OR published_at > $1))), ` +
	`(SELECT COUNT(*) FROM categories), (SELECT COUNT(*) FROM series), (SELECT COUNT(*) FROM tags) ` +
	`FROM articles`

// Counts treats scheduled articles and future-dated published ones as pending.
func (r *PostgresRepo) Counts(ctx context.Context, now time.Time) (ContentCounts, error) {
	var c ContentCounts
	err := r.db.QueryRowContext(ctx, queryCounts, now).
		Scan(&c.Public, &c.Drafts, &c.Pending, &c.Categories, &c.Series, &c.Tags)
	return c, err
}
