package sitemap

import (
	"context"
	"database/sql"
	"time"

	"devpress/publisher/internal/content"
)

type Repository interface {
	ListCategories(ctx context.Context, now time.Time) ([]content.Grouping, error)
	ListSeries(ctx context.Context, now time.Time) ([]content.Grouping, error)
	ListTags(ctx context.Context, now time.Time) ([]content.Grouping, error)
	ListArticles(ctx context.Context, now time.Time) ([]content.Article, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const (
	queryCategories = `SELECT c.id, c.name, c.slug, COALESCE(c.parent_id, 0), MAX(a.published_at) FROM categories c JOIN article_category ac ON ac.category_id = c.id JOIN articles a ON a.id = ac.article_id WHERE a.status = 'published' AND a.published_at <= $1 GROUP BY c.id ORDER BY c.id`
	querySeries     = `SELECT s.id, s.name, s.slug, 0, MAX(a.published_at) FROM series s JOIN articles a ON a.series_id = s.id WHERE a.status = 'published' AND a.published_at <= $1 GROUP BY s.id ORDER BY s.id`
	queryTags       = `SELECT t.id, t.name, t.slug, 0, MAX(a.published_at) FROM tags t JOIN article_tag atg ON atg.tag_id = t.id JOIN articles a ON a.id = atg.article_id WHERE a.status = 'published' AND a.published_at <= $1 GROUP BY t.id ORDER BY t.id`
	queryArticles   = `SELECT a.id, a.title, a.slug, a.excerpt, a.published_at, a.updated_at, COALESCE(a.series_id, 0), m.path, m.alt, m.caption, m.mime_type, COALESCE(v.views, 0) ` +
		`FROM articles a ` +
		`LEFT JOIN LATERAL (SELECT path, alt, caption, mime_type FROM media WHERE owner_type = 'article' AND owner_id = a.id AND role = 'featured_image' ORDER BY id LIMIT 1) m ON TRUE ` +
		`LEFT JOIN (SELECT article_id, COUNT(DISTINCT ip_hash) AS views FROM article_views GROUP BY article_id) v ON v.article_id = a.id ` +
		`WHERE a.status = 'published' AND a.published_at <= $1 ORDER BY a.published_at DESC, a.id`
)

func (r *PostgresRepo) ListCategories(ctx context.Context, now time.Time) ([]content.Grouping, error) {
	return r.listGroupings(ctx, queryCategories, content.KindCategory, now)
}

func (r *PostgresRepo) ListSeries(ctx context.Context, now time.Time) ([]content.Grouping, error) {
	return r.listGroupings(ctx, querySeries, content.KindSeries, now)
}

func (r *PostgresRepo) ListTags(ctx context.Context, now time.Time) ([]content.Grouping, error) {
	return r.listGroupings(ctx, queryTags, content.KindTag, now)
}

func (r *PostgresRepo) listGroupings(ctx context.Context, query string, kind content.GroupingKind, now time.Time) ([]content.Grouping, error) {
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groupings []content.Grouping
	for rows.Next() {
		g := content.Grouping{Kind: kind}
		var latest sql.NullTime
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.ParentID, &latest); err != nil {
			return nil, err
		}
		if latest.Valid {
			g.LatestPublishedAt = latest.Time
		}
		groupings = append(groupings, g)
	}
	return groupings, rows.Err()
}

func (r *PostgresRepo) ListArticles(ctx context.Context, now time.Time) ([]content.Article, error) {
	rows, err := r.db.QueryContext(ctx, queryArticles, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []content.Article
	for rows.Next() {
		a := content.Article{Status: content.StatusPublished}
		var updated sql.NullTime
		var path, alt, caption, mime sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.PublishedAt, &updated, &a.SeriesID,
			&path, &alt, &caption, &mime, &a.Views); err != nil {
			return nil, err
		}
		if updated.Valid {
			a.UpdatedAt = updated.Time
		}
		if path.Valid && path.String != "" {
			a.FeaturedImage = &content.Media{
				Path:     path.String,
				Alt:      alt.String,
				Caption:  caption.String,
				MIMEType: mime.String,
				Owner:    content.Owner{Kind: content.OwnerArticle, ID: a.ID},
				Role:     content.RoleFeaturedImage,
			}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
