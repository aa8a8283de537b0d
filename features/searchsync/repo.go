package searchsync

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"devpress/publisher/internal/content"
)

type Repository interface {
	ListPublished(ctx context.Context, now time.Time) ([]content.Article, error)
	ListCategories(ctx context.Context) ([]content.Grouping, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const (
	queryPublished = `SELECT a.id, a.title, a.slug, a.excerpt, a.body, a.status, a.published_at, a.updated_at, COALESCE(u.name, ''), COALESCE(a.series_id, 0), COALESCE(a.series_order, 0), ` +
		`ARRAY(SELECT ac.category_id FROM article_category ac WHERE ac.article_id = a.id ORDER BY ac.category_id), ` +
		`ARRAY(SELECT t.name FROM article_tag atg JOIN tags t ON t.id = atg.tag_id WHERE atg.article_id = a.id ORDER BY t.name), ` +
		`m.path, m.alt, m.caption, m.mime_type ` +
		`FROM articles a ` +
		`LEFT JOIN users u ON u.id = a.author_id ` +
		`LEFT JOIN LATERAL (SELECT path, alt, caption, mime_type FROM media WHERE owner_type = 'article' AND owner_id = a.id AND role = 'featured_image' ORDER BY id LIMIT 1) m ON TRUE ` +
		`WHERE a.status = 'published' AND a.published_at <= $1 ORDER BY a.id`
	queryAllCategories = `SELECT id, name, slug, COALESCE(parent_id, 0) FROM categories ORDER BY id`
)

func (r *PostgresRepo) ListPublished(ctx context.Context, now time.Time) ([]content.Article, error) {
	rows, err := r.db.QueryContext(ctx, queryPublished, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []content.Article
	for rows.Next() {
		var a content.Article
		var status string
		var updated sql.NullTime
		var path, alt, caption, mime sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Body, &status, &a.PublishedAt, &updated,
			&a.AuthorName, &a.SeriesID, &a.SeriesOrder,
			pq.Array(&a.CategoryIDs), pq.Array(&a.TagNames),
			&path, &alt, &caption, &mime); err != nil {
			return nil, err
		}
		a.Status = content.Status(status)
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

func (r *PostgresRepo) ListCategories(ctx context.Context) ([]content.Grouping, error) {
	rows, err := r.db.QueryContext(ctx, queryAllCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []content.Grouping
	for rows.Next() {
		g := content.Grouping{Kind: content.KindCategory}
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.ParentID); err != nil {
			return nil, err
		}
		categories = append(categories, g)
	}
	return categories, rows.Err()
}
