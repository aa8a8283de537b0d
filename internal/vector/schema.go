package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ArticleClass holds one object per published article.
const ArticleClass = "Article"

// SchemaClient defines the Weaviate schema operations used at startup.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// ArticleProperties mirrors the search record. Exact-match fields use the
// "string" data type.
func ArticleProperties() []*models.Property {
	return []*models.Property{
		{Name: "objectID", DataType: []string{"string"}},
		{Name: "title", DataType: []string{"text"}},
		{Name: "excerpt", DataType: []string{"text"}},
		{Name: "content", DataType: []string{"text"}},
		{Name: "slug", DataType: []string{"string"}},
		{Name: "url", DataType: []string{"string"}},
		{Name: "category", DataType: []string{"string"}},
		{Name: "categoryPath", DataType: []string{"string[]"}},
		{Name: "tags", DataType: []string{"string[]"}},
		{Name: "author", DataType: []string{"string"}},
		{Name: "publishedAt", DataType: []string{"int"}},
		{Name: "featuredImage", DataType: []string{"string"}},
		{Name: "seriesOrder", DataType: []string{"int"}},
		{Name: "status", DataType: []string{"string"}},
	}
}

// EnsureSchema creates the article class, or adds properties missing from an
// existing one.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ArticleClass)
	if err != nil {
		return err
	}

	properties := ArticleProperties()
	if !exists {
		return client.CreateClass(ctx, &models.Class{
			Class:       ArticleClass,
			Description: "A published article",
			Vectorizer:  "none",
			Properties:  properties,
		})
	}

	class, err := client.GetClass(ctx, ArticleClass)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(class.Properties))
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range properties {
		if existing[p.Name] {
			continue
		}
		if err := client.AddProperty(ctx, ArticleClass, p); err != nil {
			return err
		}
	}
	return nil
}
