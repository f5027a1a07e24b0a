// Package pgvector serves similarity search from Postgres with the pgvector extension.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

// Querier is the subset of a pgx pool or connection the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const findSimilarSQL = `
SELECT upc, name, brand, category, ingredients, allergens, traces, certifications, has_nutrition,
       1 - (embedding <=> $1::vector) AS similarity
FROM products
WHERE embedding IS NOT NULL
  AND upc <> $2
  AND ($3 = '' OR category = $3)
  AND 1 - (embedding <=> $1::vector) >= $4
ORDER BY embedding <=> $1::vector
LIMIT $5`

const upsertSQL = `
INSERT INTO products (upc, name, brand, category, ingredients, allergens, traces, certifications, has_nutrition, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector, now())
ON CONFLICT (upc) DO UPDATE SET
  name = EXCLUDED.name,
  brand = EXCLUDED.brand,
  category = EXCLUDED.category,
  ingredients = EXCLUDED.ingredients,
  allergens = EXCLUDED.allergens,
  traces = EXCLUDED.traces,
  certifications = EXCLUDED.certifications,
  has_nutrition = EXCLUDED.has_nutrition,
  embedding = EXCLUDED.embedding,
  updated_at = now()`

// Store implements domain.SimilaritySearch over a products table.
type Store struct {
	db  Querier
	log *logger.Logger
}

// NewStore creates a store over db
func NewStore(db Querier, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{db: db, log: log.With("service", "PgvectorStore")}
}

// EnsureSchema creates the extension, table and HNSW index when missing.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("pgvector: dimensions must be positive, got %d", dimensions)
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
  upc            text PRIMARY KEY,
  name           text NOT NULL DEFAULT '',
  brand          text NOT NULL DEFAULT '',
  category       text NOT NULL DEFAULT '',
  ingredients    text[] NOT NULL DEFAULT '{}',
  allergens      text[] NOT NULL DEFAULT '{}',
  traces         text[] NOT NULL DEFAULT '{}',
  certifications text[] NOT NULL DEFAULT '{}',
  has_nutrition  boolean NOT NULL DEFAULT false,
  embedding      vector(%d),
  updated_at     timestamptz NOT NULL DEFAULT now()
)`, dimensions),
		`CREATE INDEX IF NOT EXISTS products_embedding_idx ON products USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: ensure schema: %w", err)
		}
	}
	return nil
}

// FindSimilar runs a cosine-distance query. Failures are reported as
// ErrSimilarityUnavailable; callers degrade to an empty list.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, query domain.SimilarityQuery) ([]domain.SimilarProduct, error) {
	if len(vector) == 0 {
		return []domain.SimilarProduct{}, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(ctx, findSimilarSQL,
		pgv.NewVector(vector), query.ExcludeUPC, query.Category, query.Threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSimilarityUnavailable, err)
	}
	defer rows.Close()

	results := make([]domain.SimilarProduct, 0, limit)
	for rows.Next() {
		var sp domain.SimilarProduct
		p := &sp.Product
		if err := rows.Scan(&p.UPC, &p.Name, &p.Brand, &p.Category, &p.Ingredients, &p.Allergens,
			&p.Traces, &p.Certifications, &p.HasNutrition, &sp.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrSimilarityUnavailable, err)
		}
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSimilarityUnavailable, err)
	}

	s.log.Debug("similarity query finished", "excluded_upc", query.ExcludeUPC, "results", len(results))
	return results, nil
}

// Index upserts product with its embedding.
func (s *Store) Index(ctx context.Context, product *domain.Product) error {
	if product == nil || product.UPC == "" || len(product.Embedding) == 0 {
		return fmt.Errorf("%w: product with upc and embedding required", domain.ErrInvalidRequest)
	}
	_, err := s.db.Exec(ctx, upsertSQL,
		product.UPC, product.Name, product.Brand, product.Category,
		nonNil(product.Ingredients), nonNil(product.Allergens), nonNil(product.Traces), nonNil(product.Certifications),
		product.HasNutrition, pgv.NewVector(product.Embedding))
	if err != nil {
		return fmt.Errorf("pgvector: index %s: %w", product.UPC, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
