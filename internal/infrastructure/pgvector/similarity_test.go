package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarties/backend/internal/domain"
)

// fakeRows is a mock implementation of pgx.Rows over in-memory records
type fakeRows struct {
	records [][]any
	pos     int
	err     error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.records[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	record := r.records[r.pos-1]
	if len(dest) != len(record) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(record))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = record[i].(string)
		case *[]string:
			*d = record[i].([]string)
		case *bool:
			*d = record[i].(bool)
		case *float64:
			*d = record[i].(float64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeQuerier is a mock implementation of Querier
type fakeQuerier struct {
	rows     *fakeRows
	queryErr error
	execErr  error
	queries  []string
	args     [][]any
	execs    []string
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	q.args = append(q.args, arguments)
	return pgconn.NewCommandTag("INSERT 0 1"), q.execErr
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	q.args = append(q.args, args)
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return q.rows, nil
}

func row(upc string, similarity float64) []any {
	return []any{upc, "Product " + upc, "Acme", "spreads", []string{"almonds"}, []string{}, []string{}, []string{"Vegan"}, true, similarity}
}

func TestStore_FindSimilar(t *testing.T) {
	rows := &fakeRows{records: [][]any{row("200", 0.93), row("300", 0.81)}}
	db := &fakeQuerier{rows: rows}
	store := NewStore(db, nil)

	results, err := store.FindSimilar(context.Background(), []float32{0.1, 0.2}, domain.SimilarityQuery{
		Limit: 5, Threshold: 0.7, ExcludeUPC: "100", Category: "spreads",
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "200", results[0].Product.UPC)
	assert.Equal(t, []string{"almonds"}, results[0].Product.Ingredients)
	assert.Equal(t, 0.93, results[0].Similarity)
	assert.True(t, rows.closed)

	require.Len(t, db.args, 1)
	assert.Equal(t, []any{pgv.NewVector([]float32{0.1, 0.2}), "100", "spreads", 0.7, 5}, db.args[0])
	assert.Contains(t, db.queries[0], "<=>")
}

func TestStore_FindSimilarErrors(t *testing.T) {
	ctx := context.Background()
	query := domain.SimilarityQuery{Limit: 5, Threshold: 0.7}

	_, err := NewStore(&fakeQuerier{queryErr: errors.New("connection refused")}, nil).FindSimilar(ctx, []float32{1}, query)
	assert.ErrorIs(t, err, domain.ErrSimilarityUnavailable)

	_, err = NewStore(&fakeQuerier{rows: &fakeRows{err: errors.New("conn closed")}}, nil).FindSimilar(ctx, []float32{1}, query)
	assert.ErrorIs(t, err, domain.ErrSimilarityUnavailable)

	_, err = NewStore(&fakeQuerier{rows: &fakeRows{records: [][]any{{"only-one-column"}}}}, nil).FindSimilar(ctx, []float32{1}, query)
	assert.ErrorIs(t, err, domain.ErrSimilarityUnavailable)
}

func TestStore_FindSimilarWithoutVector(t *testing.T) {
	db := &fakeQuerier{}
	results, err := NewStore(db, nil).FindSimilar(context.Background(), nil, domain.SimilarityQuery{Limit: 5})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, db.queries)
}

func TestStore_Index(t *testing.T) {
	db := &fakeQuerier{}
	store := NewStore(db, nil)

	err := store.Index(context.Background(), &domain.Product{UPC: "200", Name: "Almond Butter", Embedding: []float32{1, 0}})

	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.True(t, strings.Contains(db.execs[0], "ON CONFLICT (upc)"))
	args := db.args[0]
	assert.Equal(t, "200", args[0])
	assert.Equal(t, []string{}, args[4])
	assert.Equal(t, pgv.NewVector([]float32{1, 0}), args[9])

	assert.ErrorIs(t, store.Index(context.Background(), &domain.Product{UPC: "200"}), domain.ErrInvalidRequest)
	assert.ErrorIs(t, store.Index(context.Background(), nil), domain.ErrInvalidRequest)

	db.execErr = errors.New("relation \"products\" does not exist")
	assert.Error(t, store.Index(context.Background(), &domain.Product{UPC: "200", Embedding: []float32{1}}))
}

func TestStore_EnsureSchema(t *testing.T) {
	db := &fakeQuerier{}
	store := NewStore(db, nil)

	require.NoError(t, store.EnsureSchema(context.Background(), 384))
	require.Len(t, db.execs, 4)
	assert.Contains(t, db.execs[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, db.execs[1], "vector(384)")

	assert.Error(t, store.EnsureSchema(context.Background(), 0))

	db.execErr = errors.New("permission denied")
	assert.Error(t, store.EnsureSchema(context.Background(), 384))
}
