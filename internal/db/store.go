package db

import (
	"context"
	"database/sql"
	"fmt"

	"resume-matcher/internal/models"
	"resume-matcher/internal/vectorindex"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

type IndexRecord struct {
	bun.BaseModel `bun:"table:index_records,alias:r"`
	ID            int64             `bun:"id,pk,autoincrement"`
	Collection    string            `bun:"collection,notnull"`
	Position      int               `bun:"position,notnull"`
	Entry         models.IndexEntry `bun:"entry,type:jsonb,notnull"`
	Embedding     pgvector.Vector   `bun:"embedding,notnull"`
	Score         float32           `bun:"score,scanonly"`
}

// Store is a pgvector-backed index. Several collections share one table.
type Store struct {
	db         *bun.DB
	collection string
	dim        int
	owned      bool
}

// NewStore uses db for the named collection. Close leaves db open.
func NewStore(db *bun.DB, collection string, dim int) *Store {
	return &Store{db: db, collection: collection, dim: dim}
}

// OpenStore is NewStore over a connection the store owns
func OpenStore(db *bun.DB, collection string, dim int) *Store {
	s := NewStore(db, collection, dim)
	s.owned = true
	return s
}

// DB exposes the connection for callers sharing it, such as the candidates table
func (s *Store) DB() *bun.DB { return s.db }

func (s *Store) Add(ctx context.Context, vectors [][]float32, entries []models.IndexEntry) error {
	if err := vectorindex.ValidateBatch(vectors, entries, s.dim); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// serialise writers so positions are assigned without gaps
		if _, err := tx.ExecContext(ctx, "LOCK TABLE index_records IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("failed to lock index: %w", err)
		}
		start, err := tx.NewSelect().Model((*IndexRecord)(nil)).Where("collection = ?", s.collection).Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}

		records := newRecords(s.collection, start, vectors, entries)
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert records: %w", err)
		}
		log.Debug().Str("collection", s.collection).Int("start", start).Int("count", len(records)).Msg("Stored index records")
		return nil
	})
}

// newRecords numbers a batch from start
func newRecords(collection string, start int, vectors [][]float32, entries []models.IndexEntry) []IndexRecord {
	records := make([]IndexRecord, len(vectors))
	for i := range vectors {
		records[i] = IndexRecord{
			Collection: collection,
			Position:   start + i,
			Entry:      entries[i],
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}
	return records
}

func (s *Store) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", vectorindex.ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 {
		return []models.Hit{}, nil
	}

	q := pgvector.NewVector(query)
	var records []IndexRecord
	// <#> is the negated inner product
	err := s.db.NewSelect().
		Model(&records).
		Column("position", "entry").
		ColumnExpr("(embedding <#> ?) * -1 AS score", q).
		Where("collection = ?", s.collection).
		OrderExpr("embedding <#> ?", q).
		Order("position ASC").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	hits := make([]models.Hit, len(records))
	for i := range records {
		e := records[i].Entry
		hits[i] = models.Hit{Position: records[i].Position, Score: records[i].Score, Entry: &e}
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*IndexRecord)(nil)).Where("collection = ?", s.collection).Count(ctx)
}

// Reset deletes every record of the collection
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.NewDelete().Model((*IndexRecord)(nil)).Where("collection = ?", s.collection).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
