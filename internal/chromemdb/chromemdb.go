package chromemdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"resume-matcher/internal/config"
	"resume-matcher/internal/models"
	"resume-matcher/internal/vectorindex"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

const (
	metaPosition = "position"
	metaEntry    = "entry"
)

var errNoEmbedding = errors.New("documents must carry precomputed embeddings")

// VectorDBManager stores index records in a chromem-go collection. Each record
// keeps its position and entry in the document metadata.
type VectorDBManager struct {
	mu            sync.Mutex
	db            *chromem.DB
	collection    *chromem.Collection
	dim           int
	inMemory      bool
	compress      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens the collection named collectionName. In-memory
// databases are restored from their export file when one exists.
func NewVectorDBManager(cfg config.IndexConfig, collectionName string, dim int) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(filepath.Join(cfg.Dir, "chromem"), cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dim:           dim,
		inMemory:      cfg.InMemory,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		filePath:      filepath.Join(cfg.Dir, collectionName+".chromem"),
	}
	if m.inMemory {
		if err := m.Import(collectionName); err != nil {
			return nil, err
		}
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

// GetOrCreateCollection selects the collection used by later calls
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// CreateDocs adds documents to the collection
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// SearchWithQueryOptions runs a raw similarity query
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

func (m *VectorDBManager) Add(ctx context.Context, vectors [][]float32, entries []models.IndexEntry) error {
	if err := vectorindex.ValidateBatch(vectors, entries, m.dim); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.collection.Count()
	docs := make([]chromem.Document, len(vectors))
	for i := range vectors {
		raw, err := json.Marshal(entries[i])
		if err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
		pos := strconv.Itoa(start + i)
		emb := make([]float32, len(vectors[i]))
		copy(emb, vectors[i])
		docs[i] = chromem.Document{
			ID:        pos,
			Content:   entries[i].Text,
			Metadata:  map[string]string{metaPosition: pos, metaEntry: string(raw)},
			Embedding: emb,
		}
	}
	if err := m.CreateDocs(ctx, docs); err != nil {
		// drop whatever made it in so positions stay contiguous
		for _, d := range docs {
			_ = m.collection.Delete(ctx, nil, nil, d.ID)
		}
		return err
	}
	return nil
}

func (m *VectorDBManager) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", vectorindex.ErrDimensionMismatch, len(query), m.dim)
	}
	n := m.collection.Count()
	if k <= 0 || n == 0 {
		return []models.Hit{}, nil
	}

	// rank the whole collection so ties can be broken by position
	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       n,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.Metadata[metaPosition])
		if err != nil {
			log.Warn().Str("id", r.ID).Msg("Skipping record without position")
			continue
		}
		score := r.Similarity
		if math.IsNaN(float64(score)) {
			score = 0
		}
		hit := models.Hit{Position: pos, Score: score}
		var e models.IndexEntry
		if err := json.Unmarshal([]byte(r.Metadata[metaEntry]), &e); err == nil {
			hit.Entry = &e
		}
		hits = append(hits, hit)
	}
	vectorindex.SortHits(hits)
	return hits[:min(k, len(hits))], nil
}

func (m *VectorDBManager) Count(context.Context) (int, error) {
	return m.collection.Count(), nil
}

func (m *VectorDBManager) Close() error { return nil }

// Persist exports in-memory databases. Persistent ones write on every add.
func (m *VectorDBManager) Persist(ctx context.Context) error {
	if !m.inMemory {
		return nil
	}
	return m.Export(ctx)
}

// Reset replaces the collection with an empty one of the same name
func (m *VectorDBManager) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.collection.Name
	if err := m.DeleteCollection(); err != nil {
		return err
	}
	_, err := m.GetOrCreateCollection(name)
	return err
}

// DeleteCollection drops the collection and everything in it
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Export writes the collection to its gob file
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create index folder: %w", err)
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import restores a collection from its gob file. A missing file is not an error.
func (m *VectorDBManager) Import(collectionName string) error {
	if _, err := os.Stat(m.filePath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	log.Debug().Str("collection", collectionName).Str("file", m.filePath).Msg("Imported collection")
	return nil
}
