package vectorindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"resume-matcher/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	flatMagic     = "RMVX"
	flatVersion   = uint32(1)
	flatHeaderLen = len(flatMagic) + 3*4
	metaSuffix    = ".meta.json"
)

// record is one position of the index. entry is nil when the metadata file
// did not cover the position.
type record struct {
	vec   []float32
	entry *models.IndexEntry
}

// Flat keeps every vector in memory and scans them all on search
type Flat struct {
	mu      sync.RWMutex
	dim     int
	path    string
	records []record
}

func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// OpenFlat loads the index saved at path, or starts an empty one that
// Persist will write there.
func OpenFlat(path string, dim int) (*Flat, error) {
	f, err := LoadFlat(path)
	if errors.Is(err, fs.ErrNotExist) {
		f = NewFlat(dim)
		f.path = path
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	if f.dim != dim {
		return nil, fmt.Errorf("%w: index %s has dimension %d, want %d", ErrDimensionMismatch, path, f.dim, dim)
	}
	return f, nil
}

func (f *Flat) Dimension() int { return f.dim }

func (f *Flat) Add(ctx context.Context, vectors [][]float32, entries []models.IndexEntry) error {
	if err := ValidateBatch(vectors, entries, f.dim); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range vectors {
		v := make([]float32, f.dim)
		copy(v, vectors[i])
		e := entries[i]
		f.records = append(f.records, record{vec: v, entry: &e})
	}
	return nil
}

func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.records) == 0 {
		return []models.Hit{}, nil
	}

	hits := make([]models.Hit, len(f.records))
	for i, r := range f.records {
		hits[i] = models.Hit{Position: i, Score: Dot(query, r.vec)}
	}
	SortHits(hits)
	hits = hits[:min(k, len(hits))]

	for i := range hits {
		if e := f.records[hits[i].Position].entry; e != nil {
			entry := *e
			hits[i].Entry = &entry
		}
	}
	return hits, nil
}

func (f *Flat) Count(context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records), nil
}

func (f *Flat) Close() error { return nil }

// Reset drops every record. The saved files are untouched until the next Persist.
func (f *Flat) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	return nil
}

// Persist saves to the path given to OpenFlat
func (f *Flat) Persist(context.Context) error {
	if f.path == "" {
		return errors.New("flat index has no path")
	}
	return f.Save(f.path)
}

// Save writes the vectors to path and the entries to path + ".meta.json"
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index folder: %w", err)
	}
	if err := writeAtomic(path, f.writeVectors); err != nil {
		return fmt.Errorf("failed to write index %s: %w", path, err)
	}
	entries := make([]*models.IndexEntry, len(f.records))
	for i, r := range f.records {
		entries[i] = r.entry
	}
	err := writeAtomic(path+metaSuffix, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(entries)
	})
	if err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", path+metaSuffix, err)
	}
	log.Debug().Str("path", path).Int("vectors", len(f.records)).Msg("Saved flat index")
	return nil
}

func (f *Flat) writeVectors(w io.Writer) error {
	if _, err := io.WriteString(w, flatMagic); err != nil {
		return err
	}
	header := []uint32{flatVersion, uint32(f.dim), uint32(len(f.records))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, r := range f.records {
		if err := binary.Write(w, binary.LittleEndian, r.vec); err != nil {
			return err
		}
	}
	return nil
}

// LoadFlat reads an index written by Save. The header must agree with the
// file size. Metadata of a different length than the vector list still
// loads: uncovered positions have no entry and surplus entries are dropped.
func LoadFlat(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(file)

	magic := make([]byte, len(flatMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != flatMagic {
		return nil, fmt.Errorf("%s is not a vector index", path)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	if header[0] != flatVersion {
		return nil, fmt.Errorf("unsupported index version %d", header[0])
	}
	dim, count := int64(header[1]), int64(header[2])
	if dim == 0 && count > 0 {
		return nil, fmt.Errorf("index %s holds %d vectors of dimension 0", path, count)
	}
	if want := int64(flatHeaderLen) + 4*dim*count; info.Size() != want {
		return nil, fmt.Errorf("index %s is %d bytes, header describes %d", path, info.Size(), want)
	}

	f := &Flat{dim: int(dim), path: path, records: make([]record, count)}
	for i := range f.records {
		v := make([]float32, f.dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		f.records[i].vec = v
	}

	meta, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var entries []*models.IndexEntry
	if err := json.Unmarshal(meta, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if len(entries) != len(f.records) {
		log.Warn().Str("path", path).Int("vectors", len(f.records)).Int("entries", len(entries)).
			Msg("Index metadata does not match the vector list")
	}
	for i := range min(len(entries), len(f.records)) {
		f.records[i].entry = entries[i]
	}
	return f, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
