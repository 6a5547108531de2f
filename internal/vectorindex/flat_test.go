package vectorindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"resume-matcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) models.IndexEntry {
	return models.IndexEntry{Kind: models.KindResume, SourceID: id, Filename: id + ".pdf", Text: "text of " + id}
}

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestFlat_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)
	require.NoError(t, f.Add(ctx,
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}, {1, 0}},
		[]models.IndexEntry{entry("a"), entry("b"), entry("c"), entry("d")},
	))

	hits, err := f.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// ties resolve to the lower position
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 3, hits[1].Position)
	assert.Equal(t, 2, hits[2].Position)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.6, hits[2].Score, 1e-6)
	assert.Equal(t, "a", hits[0].Entry.SourceID)
	assert.Equal(t, "d", hits[1].Entry.SourceID)
}

func TestFlat_SearchEdgeCases(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)

	hits, err := f.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, f.Add(ctx, [][]float32{{1, 0}}, []models.IndexEntry{entry("a")}))

	hits, err = f.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = f.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlat_AddRejectsBadBatches(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)

	err := f.Add(ctx, [][]float32{{1, 0}, {0, 1}}, []models.IndexEntry{entry("a")})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	err = f.Add(ctx, [][]float32{{1, 0}, {0, 1, 0}}, []models.IndexEntry{entry("a"), entry("b")})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFlat_AddCopiesInput(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)
	v := []float32{1, 0}
	e := []models.IndexEntry{entry("a")}
	require.NoError(t, f.Add(ctx, [][]float32{v}, e))

	v[0] = -1
	e[0].SourceID = "changed"

	hits, err := f.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "a", hits[0].Entry.SourceID)
}

func TestFlat_PersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx", "resumes.index")
	const dim = 8

	f, err := OpenFlat(path, dim)
	require.NoError(t, err)
	var vecs [][]float32
	var entries []models.IndexEntry
	for i := 0; i < dim; i++ {
		vecs = append(vecs, unit(dim, i))
		entries = append(entries, entry(string(rune('a'+i))))
	}
	require.NoError(t, f.Add(ctx, vecs, entries))
	require.NoError(t, f.Persist(ctx))

	loaded, err := OpenFlat(path, dim)
	require.NoError(t, err)
	n, err := loaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, dim, n)

	for j := 0; j < dim; j++ {
		hits, err := loaded.Search(ctx, unit(dim, j), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, j, hits[0].Position)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Equal(t, entries[j].SourceID, hits[0].Entry.SourceID)
	}
}

func TestOpenFlat_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.index")
	require.NoError(t, NewFlat(4).Save(path))

	_, err := OpenFlat(path, 8)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLoadFlat_ShortMetadata(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "x.index")
	f := NewFlat(2)
	require.NoError(t, f.Add(ctx,
		[][]float32{{1, 0}, {0, 1}},
		[]models.IndexEntry{entry("a"), entry("b")},
	))
	require.NoError(t, f.Save(path))

	short, err := json.Marshal([]models.IndexEntry{entry("a")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+metaSuffix, short, 0o644))

	loaded, err := LoadFlat(path)
	require.NoError(t, err)
	hits, err := loaded.Search(ctx, []float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Position)
	assert.Nil(t, hits[0].Entry)
	assert.NotNil(t, hits[1].Entry)
}

func TestLoadFlat_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.index")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err := LoadFlat(bad)
	assert.Error(t, err)

	noMeta := filepath.Join(dir, "nometa.index")
	require.NoError(t, NewFlat(2).Save(noMeta))
	require.NoError(t, os.Remove(noMeta+metaSuffix))
	_, err = LoadFlat(noMeta)
	assert.Error(t, err)
}

func writeHeader(t *testing.T, path string, dim, count uint32, payload int) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(flatMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint32{flatVersion, dim, count}))
	buf.Write(make([]byte, payload))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(path+metaSuffix, []byte("[]"), 0o644))
}

func TestLoadFlat_CorruptHeader(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		dim     uint32
		count   uint32
		payload int
	}{
		{"huge count", 4, 0x7fffffff, 0},
		{"truncated vectors", 4, 3, 4 * 4 * 2},
		{"trailing bytes", 2, 1, 4*2 + 1},
		{"zero dimension", 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".index")
			writeHeader(t, path, tt.dim, tt.count, tt.payload)
			_, err := LoadFlat(path)
			assert.Error(t, err)
		})
	}

	ok := filepath.Join(dir, "ok.index")
	writeHeader(t, ok, 2, 1, 4*2)
	f, err := LoadFlat(ok)
	require.NoError(t, err)
	n, err := f.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadFlat_LongMetadata(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "x.index")
	f := NewFlat(2)
	require.NoError(t, f.Add(ctx, [][]float32{{1, 0}}, []models.IndexEntry{entry("a")}))
	require.NoError(t, f.Save(path))

	long, err := json.Marshal([]models.IndexEntry{entry("a"), entry("b"), entry("c")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+metaSuffix, long, 0o644))

	loaded, err := LoadFlat(path)
	require.NoError(t, err)
	n, err := loaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := loaded.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].Entry)
	assert.Equal(t, "a", hits[0].Entry.SourceID)
}

func TestPersist_WithoutPath(t *testing.T) {
	assert.Error(t, NewFlat(2).Persist(context.Background()))
}

func TestSortHits(t *testing.T) {
	hits := []models.Hit{{Position: 2, Score: 0.5}, {Position: 0, Score: 0.5}, {Position: 1, Score: 0.9}}
	SortHits(hits)
	assert.Equal(t, []int{1, 0, 2}, []int{hits[0].Position, hits[1].Position, hits[2].Position})
}

func TestFlat_Reset(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)
	require.NoError(t, f.Add(ctx, [][]float32{{1, 0}}, []models.IndexEntry{entry("a")}))
	require.NoError(t, f.Reset(ctx))

	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, f.Add(ctx, [][]float32{{0, 1}}, []models.IndexEntry{entry("b")}))
	hits, err := f.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, hits[0].Position)
}
