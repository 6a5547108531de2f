package matcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"resume-matcher/internal/embedding"
	"resume-matcher/internal/models"
	"resume-matcher/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const dim = 384

var resumes = []models.Document{
	{ID: "RES_0", Filename: "alice.txt", RawText: "Alice Moreno\nalice@example.com\nSkills: Go, Kubernetes, PostgreSQL, gRPC\n" +
		"Experience: Backend engineer at Acme Jan 2019 - Dec 2022 building distributed payment services"},
	{ID: "RES_1", Filename: "bob.txt", RawText: "Bob Tanaka\nbob@example.com\nSkills: React, TypeScript, CSS, Figma\n" +
		"Experience: Frontend developer at Pixel 2020 - 2023 designing user interfaces"},
	{ID: "RES_2", Filename: "carla.txt", RawText: "Carla Ruiz\ncarla@example.com\nTechnical Skills: Python, PyTorch, pandas, SQL\n" +
		"Work Experience: Data scientist at Insight Mar 2018 - Present training forecasting models"},
}

var jobs = []models.Document{
	{ID: "backend", Filename: "backend.txt", RawText: "Job Title: Backend Go Engineer\nCompany: Acme\nLocation: Remote\n" +
		"We need Go and Kubernetes experience. You will run PostgreSQL and gRPC services."},
	{ID: "designer", Filename: "designer.txt", RawText: "Position: Product Designer\nCompany: Pixel\nLocation: Berlin\n" +
		"You will design interfaces in Figma. Knowledge of CSS and React helps."},
}

func newResumePipeline(t *testing.T, store vectorindex.Store, opts ...Option) *Pipeline {
	t.Helper()
	return New(models.KindResume, embedding.NewLocalEmbedder(dim, 256), store, opts...)
}

func TestPipeline_ResumeEndToEnd(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))

	report, err := p.IngestResumes(ctx, resumes)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 3, report.Chunks)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Candidates, 3)
	assert.Equal(t, "Alice Moreno", report.Candidates[0].Name)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL", "gRPC"}, report.Candidates[0].Skills)
	assert.Equal(t, 4.0, report.Candidates[0].ExperienceYears)

	for _, doc := range resumes {
		results, err := p.MatchProfile(ctx, doc, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, doc.ID, results[0].SourceID)
		assert.Greater(t, results[0].SimilarityScore, float32(0.95))
		assert.GreaterOrEqual(t, results[0].SimilarityScore, results[1].SimilarityScore)
		assert.GreaterOrEqual(t, results[1].SimilarityScore, results[2].SimilarityScore)
		require.NotNil(t, results[0].Candidate)
		assert.Equal(t, doc.Filename, results[0].Candidate.Filename)
	}
}

func TestPipeline_MatchEdgeCases(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))

	results, err := p.Match(ctx, "Go developer", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = p.IngestResumes(ctx, resumes)
	require.NoError(t, err)

	results, err = p.Match(ctx, " \n\x00 ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = p.Match(ctx, "Go Kubernetes", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestPipeline_SkipsUnindexableResumes(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))

	docs := []models.Document{
		{ID: "RES_0", Filename: "blank.txt", RawText: " \x00 "},
		{ID: "RES_1", Filename: "edu.txt", RawText: "Dana White\nEducation: BSc Physics"},
		resumes[0],
	}
	report, err := p.IngestResumes(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, []string{"blank.txt", "edu.txt"}, report.Skipped)
	assert.Len(t, report.Candidates, 2)

	n, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPipeline_WrongKind(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))

	_, err := p.IngestJobs(ctx, jobs)
	assert.ErrorIs(t, err, ErrWrongKind)

	jp := New(models.KindJob, embedding.NewLocalEmbedder(dim, 256), vectorindex.NewFlat(dim))
	_, err = jp.IngestResumes(ctx, resumes)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestPipeline_Jobs(t *testing.T) {
	ctx := context.Background()
	p := New(models.KindJob, embedding.NewLocalEmbedder(dim, 256), vectorindex.NewFlat(dim))

	report, err := p.IngestJobs(ctx, jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Jobs, 2)
	assert.Equal(t, "Backend Go Engineer", report.Jobs[0].JobTitle)

	results, err := p.Match(ctx, resumes[0].RawText, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "backend", results[0].SourceID)
	assert.Equal(t, models.KindJob, results[0].Kind)
	require.NotNil(t, results[0].Job)
	assert.Equal(t, "Acme", results[0].Job.Company)
	assert.Equal(t, "Remote", results[0].Job.Location)
	assert.Nil(t, results[0].Candidate)
}

func TestPipeline_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resumes.index")

	store, err := vectorindex.OpenFlat(path, dim)
	require.NoError(t, err)
	p := newResumePipeline(t, store)
	_, err = p.IngestResumes(ctx, resumes)
	require.NoError(t, err)
	require.NoError(t, p.Persist(ctx))
	require.NoError(t, p.Close())

	reopened, err := vectorindex.OpenFlat(path, dim)
	require.NoError(t, err)
	p2 := newResumePipeline(t, reopened)

	n, err := p2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := p2.MatchProfile(ctx, resumes[1], 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RES_1", results[0].SourceID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-4)
}

func TestPipeline_Reset(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))
	_, err := p.IngestResumes(ctx, resumes)
	require.NoError(t, err)

	require.NoError(t, p.Reset(ctx))
	n, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPipeline_ConcurrentMatches(t *testing.T) {
	ctx := context.Background()
	p := newResumePipeline(t, vectorindex.NewFlat(dim))
	_, err := p.IngestResumes(ctx, resumes)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(doc models.Document) {
			defer wg.Done()
			if _, err := p.MatchProfile(ctx, doc, 2); err != nil {
				errs <- err
			}
		}(resumes[i%len(resumes)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Add(_ context.Context, vectors [][]float32, entries []models.IndexEntry) error {
	return m.Called(vectors, entries).Error(0)
}

func (m *mockStore) Search(_ context.Context, query []float32, k int) ([]models.Hit, error) {
	args := m.Called(query, k)
	return args.Get(0).([]models.Hit), args.Error(1)
}

func (m *mockStore) Count(context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SaveCandidates(_ context.Context, fields []models.ExtractedFields, runID string) error {
	return m.Called(fields, runID).Error(0)
}

func TestPipeline_SkipsHitsWithoutMetadata(t *testing.T) {
	store := &mockStore{}
	store.On("Search", mock.Anything, 5).Return([]models.Hit{
		{Position: 7, Score: 0.9},
		{Position: 1, Score: 0.5, Entry: &models.IndexEntry{Kind: models.KindResume, SourceID: "RES_1"}},
	}, nil)

	p := newResumePipeline(t, store)
	results, err := p.Match(context.Background(), "go developer", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RES_1", results[0].SourceID)
	assert.Equal(t, 1, results[0].Position)
	store.AssertExpectations(t)
}

// flakyEmbedder fails every batch containing a marker word
type flakyEmbedder struct {
	embedding.Embedder
	marker string
}

func (f *flakyEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, f.marker) {
			return nil, errors.New("model timeout")
		}
	}
	return f.Embedder.EmbedDocuments(ctx, texts)
}

func TestPipeline_EmbedFailureSkipsDocument(t *testing.T) {
	ctx := context.Background()
	emb := &flakyEmbedder{Embedder: embedding.NewLocalEmbedder(dim, 256), marker: "React"}
	store := vectorindex.NewFlat(dim)
	p := New(models.KindResume, emb, store)

	report, err := p.IngestResumes(ctx, resumes)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "bob.txt", report.Failed[0].Filename)
	assert.Contains(t, report.Failed[0].Reason, "model timeout")

	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "Alice Moreno", report.Candidates[0].Name)
	assert.Equal(t, "Carla Ruiz", report.Candidates[1].Name)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := p.MatchProfile(ctx, resumes[2], 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RES_2", results[0].SourceID)
}

func TestPipeline_StoreFailureSkipsJob(t *testing.T) {
	store := &mockStore{}
	store.On("Add", mock.Anything, mock.MatchedBy(func(e []models.IndexEntry) bool {
		return e[0].SourceID == "backend"
	})).Return(errors.New("disk full")).Once()
	store.On("Add", mock.Anything, mock.Anything).Return(nil)

	p := New(models.KindJob, embedding.NewLocalEmbedder(dim, 256), store)
	report, err := p.IngestJobs(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "backend.txt", report.Failed[0].Filename)
	assert.Contains(t, report.Failed[0].Reason, "disk full")
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, "Product Designer", report.Jobs[0].JobTitle)
	store.AssertNumberOfCalls(t, "Add", 2)
}

func TestPipeline_CancelledBuildStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &mockStore{}

	p := newResumePipeline(t, store)
	_, err := p.IngestResumes(ctx, resumes)
	assert.ErrorIs(t, err, context.Canceled)
	store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestPipeline_CandidateSink(t *testing.T) {
	sink := &mockSink{}
	sink.On("SaveCandidates", mock.MatchedBy(func(f []models.ExtractedFields) bool { return len(f) == 3 }), mock.AnythingOfType("string")).Return(nil)

	p := newResumePipeline(t, vectorindex.NewFlat(dim), WithCandidateSink(sink))
	report, err := p.IngestResumes(context.Background(), resumes)
	require.NoError(t, err)

	sink.AssertCalled(t, "SaveCandidates", mock.Anything, report.RunID)
}

func TestCombinedText(t *testing.T) {
	fields := models.ExtractedFields{Skills: []string{"Go", "SQL"}}
	secs := models.SectionMap{"experience": "Acme 2020 - 2021", "projects": "search engine"}
	assert.Equal(t, "Go, SQL Acme 2020 - 2021 search engine", CombinedText(fields, secs))
	assert.Equal(t, "", CombinedText(models.ExtractedFields{}, nil))
}
