// Package matcher runs the build and query sides of resume/job matching over
// one embedder and one vector store.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"resume-matcher/internal/chunker"
	"resume-matcher/internal/config"
	"resume-matcher/internal/embedding"
	"resume-matcher/internal/extractor"
	"resume-matcher/internal/helper"
	"resume-matcher/internal/models"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/sections"
	"resume-matcher/internal/vectorindex"

	"github.com/rs/zerolog/log"
)

var ErrWrongKind = errors.New("pipeline indexes a different document kind")

// CandidateSink receives the fields extracted during a resume build
type CandidateSink interface {
	SaveCandidates(ctx context.Context, fields []models.ExtractedFields, runID string) error
}

// BuildReport summarises one ingestion run
type BuildReport struct {
	RunID      string                   `json:"run_id"`
	Kind       models.Kind              `json:"kind"`
	Documents  int                      `json:"documents"`
	Indexed    int                      `json:"indexed"`
	Chunks     int                      `json:"chunks"`
	Skipped    []string                 `json:"skipped,omitempty"`
	Failed     []Failure                `json:"failed,omitempty"`
	Candidates []models.ExtractedFields `json:"candidates,omitempty"`
	Jobs       []models.JobMetadata     `json:"jobs,omitempty"`
	Duration   time.Duration            `json:"duration"`
}

// Failure names a document that could not be indexed and why
type Failure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// fail records a per-document failure. Cancellation is returned so the
// batch stops; any other error only drops the document.
func (r *BuildReport) fail(ctx context.Context, doc models.Document, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	log.Warn().Err(err).Str("file", doc.Filename).Msg("Failed to index document, skipping")
	r.Failed = append(r.Failed, Failure{Filename: doc.Filename, Reason: err.Error()})
	return nil
}

// Pipeline owns the store for one document kind. Ingestion takes the write
// lock; matches share the read lock.
type Pipeline struct {
	mu        sync.RWMutex
	kind      models.Kind
	embedder  embedding.Embedder
	store     vectorindex.Store
	segmenter *sections.Segmenter
	extractor *extractor.Service
	sink      CandidateSink

	chunkSize       int
	chunkOverlap    int
	sentenceWindow  int
	sentenceOverlap int
	topK            int
}

type Option func(*Pipeline)

func WithExtractor(s *extractor.Service) Option {
	return func(p *Pipeline) { p.extractor = s }
}

func WithSegmenter(s *sections.Segmenter) Option {
	return func(p *Pipeline) { p.segmenter = s }
}

func WithCandidateSink(s CandidateSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithRAG applies chunking and top-k settings
func WithRAG(cfg config.RAGConfig) Option {
	return func(p *Pipeline) {
		p.chunkSize, p.chunkOverlap = cfg.ChunkSize, cfg.ChunkOverlap
		p.sentenceWindow, p.sentenceOverlap = cfg.SentenceWindow, cfg.SentenceOverlap
		if cfg.TopK > 0 {
			p.topK = cfg.TopK
		}
	}
}

func New(kind models.Kind, embedder embedding.Embedder, store vectorindex.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		kind:            kind,
		embedder:        embedder,
		store:           store,
		segmenter:       sections.Default(),
		extractor:       extractor.NewService(nil),
		chunkSize:       config.DefaultChunkSize,
		chunkOverlap:    config.DefaultChunkOverlap,
		sentenceWindow:  config.DefaultSentenceWindow,
		sentenceOverlap: config.DefaultSentenceOverlap,
		topK:            config.DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Kind() models.Kind { return p.kind }

// Reset empties the store when it supports it
func (p *Pipeline) Reset(ctx context.Context) error {
	r, ok := p.store.(vectorindex.Resetter)
	if !ok {
		return fmt.Errorf("store %T cannot be reset", p.store)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Reset(ctx)
}

func (p *Pipeline) newReport(docs int) *BuildReport {
	runID, err := helper.GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("Using timestamp as run id")
		runID = time.Now().UTC().Format("20060102T150405.000000000")
	}
	return &BuildReport{RunID: runID, Kind: p.kind, Documents: docs}
}

// Analyze segments and extracts one resume
func (p *Pipeline) Analyze(ctx context.Context, doc models.Document) (models.ExtractedFields, models.SectionMap) {
	secs := p.segmenter.Split(parser.CleanText(doc.RawText))
	return p.extractor.Extract(ctx, doc, secs), secs
}

// CombinedText is the resume text that gets indexed: the skills joined by
// commas followed by the experience sections.
func CombinedText(fields models.ExtractedFields, secs models.SectionMap) string {
	skills := strings.Join(fields.Skills, ", ")
	return strings.TrimSpace(skills + " " + sections.Combine(secs, sections.ExperienceHeaders))
}

// IngestResumes extracts, chunks, embeds and indexes each resume in order
func (p *Pipeline) IngestResumes(ctx context.Context, docs []models.Document) (*BuildReport, error) {
	if p.kind != models.KindResume {
		return nil, fmt.Errorf("%w: want %s", ErrWrongKind, p.kind)
	}
	start := time.Now()
	report := p.newReport(len(docs))

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if parser.CleanText(doc.RawText) == "" {
			log.Info().Str("file", doc.Filename).Msg("Skipping empty document")
			report.Skipped = append(report.Skipped, doc.Filename)
			continue
		}
		fields, secs := p.Analyze(ctx, doc)

		combined := CombinedText(fields, secs)
		if combined == "" {
			log.Info().Str("file", doc.Filename).Msg("No skills or experience found, not indexed")
			report.Candidates = append(report.Candidates, fields)
			report.Skipped = append(report.Skipped, doc.Filename)
			continue
		}
		chunks, err := chunker.Split(doc.ID, combined, p.chunkSize, p.chunkOverlap)
		if err != nil {
			return nil, err
		}

		candidate := fields
		n, err := p.indexChunks(ctx, doc, chunks, func(e *models.IndexEntry) { e.Candidate = &candidate })
		if err != nil {
			if err := report.fail(ctx, doc, err); err != nil {
				return nil, err
			}
			continue
		}
		report.Candidates = append(report.Candidates, fields)
		report.Indexed++
		report.Chunks += n
		log.Debug().Msgf("[%d/%d] Indexed %s (%d chunks)", i+1, len(docs), doc.Filename, n)
	}

	if p.sink != nil && len(report.Candidates) > 0 {
		if err := p.sink.SaveCandidates(ctx, report.Candidates, report.RunID); err != nil {
			return nil, err
		}
	}
	report.Duration = time.Since(start)
	log.Info().Str("run_id", report.RunID).Int("indexed", report.Indexed).Int("chunks", report.Chunks).
		Int("skipped", len(report.Skipped)).Int("failed", len(report.Failed)).Msg("Resume index built")
	return report, nil
}

// IngestJobs indexes job descriptions as sentence windows tagged with the
// header metadata of each posting
func (p *Pipeline) IngestJobs(ctx context.Context, docs []models.Document) (*BuildReport, error) {
	if p.kind != models.KindJob {
		return nil, fmt.Errorf("%w: want %s", ErrWrongKind, p.kind)
	}
	start := time.Now()
	report := p.newReport(len(docs))

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := parser.CleanText(doc.RawText)
		if text == "" {
			log.Info().Str("file", doc.Filename).Msg("Skipping empty document")
			report.Skipped = append(report.Skipped, doc.Filename)
			continue
		}
		meta := parser.ParseJobHeader(doc.RawText, doc.Filename)

		chunks, err := chunker.SplitSentenceWindows(doc.ID, text, p.sentenceWindow, p.sentenceOverlap)
		if err != nil {
			return nil, err
		}
		n, err := p.indexChunks(ctx, doc, chunks, func(e *models.IndexEntry) { e.Job = &meta })
		if err != nil {
			if err := report.fail(ctx, doc, err); err != nil {
				return nil, err
			}
			continue
		}
		report.Jobs = append(report.Jobs, meta)
		report.Indexed++
		report.Chunks += n
		log.Debug().Msgf("[%d/%d] Indexed %s (%d chunks)", i+1, len(docs), doc.Filename, n)
	}

	report.Duration = time.Since(start)
	log.Info().Str("run_id", report.RunID).Int("indexed", report.Indexed).Int("chunks", report.Chunks).
		Int("skipped", len(report.Skipped)).Int("failed", len(report.Failed)).Msg("Job index built")
	return report, nil
}

// indexChunks embeds the chunks of one document and appends them in a single Add
func (p *Pipeline) indexChunks(ctx context.Context, doc models.Document, chunks []models.Chunk, tag func(*models.IndexEntry)) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	entries := make([]models.IndexEntry, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		entries[i] = models.IndexEntry{
			Kind:       p.kind,
			SourceID:   c.SourceID,
			Filename:   doc.Filename,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
		}
		tag(&entries[i])
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %s: %w", doc.Filename, err)
	}
	if err := p.store.Add(ctx, vectors, entries); err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", doc.Filename, err)
	}
	return len(chunks), nil
}

// Match embeds queryText and returns the closest indexed chunks, best first.
// A blank query matches nothing. topK <= 0 uses the configured default.
func (p *Pipeline) Match(ctx context.Context, queryText string, topK int) ([]models.MatchResult, error) {
	text := parser.CleanText(queryText)
	if text == "" {
		return []models.MatchResult{}, nil
	}
	if topK <= 0 {
		topK = p.topK
	}

	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	p.mu.RLock()
	hits, err := p.store.Search(ctx, vec, topK)
	p.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]models.MatchResult, 0, len(hits))
	for _, h := range hits {
		if h.Entry == nil {
			continue
		}
		results = append(results, models.MatchResult{
			SimilarityScore: h.Score,
			Position:        h.Position,
			Kind:            h.Entry.Kind,
			SourceID:        h.Entry.SourceID,
			Filename:        h.Entry.Filename,
			Text:            h.Entry.Text,
			Candidate:       h.Entry.Candidate,
			Job:             h.Entry.Job,
		})
	}
	return results, nil
}

// MatchProfile queries with the same combined text a resume would be indexed
// under. Resumes without skills or experience fall back to their full text.
func (p *Pipeline) MatchProfile(ctx context.Context, doc models.Document, topK int) ([]models.MatchResult, error) {
	fields, secs := p.Analyze(ctx, doc)
	query := CombinedText(fields, secs)
	if query == "" {
		query = doc.RawText
	}
	return p.Match(ctx, query, topK)
}

// Count reports how many chunks are indexed
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Count(ctx)
}

// Persist saves the store when it keeps state outside the process
func (p *Pipeline) Persist(ctx context.Context) error {
	ps, ok := p.store.(vectorindex.Persister)
	if !ok {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := ps.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}

// Close releases the store. The embedder belongs to the caller.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Close()
}
