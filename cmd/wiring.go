package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"resume-matcher/internal/chromemdb"
	"resume-matcher/internal/config"
	"resume-matcher/internal/db"
	"resume-matcher/internal/embedding"
	"resume-matcher/internal/extractor"
	"resume-matcher/internal/helper"
	"resume-matcher/internal/llmservice"
	"resume-matcher/internal/matcher"
	"resume-matcher/internal/models"
	"resume-matcher/internal/rag"
	"resume-matcher/internal/vectorindex"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

// app holds the collaborators shared by every pipeline of one command
type app struct {
	cfg      *config.Config
	embedder embedding.Embedder
	bunDB    *bun.DB
	closers  []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := embedding.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a := &app{cfg: cfg, embedder: embedder}
	if c, ok := embedder.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}
}

func (a *app) database(ctx context.Context) (*bun.DB, error) {
	if a.bunDB != nil {
		return a.bunDB, nil
	}
	bdb, err := db.Open(ctx, a.cfg.Database, a.embedder.Dimension())
	if err != nil {
		return nil, err
	}
	a.bunDB = bdb
	return bdb, nil
}

func (a *app) indexName(kind models.Kind) string {
	if kind == models.KindJob {
		return a.cfg.Index.JobName
	}
	return a.cfg.Index.ResumeName
}

// openStore opens the configured backend for kind
func (a *app) openStore(ctx context.Context, kind models.Kind) (vectorindex.Store, error) {
	name := a.indexName(kind)
	dim := a.embedder.Dimension()

	switch a.cfg.Index.Backend {
	case config.BackendFlat:
		if err := helper.CreateFolder(a.cfg.Index.Dir); err != nil {
			return nil, err
		}
		return vectorindex.OpenFlat(filepath.Join(a.cfg.Index.Dir, name+".idx"), dim)
	case config.BackendChromem:
		if err := helper.CreateFolder(a.cfg.Index.Dir); err != nil {
			return nil, err
		}
		return chromemdb.NewVectorDBManager(a.cfg.Index, name, dim)
	case config.BackendPostgres:
		bdb, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewStore(bdb, name, dim), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", a.cfg.Index.Backend)
	}
}

// fieldExtractor returns the LLM extractor, or nil when extraction runs on fallbacks only
func (a *app) fieldExtractor() (extractor.FieldExtractor, error) {
	llm, err := llmservice.New(&a.cfg.ExtractLLM)
	if errors.Is(err, llmservice.ErrDisabled) {
		log.Info().Msg("LLM extraction disabled, using fallback extraction")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return extractor.NewLLMExtractor(llm), nil
}

func (a *app) pipeline(ctx context.Context, kind models.Kind) (*matcher.Pipeline, error) {
	store, err := a.openStore(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", kind, err)
	}

	opts := []matcher.Option{matcher.WithRAG(a.cfg.RAG)}
	if kind == models.KindResume {
		fe, err := a.fieldExtractor()
		if err != nil {
			store.Close()
			return nil, err
		}
		if fe != nil {
			opts = append(opts, matcher.WithExtractor(extractor.NewService(fe)))
		}
		if a.bunDB != nil {
			opts = append(opts, matcher.WithCandidateSink(db.NewCandidateStore(a.bunDB)))
		}
	}
	return matcher.New(kind, a.embedder, store, opts...), nil
}

// chat returns the analysis client built from the chat llm config
func (a *app) chat() (*rag.RAG, error) {
	llm, err := llmservice.New(&a.cfg.ChatLLM)
	if err != nil {
		return nil, fmt.Errorf("chat llm unavailable: %w", err)
	}
	return rag.NewRAG(llm, a.cfg.ChatLLM), nil
}

func parseKind(s string) (models.Kind, error) {
	switch s {
	case "resumes", "resume":
		return models.KindResume, nil
	case "jobs", "job":
		return models.KindJob, nil
	}
	return "", fmt.Errorf("unknown document kind %q, want resumes or jobs", s)
}
