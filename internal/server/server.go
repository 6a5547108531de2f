// Package server exposes matching over HTTP. Clients upload one document and
// get back the closest indexed chunks of the other kind.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"resume-matcher/internal/config"
	"resume-matcher/internal/models"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// Matcher is the read side of a matcher.Pipeline
type Matcher interface {
	Match(ctx context.Context, queryText string, topK int) ([]models.MatchResult, error)
	MatchProfile(ctx context.Context, doc models.Document, topK int) ([]models.MatchResult, error)
	Count(ctx context.Context) (int, error)
}

// Analyzer summarises job matches
type Analyzer interface {
	AnalyzeTop(ctx context.Context, matches []models.MatchResult, n int) []rag.Analysis
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type MatchResponse struct {
	Filename string               `json:"filename"`
	TopK     int                  `json:"top_k"`
	Results  []models.MatchResult `json:"results"`
	Analyses []rag.Analysis       `json:"analyses,omitempty"`
}

type Server struct {
	app      *fiber.App
	addr     string
	maxBytes int64
	jobs     Matcher
	resumes  Matcher
	analyzer Analyzer
}

type Option func(*Server)

// WithAnalyzer enables the analyze query parameter on job matches
func WithAnalyzer(a Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// New registers the routes. Either matcher may be nil when that index has not
// been built; its endpoint then answers 503.
func New(cfg config.ServerConfig, jobs, resumes Matcher, opts ...Option) *Server {
	s := &Server{
		addr:     cfg.Addr,
		maxBytes: int64(cfg.UploadLimitMB) << 20,
		jobs:     jobs,
		resumes:  resumes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             int(s.maxBytes) + 1<<20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.app.Get("/health", s.Health)
	api := s.app.Group("/api")
	m := api.Group("/match")
	m.Post("/jobs", s.MatchJobs)
	m.Post("/resumes", s.MatchResumes)
	return s
}

func (s *Server) App() *fiber.App { return s.app }

// Listen blocks until the server stops
func (s *Server) Listen() error {
	log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"jobs":    count(c.UserContext(), s.jobs),
		"resumes": count(c.UserContext(), s.resumes),
	})
}

func count(ctx context.Context, m Matcher) int {
	if m == nil {
		return 0
	}
	n, err := m.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count index")
		return 0
	}
	return n
}

// MatchJobs takes an uploaded resume and ranks indexed job descriptions
func (s *Server) MatchJobs(c *fiber.Ctx) error {
	if s.jobs == nil {
		return Error(c, fiber.StatusServiceUnavailable, "job index is not loaded")
	}
	doc, topK, err := s.readRequest(c)
	if err != nil {
		return err
	}

	results, err := s.jobs.MatchProfile(c.UserContext(), doc, topK)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, fmt.Sprintf("match failed: %v", err))
	}
	resp := MatchResponse{Filename: doc.Filename, TopK: topK, Results: results}
	if s.analyzer != nil {
		if n := c.QueryInt("analyze", 0); n > 0 {
			resp.Analyses = s.analyzer.AnalyzeTop(c.UserContext(), results, n)
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// MatchResumes takes an uploaded job description and ranks indexed resumes
func (s *Server) MatchResumes(c *fiber.Ctx) error {
	if s.resumes == nil {
		return Error(c, fiber.StatusServiceUnavailable, "resume index is not loaded")
	}
	doc, topK, err := s.readRequest(c)
	if err != nil {
		return err
	}

	results, err := s.resumes.Match(c.UserContext(), doc.RawText, topK)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, fmt.Sprintf("match failed: %v", err))
	}
	return c.Status(fiber.StatusOK).JSON(MatchResponse{Filename: doc.Filename, TopK: topK, Results: results})
}

// readRequest reads the multipart file and top_k. Errors are *fiber.Error.
func (s *Server) readRequest(c *fiber.Ctx) (models.Document, int, error) {
	topK := 0
	if v := c.Query("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return models.Document{}, 0, fiber.NewError(fiber.StatusBadRequest, "top_k must be a non-negative integer")
		}
		topK = n
	}

	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		return models.Document{}, 0, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return models.Document{}, 0, fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return models.Document{}, 0, fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}
	if int64(len(data)) > s.maxBytes {
		return models.Document{}, 0, fiber.NewError(fiber.StatusRequestEntityTooLarge, "file exceeds upload limit")
	}

	raw, err := parser.ReadUpload(fh.Filename, data)
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return models.Document{}, 0, fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, parser.ErrEmptyDocument):
		return models.Document{}, 0, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return models.Document{}, 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to read document: %v", err))
	}
	return models.Document{ID: "upload", Filename: fh.Filename, RawText: raw}, topK, nil
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Message: message})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, fe.Message)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return Error(c, fiber.StatusInternalServerError, http.StatusText(fiber.StatusInternalServerError))
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
			return herr
		}
	}
	log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("Request")
	return nil
}
