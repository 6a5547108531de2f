package db

import (
	"context"
	"fmt"
	"time"

	"resume-matcher/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// Candidate is the stored form of the fields extracted from one resume
type Candidate struct {
	bun.BaseModel   `bun:"table:candidates,alias:c"`
	ResumeID        string         `bun:"resume_id,pk"`
	Filename        string         `bun:"filename,notnull"`
	Name            string         `bun:"name"`
	Email           string         `bun:"email"`
	Skills          pq.StringArray `bun:"skills,type:text[]"`
	ExperienceYears float64        `bun:"experience_years"`
	RunID           string         `bun:"run_id"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func candidateFrom(f models.ExtractedFields, runID string) Candidate {
	return Candidate{
		ResumeID:        f.ResumeID,
		Filename:        f.Filename,
		Name:            f.Name,
		Email:           f.Email,
		Skills:          pq.StringArray(f.Skills),
		ExperienceYears: f.ExperienceYears,
		RunID:           runID,
		UpdatedAt:       time.Now(),
	}
}

func (c Candidate) Fields() models.ExtractedFields {
	return models.ExtractedFields{
		ResumeID:        c.ResumeID,
		Filename:        c.Filename,
		Name:            c.Name,
		Email:           c.Email,
		Skills:          []string(c.Skills),
		ExperienceYears: c.ExperienceYears,
	}
}

// SaveCandidates upserts the candidates by resume id
func SaveCandidates(ctx context.Context, db *bun.DB, fields []models.ExtractedFields, runID string) error {
	if len(fields) == 0 {
		return nil
	}
	rows := make([]Candidate, len(fields))
	for i, f := range fields {
		rows[i] = candidateFrom(f, runID)
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (resume_id) DO UPDATE").
		Set("filename = EXCLUDED.filename").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("skills = EXCLUDED.skills").
		Set("experience_years = EXCLUDED.experience_years").
		Set("run_id = EXCLUDED.run_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save candidates: %w", err)
	}
	return nil
}

// ListCandidates returns every stored candidate ordered by resume id
func ListCandidates(ctx context.Context, db *bun.DB) ([]models.ExtractedFields, error) {
	var rows []Candidate
	if err := db.NewSelect().Model(&rows).Order("resume_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]models.ExtractedFields, len(rows))
	for i, r := range rows {
		out[i] = r.Fields()
	}
	return out, nil
}

// CandidateStore saves build output into the candidates table
type CandidateStore struct {
	db *bun.DB
}

func NewCandidateStore(db *bun.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

func (s *CandidateStore) SaveCandidates(ctx context.Context, fields []models.ExtractedFields, runID string) error {
	return SaveCandidates(ctx, s.db, fields, runID)
}
