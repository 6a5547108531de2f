package models

// Kind tells which side of the match an indexed document belongs to
type Kind string

const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
)

// Document is one ingested file. It is not modified after creation.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	RawText  string `json:"raw_text"`
}

// SectionMap maps a lower-cased header label to the text under it
type SectionMap map[string]string

// Get returns the section text or "" when the label was not found
func (s SectionMap) Get(label string) string {
	if s == nil {
		return ""
	}
	return s[label]
}

// ExtractedFields are the validated candidate fields of a resume
type ExtractedFields struct {
	ResumeID        string   `json:"resume_id"`
	Filename        string   `json:"filename"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Skills          []string `json:"skills"`
	ExperienceYears float64  `json:"experience_years"`
	RawOutput       string   `json:"raw_output,omitempty"`
}

// JobMetadata holds the header fields of a job description
type JobMetadata struct {
	JobTitle string `json:"job_title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

// Chunk represents a window of text with a link back to its source
type Chunk struct {
	Text       string `json:"text"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// IndexEntry is the metadata half of an index record. The position is implicit.
type IndexEntry struct {
	Kind       Kind             `json:"kind"`
	SourceID   string           `json:"source_id"`
	Filename   string           `json:"filename"`
	ChunkIndex int              `json:"chunk_index"`
	Text       string           `json:"text"`
	Candidate  *ExtractedFields `json:"candidate,omitempty"`
	Job        *JobMetadata     `json:"job,omitempty"`
}

// Hit is a raw search hit. Entry is nil when no metadata exists for the position.
type Hit struct {
	Position int
	Score    float32
	Entry    *IndexEntry
}

// MatchResult is one ranked answer to a query
type MatchResult struct {
	SimilarityScore float32          `json:"similarity_score"`
	Position        int              `json:"position"`
	Kind            Kind             `json:"kind"`
	SourceID        string           `json:"source_id"`
	Filename        string           `json:"filename"`
	Text            string           `json:"text"`
	Candidate       *ExtractedFields `json:"candidate,omitempty"`
	Job             *JobMetadata     `json:"job,omitempty"`
}
