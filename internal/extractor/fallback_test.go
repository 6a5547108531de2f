package extractor

import (
	"strings"
	"testing"
	"time"

	"resume-matcher/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFallbackName(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		filename string
		want     string
	}{
		{"prefix stripped", "Resume: john o'neil\njohn@x.com", "r.pdf", "John O'Neil"},
		{"contact details removed", "Jane Smith jane@x.com +1 555-123-4567\nSkills", "r.pdf", "Jane Smith"},
		{"skips lines with punctuation", "\n\nAcme, Inc. Engineer\nmary-ann lee\n", "r.pdf", "Mary-Ann Lee"},
		{"word boundary on prefix", "Cvetan Petrov", "r.pdf", "Cvetan Petrov"},
		{"single word rejected", "Jane\nSUMMARY OF 10 YEARS", "john_doe-cv.pdf", "John_Doe-Cv"},
		{"too many words", "one two three four five six seven", "alex kim.docx", "Alex Kim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackName(tt.text, tt.filename))
		})
	}
}

func TestFallbackName_OnlyFirstTenLines(t *testing.T) {
	text := strings.Repeat("x1\n\n", 10) + "Real Name"
	assert.Equal(t, "Cv", FallbackName(text, "cv.pdf"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Hello World", TitleCase("hELLO wORLD"))
	assert.Equal(t, "J.R. Smith", TitleCase("j.r. smith"))
	assert.Equal(t, "", TitleCase(""))
}

func TestFallbackEmail(t *testing.T) {
	assert.Equal(t, "a.b+c@mail.example.org", FallbackEmail("contact: a.b+c@mail.example.org, or call"))
	assert.Equal(t, models.NotFound, FallbackEmail("no address @ here"))
}

func TestFallbackSkills(t *testing.T) {
	got := FallbackSkills("Go, Python; Docker | AWS • Terraform\nSQL,,")
	assert.Equal(t, []string{"Go", "Python", "Docker", "AWS", "Terraform", "SQL"}, got)
	assert.Empty(t, FallbackSkills("  "))
}

func TestExperienceYears(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"month range", "Jan 2020 - Dec 2021", 2.0},
		{"open range", "2019 - Present", 5.0},
		{"current", "Acme Corp 2022 to current", 2.0},
		{"missing end", "Since 2021 -", 3.0},
		{"year range", "Acme 2018 to 2020", 2.0},
		{"partial years", "Mar 2021 – Present", 2.8},
		{"several ranges", "Jan 2020 - Dec 2020, Jan 2021 - Jun 2021", 1.5},
		{"concatenated text", "Engineer2019 - 2021Developer", 2.0},
		{"no space after month", "Jan2019 - Jan2020", 1.1},
		{"case insensitive", "JAN 2020 TO DEC 2020", 1.0},
		{"implausible start", "1850 - 1860", 0},
		{"reversed range", "2022 - 2020", 0},
		{"no ranges", "Built things with Go", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExperienceYears(tt.text, now), 1e-9)
		})
	}
}
