package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"resume-matcher/internal/models"
)

const headerLines = 20

var (
	companyRe  = regexp.MustCompile(models.CompanyRegex)
	jobTitleRe = regexp.MustCompile(models.JobTitleRegex)
	locationRe = regexp.MustCompile(models.LocationRegex)
)

// ParseJobHeader reads company, job title and location from the first lines of a
// job description. Missing fields default to Unknown, the title to the file name.
func ParseJobHeader(rawText, filename string) models.JobMetadata {
	meta := models.JobMetadata{
		JobTitle: strings.TrimSuffix(filename, filepath.Ext(filename)),
		Company:  models.Unknown,
		Location: models.Unknown,
	}

	lines := strings.Split(rawText, "\n")
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}
	header := strings.Join(lines, "\n")

	if m := companyRe.FindStringSubmatch(header); m != nil {
		meta.Company = strings.TrimSpace(m[1])
	}
	if m := jobTitleRe.FindStringSubmatch(header); m != nil {
		meta.JobTitle = strings.TrimSpace(m[1])
	}
	if m := locationRe.FindStringSubmatch(header); m != nil {
		meta.Location = strings.TrimSpace(m[1])
	}
	return meta
}
