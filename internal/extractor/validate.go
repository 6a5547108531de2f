package extractor

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"resume-matcher/internal/models"
)

const MaxExperienceYears = 40

var (
	codeFenceRe = regexp.MustCompile(models.CodeFenceRegex)
	thinkRe     = regexp.MustCompile(models.ThinkTag)
)

// ValidateEmail keeps the first well-formed address in s
func ValidateEmail(s string) string {
	return FallbackEmail(s)
}

// CleanSkills trims punctuation from each skill and drops blanks and repeats.
// The first spelling of a repeated skill is kept.
func CleanSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		s = strings.TrimSpace(strings.Trim(s, ",.;:"))
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ValidateExperience converts v to years in [0, 40]. Anything that is not a
// number or a numeric string is 0.
func ValidateExperience(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(math.Max(f, 0), MaxExperienceYears)
}

// CleanRawOutput strips reasoning blocks and code fences from a model reply and
// decodes the JSON object inside. When the reply is not a JSON object the
// cleaned text is returned under "raw_output" and ok is false.
func CleanRawOutput(raw string) (fields map[string]any, ok bool) {
	cleaned := thinkRe.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(codeFenceRe.ReplaceAllString(cleaned, ""))

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return map[string]any{"raw_output": cleaned}, false
	}
	return fields, true
}
