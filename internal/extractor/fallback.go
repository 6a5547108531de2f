package extractor

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"resume-matcher/internal/models"
)

var (
	emailRe      = regexp.MustCompile(models.EmailRegex)
	looseEmailRe = regexp.MustCompile(models.LooseEmailRegex)
	phoneRe      = regexp.MustCompile(models.PhoneRegex)
	namePrefixRe = regexp.MustCompile(models.NamePrefixRegex)
	nameWordRe   = regexp.MustCompile(models.NameWordRegex)
	yearLetterRe = regexp.MustCompile(models.YearLetterRegex)
	caseRe       = regexp.MustCompile(models.CaseBoundary)
	skillSepRe   = regexp.MustCompile(`[,;|•\n]`)

	dateRangeRe = regexp.MustCompile(`(?i)((?:` + models.MonthPattern + `)?\s*\d{4})\s*(?:-|–|—|to)\s*((?:` +
		models.MonthPattern + `)?\s*\d{4}|Present|Current|Now)?`)
)

const nameScanLines = 10

// FallbackName picks the first short line of plain words near the top of the
// document, or derives a name from the file name.
func FallbackName(text, filename string) string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if seen++; seen > nameScanLines {
			break
		}

		line = looseEmailRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(phoneRe.ReplaceAllString(line, ""))
		line = strings.TrimSpace(namePrefixRe.ReplaceAllString(line, ""))

		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 6 {
			continue
		}
		ok := true
		for _, w := range words {
			if !nameWordRe.MatchString(w) {
				ok = false
				break
			}
		}
		if ok {
			return TitleCase(strings.Join(words, " "))
		}
	}
	return TitleCase(strings.TrimSuffix(filename, filepath.Ext(filename)))
}

// TitleCase upper-cases every letter that follows a non-letter and lower-cases the rest
func TitleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			sb.WriteRune(unicode.ToUpper(r))
		case isLetter:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return sb.String()
}

// FallbackEmail returns the first address found in text
func FallbackEmail(text string) string {
	if m := emailRe.FindString(text); m != "" {
		return m
	}
	return models.NotFound
}

// FallbackSkills splits a skills section into its listed items
func FallbackSkills(skillsText string) []string {
	var out []string
	for _, part := range skillSepRe.Split(skillsText, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ExperienceYears sums the month spans of every date range in text, relative to
// now for open ranges, and returns the total in years rounded to one decimal.
func ExperienceYears(text string, now time.Time) float64 {
	text = yearLetterRe.ReplaceAllString(text, "$1 $2")
	text = caseRe.ReplaceAllString(text, "$1 $2")

	total := 0
	for _, m := range dateRangeRe.FindAllStringSubmatch(text, -1) {
		sy, sm, _, ok := parseMonthYear(m[1], now)
		if !ok {
			continue
		}

		ey, em := now.Year(), now.Month()
		switch end := strings.ToLower(strings.TrimSpace(m[2])); end {
		case "", "present", "current", "now":
		default:
			if y, mon, explicit, ok := parseMonthYear(end, now); ok {
				ey, em = y, mon
				if explicit {
					// the named end month was worked
					em++
				}
			}
		}

		if months := (ey-sy)*12 + int(em) - int(sm); months > 0 {
			total += months
		}
	}
	return math.Round(float64(total)/12*10) / 10
}

// parseMonthYear reads "Mon YYYY" or "YYYY". A bare year means January.
func parseMonthYear(s string, now time.Time) (year int, month time.Month, explicit bool, ok bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, false, false
	}

	month = time.January
	yearField := fields[len(fields)-1]
	if len(fields) == 2 {
		m, found := months[strings.ToLower(fields[0])]
		if !found {
			return 0, 0, false, false
		}
		month, explicit = m, true
	} else if len(fields) > 2 {
		return 0, 0, false, false
	} else if len(yearField) > 4 {
		// "Jan2020" after the month prefix was matched without a space
		m, found := months[strings.ToLower(yearField[:3])]
		if !found {
			return 0, 0, false, false
		}
		month, explicit = m, true
		yearField = yearField[3:]
	}

	year, err := strconv.Atoi(yearField)
	if err != nil || year < 1900 || year > now.Year()+1 {
		return 0, 0, false, false
	}
	return year, month, explicit, true
}
