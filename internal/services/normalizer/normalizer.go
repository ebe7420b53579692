package normalizer

import (
	"fmt"
	"math"
	"strings"

	"ComicScout/internal/domain/models"
)

// Defaults returned when a parse is not trusted.
const (
	UnknownSeries = "unknown"
	DefaultIssue  = "1"
	DefaultGrade  = "raw-nm"
)

// Confidence weights and thresholds.
const (
	SeriesWeight = 0.4
	IssueWeight  = 0.3
	GradeWeight  = 0.3

	// LowConfidenceThreshold is the overall confidence below which extracted
	// fields are replaced by the defaults.
	LowConfidenceThreshold = 0.4
	// LowConfidenceCeiling is the highest confidence seen for inputs that
	// carry no usable identity, such as the empty title.
	LowConfidenceCeiling = 0.42

	AliasConfidence        = 0.9
	SlugConfidence         = 0.6
	DefaultGradeConfidence = 0.2

	minSlugLength    = 6
	unknownYearSlug  = "-unknown-year"
	lowConfidenceTag = "Low confidence parse: "
)

// Normalizer parses listing titles with the built-in tables.
type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

// Normalize implements service.TitleNormalizer.
func (n *Normalizer) Normalize(title string) models.ParsedTitle { return Normalize(title) }

type stage struct {
	value      string
	confidence float64
	note       string
}

// Normalize parses a free-text title into series, issue and grade. It never
// fails; garbage input comes back as the defaults with a low confidence.
func Normalize(raw string) models.ParsedTitle {
	title := strings.ToLower(strings.TrimSpace(raw))

	series := extractSeries(title)
	issue := extractIssue(title)
	grade := extractGrade(title)

	overall := SeriesWeight*series.confidence + IssueWeight*issue.confidence + GradeWeight*grade.confidence
	overall = math.Round(overall*1e4) / 1e4

	notes := strings.Join([]string{series.note, issue.note, grade.note}, "; ")
	if overall < LowConfidenceThreshold {
		return models.ParsedTitle{
			SeriesID:    UnknownSeries,
			IssueNumber: DefaultIssue,
			Grade:       DefaultGrade,
			Confidence:  overall,
			Notes:       lowConfidenceTag + notes,
		}
	}

	return models.ParsedTitle{
		SeriesID:    series.value,
		IssueNumber: issue.value,
		Grade:       grade.value,
		Confidence:  overall,
		Notes:       notes,
	}
}

func extractSeries(title string) stage {
	for _, a := range seriesAliases {
		if containsToken(title, a.Alias) {
			return stage{a.SeriesID, AliasConfidence, fmt.Sprintf("series: alias %q", a.Alias)}
		}
	}
	if m := gluedSeries.FindStringSubmatch(title); m != nil {
		if id, ok := seriesFor(m[1]); ok {
			return stage{id, AliasConfidence, fmt.Sprintf("series: alias %q glued to issue", m[1])}
		}
	}

	if slug, ok := slugFromText(title); ok {
		return stage{slug + unknownYearSlug, SlugConfidence, "series: derived from title text"}
	}
	return stage{UnknownSeries, 0, "series: not recognised"}
}

func seriesFor(alias string) (string, bool) {
	for _, a := range seriesAliases {
		if a.Alias == alias {
			return a.SeriesID, true
		}
	}
	return "", false
}

// containsToken reports whether alias occurs in s without being glued to
// neighbouring letters or digits.
func containsToken(s, alias string) bool {
	for from := 0; from <= len(s)-len(alias); {
		i := strings.Index(s[from:], alias)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(alias)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func slugFromText(title string) (string, bool) {
	text := title
	if cut := firstIssueIndex(title); cut >= 0 {
		text = text[:cut]
	}
	for _, g := range gradePatterns {
		text = g.Pattern.ReplaceAllString(text, " ")
	}
	text = standaloneNumber.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(text) <= minSlugLength || !alphaRun.MatchString(text) {
		return "", false
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return r < 'a' || r > 'z' }) {
		if _, generic := genericWords[w]; generic {
			return "", false
		}
	}

	slug := slugUnsafe.ReplaceAllString(text, "")
	slug = slugSpaces.ReplaceAllString(strings.TrimSpace(slug), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "", false
	}
	return slug, true
}

func firstIssueIndex(title string) int {
	first := -1
	for _, p := range issuePatterns {
		loc := p.Pattern.FindStringIndex(title)
		if loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	return first
}

func extractIssue(title string) stage {
	for _, p := range issuePatterns {
		if m := p.Pattern.FindStringSubmatch(title); m != nil {
			return stage{m[1], p.Confidence, fmt.Sprintf("issue: %s pattern", p.Name)}
		}
	}
	return stage{DefaultIssue, 0, "issue: not found"}
}

func extractGrade(title string) stage {
	for _, g := range gradePatterns {
		if g.Pattern.MatchString(title) {
			return stage{g.Grade, g.Confidence, "grade: " + g.Grade}
		}
	}
	return stage{DefaultGrade, DefaultGradeConfidence, "grade: not found, assuming " + DefaultGrade}
}

// LegacySeriesAlias maps a canonical series id to its short legacy alias.
// Ids without a legacy alias are returned unchanged.
func LegacySeriesAlias(seriesID string) string {
	if alias, ok := legacyAliases[seriesID]; ok {
		return alias
	}
	return seriesID
}

// ParseLegacy returns the alias-style view of Normalize for older callers.
func ParseLegacy(raw string) models.LegacyTitle {
	parsed := Normalize(raw)
	return models.LegacyTitle{
		Series:      LegacySeriesAlias(parsed.SeriesID),
		IssueNumber: parsed.IssueNumber,
		Variant:     Variant(raw),
	}
}

// Variant returns the cover variant named in a title: a letter suffix such as
// "#1a", or a variant/newsstand/direct keyword. It is empty when none is found.
func Variant(raw string) string {
	return variantOf(strings.ToLower(strings.TrimSpace(raw)))
}

func variantOf(title string) string {
	for _, p := range issuePatterns {
		if p.Name != "variant-letter" {
			continue
		}
		if m := p.Pattern.FindStringSubmatch(title); m != nil {
			return m[2]
		}
	}
	if m := variantKeyword.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}
