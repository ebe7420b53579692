package normalizer

import (
	"regexp"
	"strings"
)

// SeriesAlias maps a lowercase alias to a canonical series id.
type SeriesAlias struct {
	Alias    string
	SeriesID string
}

// GradePattern maps a title fragment to a grade label.
type GradePattern struct {
	Pattern    *regexp.Regexp
	Grade      string
	Confidence float64
}

// IssuePattern captures the issue number in group 1.
type IssuePattern struct {
	Name       string
	Pattern    *regexp.Regexp
	Confidence float64
}

// seriesAliases is scanned top to bottom and the first hit wins, so longer
// aliases sit above the shorter ones they contain.
var seriesAliases = []SeriesAlias{
	{"amazing spider-man", "amazing-spider-man-1963"},
	{"amazing spider man", "amazing-spider-man-1963"},
	{"amazing spiderman", "amazing-spider-man-1963"},
	{"amazing fantasy", "amazing-fantasy-1962"},
	{"giant-size x-men", "giant-size-x-men-1975"},
	{"giant size x-men", "giant-size-x-men-1975"},
	{"uncanny x-men", "x-men-1963"},
	{"new mutants", "new-mutants-1983"},
	{"detective comics", "detective-comics-1937"},
	{"action comics", "action-comics-1938"},
	{"justice league", "justice-league-of-america-1960"},
	{"fantastic four", "fantastic-four-1961"},
	{"incredible hulk", "incredible-hulk-1962"},
	{"captain america", "captain-america-1968"},
	{"cap america", "captain-america-1968"},
	{"mighty thor", "thor-1966"},
	{"journey into mystery", "journey-into-mystery-1952"},
	{"tales of suspense", "tales-of-suspense-1959"},
	{"silver surfer", "silver-surfer-1968"},
	{"wonder woman", "wonder-woman-1942"},
	{"green lantern", "green-lantern-1960"},
	{"teenage mutant ninja turtles", "teenage-mutant-ninja-turtles-1984"},
	{"walking dead", "walking-dead-2003"},
	{"iron man", "iron-man-1968"},
	{"ironman", "iron-man-1968"},
	{"x-men", "x-men-1963"},
	{"x men", "x-men-1963"},
	{"xmen", "x-men-1963"},
	{"batman", "batman-1940"},
	{"superman", "superman-1939"},
	{"avengers", "avengers-1963"},
	{"daredevil", "daredevil-1964"},
	{"wolverine", "wolverine-1988"},
	{"spawn", "spawn-1992"},
	{"flash", "flash-1959"},
	{"hulk", "incredible-hulk-1962"},
	{"thor", "thor-1966"},
	{"tmnt", "teenage-mutant-ninja-turtles-1984"},
	{"asm", "amazing-spider-man-1963"},
	{"tec", "detective-comics-1937"},
	{"jla", "justice-league-of-america-1960"},
	{"ff", "fantastic-four-1961"},
	{"f4", "fantastic-four-1961"},
	{"ww", "wonder-woman-1942"},
}

// gluedAliases are the abbreviations sellers run straight into the issue
// number, as in "ASM300". They are tried after every whole-token alias.
var gluedAliases = []string{"asm", "tec", "jla", "ff", "ww", "tmnt"}

var (
	gluedSeries = regexp.MustCompile(`\b(` + strings.Join(gluedAliases, "|") + `)\d{1,4}\b`)
	gluedIssue  = regexp.MustCompile(`\b(?:` + strings.Join(gluedAliases, "|") + `)(\d{1,4})\b`)
)

// legacyAliases converts canonical ids back to the short series names older
// callers expect.
var legacyAliases = map[string]string{
	"amazing-spider-man-1963":           "asm",
	"batman-1940":                       "batman",
	"x-men-1963":                        "x-men",
	"fantastic-four-1961":               "ff",
	"incredible-hulk-1962":              "hulk",
	"iron-man-1968":                     "iron-man",
	"captain-america-1968":              "cap",
	"thor-1966":                         "thor",
	"avengers-1963":                     "avengers",
	"superman-1939":                     "superman",
	"detective-comics-1937":             "tec",
	"action-comics-1938":                "action",
	"wonder-woman-1942":                 "ww",
	"justice-league-of-america-1960":    "jla",
	"green-lantern-1960":                "gl",
	"teenage-mutant-ninja-turtles-1984": "tmnt",
}

func cgc(num, grade string) []GradePattern {
	n := regexp.QuoteMeta(num)
	return []GradePattern{
		{regexp.MustCompile(`\bcgc\s*(?:graded\s*)?` + n + `\b`), grade, 1.0},
		{regexp.MustCompile(`\b` + n + `\s*(?:graded\s*)?cgc\b`), grade, 1.0},
	}
}

// gradePatterns is ordered: numeric slab grades, then spelled-out raw grades,
// then abbreviations, then the bare raw/ungraded words.
var gradePatterns = func() []GradePattern {
	var out []GradePattern
	out = append(out, cgc("9.8", "cgc-9-8-nm-mt")...)
	out = append(out, cgc("9.6", "cgc-9-6-nm")...)
	out = append(out, cgc("9.4", "cgc-9-4-nm")...)
	out = append(out, cgc("9.2", "cgc-9-2-nm")...)
	out = append(out, cgc("9.0", "cgc-9-0-vf-nm")...)
	out = append(out, cgc("8.5", "cgc-8-5-vf")...)
	out = append(out, cgc("8.0", "cgc-8-0-vf")...)
	out = append(out,
		GradePattern{regexp.MustCompile(`\b(?:vf\s*[-/]\s*nm|very fine\s*[-/]?\s*near mint)\b`), "raw-vf-nm", 0.8},
		GradePattern{regexp.MustCompile(`\braw\s*nm\b|\bnm\s*raw\b`), "raw-nm", 0.8},
		GradePattern{regexp.MustCompile(`\bnear mint\b`), "raw-nm", 0.8},
		GradePattern{regexp.MustCompile(`\braw\s*vf\b|\bvf\s*raw\b`), "raw-vf", 0.8},
		GradePattern{regexp.MustCompile(`\bvery fine\b`), "raw-vf", 0.8},
		GradePattern{regexp.MustCompile(`\bvery good\b`), "raw-vg", 0.8},
		GradePattern{regexp.MustCompile(`\bfine\b`), "raw-fn", 0.7},
		GradePattern{regexp.MustCompile(`\bgood\b`), "raw-gd", 0.7},
		GradePattern{regexp.MustCompile(`\bfair\b`), "raw-fr", 0.7},
		GradePattern{regexp.MustCompile(`\bpoor\b`), "raw-pr", 0.7},
		GradePattern{regexp.MustCompile(`\bnm\b`), "raw-nm", 0.7},
		GradePattern{regexp.MustCompile(`\bvf\b`), "raw-vf", 0.7},
		GradePattern{regexp.MustCompile(`\bfn\b`), "raw-fn", 0.7},
		GradePattern{regexp.MustCompile(`\bvg\b`), "raw-vg", 0.7},
		GradePattern{regexp.MustCompile(`\bgd\b`), "raw-gd", 0.7},
		GradePattern{regexp.MustCompile(`\bfr\b`), "raw-fr", 0.7},
		GradePattern{regexp.MustCompile(`\bpr\b`), "raw-pr", 0.7},
		GradePattern{regexp.MustCompile(`\bungraded\b`), DefaultGrade, 0.6},
		GradePattern{regexp.MustCompile(`\braw\b`), DefaultGrade, 0.5},
	)
	return out
}()

// issuePatterns is ordered; a bare "#N" wins over every descriptive form.
var issuePatterns = []IssuePattern{
	{"hash", regexp.MustCompile(`#\s?(\d+(?:\.\d+)?)(?:$|[^a-z0-9])`), 1.0},
	{"glued", gluedIssue, 0.9},
	{"issue", regexp.MustCompile(`\bissue\s*#?\s*(\d+(?:\.\d+)?)`), 0.9},
	{"no", regexp.MustCompile(`\bno\.?\s*(\d+(?:\.\d+)?)`), 0.9},
	{"number", regexp.MustCompile(`\bnumber\s*(\d+(?:\.\d+)?)`), 0.8},
	{"annual", regexp.MustCompile(`\bannual\s*#?\s*(\d+)`), 0.9},
	{"annual-suffix", regexp.MustCompile(`#?(\d+)\s*annual\b`), 0.9},
	{"special", regexp.MustCompile(`\bspecial\s*#?\s*(\d+)`), 0.8},
	{"special-suffix", regexp.MustCompile(`#?(\d+)\s*special\b`), 0.8},
	{"variant-letter", regexp.MustCompile(`#(\d+)([a-z])\b`), 0.8},
	{"variant", regexp.MustCompile(`#?(\d+)\s*variant\b`), 0.8},
	{"cover", regexp.MustCompile(`#?(\d+)\s*cover\b`), 0.7},
}

// genericWords mark placeholder text that must not become a series slug.
var genericWords = map[string]struct{}{
	"random":     {},
	"sample":     {},
	"test":       {},
	"unrelated":  {},
	"completely": {},
	"just":       {},
	"demo":       {},
	"example":    {},
	"some":       {},
	"text":       {},
	"comic":      {},
	"book":       {},
	"lot":        {},
}

var (
	standaloneNumber = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	alphaRun         = regexp.MustCompile(`[a-z]{3,}`)
	slugUnsafe       = regexp.MustCompile(`[^a-z0-9\s-]+`)
	slugSpaces       = regexp.MustCompile(`[\s-]+`)
	variantKeyword   = regexp.MustCompile(`\b(variant|newsstand|direct)\b`)
)

// SeriesAliases returns a copy of the alias table in match order.
func SeriesAliases() []SeriesAlias {
	return append([]SeriesAlias(nil), seriesAliases...)
}

// GradePatterns returns a copy of the grade table in match order.
func GradePatterns() []GradePattern {
	return append([]GradePattern(nil), gradePatterns...)
}

// IssuePatterns returns a copy of the issue table in match order.
func IssuePatterns() []IssuePattern {
	return append([]IssuePattern(nil), issuePatterns...)
}
