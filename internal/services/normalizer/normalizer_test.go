package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKnownTitles(t *testing.T) {
	cases := []struct {
		title  string
		series string
		issue  string
		grade  string
	}{
		{"Amazing Spider-Man #300 CGC 9.8", "amazing-spider-man-1963", "300", "cgc-9-8-nm-mt"},
		{"Batman #181 CGC 9.4", "batman-1940", "181", "cgc-9-4-nm"},
		{"X-Men #1 CGC 9.6", "x-men-1963", "1", "cgc-9-6-nm"},
		{"ASM #129 9.2 CGC", "amazing-spider-man-1963", "129", "cgc-9-2-nm"},
		{"Fantastic Four #48 CGC Graded 9.0", "fantastic-four-1961", "48", "cgc-9-0-vf-nm"},
		{"FF #52 Raw VF", "fantastic-four-1961", "52", "raw-vf"},
		{"Incredible Hulk #181 Raw NM", "incredible-hulk-1962", "181", "raw-nm"},
		{"Thor #337 VF-NM", "thor-1966", "337", "raw-vf-nm"},
		{"Iron Man #55 Very Good", "iron-man-1968", "55", "raw-vg"},
		{"Captain America #100 Fine", "captain-america-1968", "100", "raw-fn"},
		{"Avengers #4 Good", "avengers-1963", "4", "raw-gd"},
		{"Superman #1 Poor", "superman-1939", "1", "raw-pr"},
		{"Detective Comics #27 Fair", "detective-comics-1937", "27", "raw-fr"},
		{"Uncanny X-Men #266 Near Mint", "x-men-1963", "266", "raw-nm"},
		{"Wolverine #1 Ungraded", "wolverine-1988", "1", "raw-nm"},
		{"Batman #5 9.8 graded CGC", "batman-1940", "5", "cgc-9-8-nm-mt"},
		{"Batman 9.8 Graded CGC #5", "batman-1940", "5", "cgc-9-8-nm-mt"},
		{"ASM300 CGC 9.8", "amazing-spider-man-1963", "300", "cgc-9-8-nm-mt"},
		{"TEC27 Raw NM", "detective-comics-1937", "27", "raw-nm"},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			got := Normalize(tc.title)
			assert.Equal(t, tc.series, got.SeriesID)
			assert.Equal(t, tc.issue, got.IssueNumber)
			assert.Equal(t, tc.grade, got.Grade)
			assert.GreaterOrEqual(t, got.Confidence, LowConfidenceThreshold)
			assert.NotContains(t, got.Notes, lowConfidenceTag)
		})
	}
}

func TestNormalizeHighConfidenceSlab(t *testing.T) {
	got := Normalize("Amazing Spider-Man #300 CGC 9.8")
	assert.Greater(t, got.Confidence, 0.8)
	assert.InDelta(t, 0.96, got.Confidence, 1e-9)
}

func TestNormalizeIssueForms(t *testing.T) {
	cases := map[string]string{
		"Amazing Spider-Man #300.1":            "300.1",
		"Batman Issue 423":                     "423",
		"Batman No. 227":                       "227",
		"Batman Number 5":                      "5",
		"Amazing Spider-Man Annual 3":          "3",
		"Amazing Spider-Man 14 Annual":         "14",
		"Batman Special 1":                     "1",
		"X-Men 12 Special":                     "12",
		"Amazing Spider-Man #1a":               "1",
		"Amazing Spider-Man 667 Variant":       "667",
		"Amazing Spider-Man 50 Cover":          "50",
		"Amazing Spider-Man #129 Cover A":      "129",
		"Amazing Spider-Man Annual #1 CGC 9.8": "1",
	}
	for title, want := range cases {
		got := Normalize(title)
		assert.Equal(t, want, got.IssueNumber, title)
	}
}

func TestNormalizeIssuePatternConfidence(t *testing.T) {
	bare := Normalize("Batman #1 CGC 9.8")
	suffixed := Normalize("Batman #1a CGC 9.8")
	assert.Equal(t, "1", suffixed.IssueNumber)
	assert.Greater(t, bare.Confidence, suffixed.Confidence)
}

func TestNormalizeSlugFallback(t *testing.T) {
	cases := map[string]string{
		"Web of Spider-Man #1 Raw":      "web-of-spider-man-unknown-year",
		"Unknown Series #1":             "unknown-series-unknown-year",
		"Sandman Mystery Theatre #1 NM": "sandman-mystery-theatre-unknown-year",
	}
	for title, want := range cases {
		got := Normalize(title)
		assert.Equal(t, want, got.SeriesID, title)
		assert.Equal(t, "1", got.IssueNumber, title)
	}

	got := Normalize("Unknown Series #1")
	assert.Less(t, got.Confidence, 0.7)
	assert.GreaterOrEqual(t, got.Confidence, LowConfidenceThreshold)
}

func TestNormalizeLowConfidenceFallback(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"just some random text",
		"completely unrelated text",
		"123",
		"comic book",
		"CGC 9.8",
		"#300",
	}
	for _, in := range inputs {
		got := Normalize(in)
		assert.Less(t, got.Confidence, LowConfidenceThreshold, "%q", in)
		assert.Equal(t, UnknownSeries, got.SeriesID, "%q", in)
		assert.Equal(t, DefaultIssue, got.IssueNumber, "%q", in)
		assert.Equal(t, DefaultGrade, got.Grade, "%q", in)
		assert.True(t, strings.HasPrefix(got.Notes, lowConfidenceTag), "%q", in)
	}

	empty := Normalize("")
	assert.Less(t, empty.Confidence, LowConfidenceCeiling)
}

func TestNormalizeDiscardsConfidentGradeUnderLowOverall(t *testing.T) {
	// A slab grade alone is not enough to keep the parse.
	got := Normalize("CGC 9.8")
	assert.Equal(t, DefaultGrade, got.Grade)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
}

func TestNormalizeDefaultGradeWhenMissing(t *testing.T) {
	got := Normalize("Batman #181")
	assert.Equal(t, DefaultGrade, got.Grade)
	assert.InDelta(t, SeriesWeight*AliasConfidence+IssueWeight*1.0+GradeWeight*DefaultGradeConfidence, got.Confidence, 1e-9)
	assert.Contains(t, got.Notes, "grade: not found")
}

func TestNormalizeIsDeterministic(t *testing.T) {
	titles := []string{"Amazing Spider-Man #300 CGC 9.8", "", "Web of Spider-Man #1 Raw", "#300"}
	for _, title := range titles {
		first := Normalize(title)
		for i := 0; i < 5; i++ {
			require.Equal(t, first, Normalize(title))
		}
	}
}

func TestAliasesMatchWholeTokens(t *testing.T) {
	// "ff" inside "offer" must not resolve to Fantastic Four.
	got := Normalize("Offer Nothing Less #1 NM")
	assert.Equal(t, "offer-nothing-less-unknown-year", got.SeriesID)

	got = Normalize("Plasma Warriors #3 NM")
	assert.NotEqual(t, "amazing-spider-man-1963", got.SeriesID)
}

func TestGluedAliasesOnlyForShorthand(t *testing.T) {
	got := Normalize("ASM300 CGC 9.8")
	assert.InDelta(t, SeriesWeight*AliasConfidence+IssueWeight*0.9+GradeWeight*1.0, got.Confidence, 1e-9)

	// Whole-token aliases still win, and longer words are not split.
	got = Normalize("Amazing Spider-Man #300 asm300")
	assert.Equal(t, "300", got.IssueNumber)
	assert.Equal(t, "amazing-spider-man-1963", got.SeriesID)

	got = Normalize("Asmodeus Chronicles #2 NM")
	assert.Equal(t, "asmodeus-chronicles-unknown-year", got.SeriesID)
}

func TestAliasTableOrder(t *testing.T) {
	pos := map[string]int{}
	for i, a := range SeriesAliases() {
		pos[a.Alias] = i
	}
	assert.Less(t, pos["amazing spider-man"], pos["asm"])
	assert.Less(t, pos["giant-size x-men"], pos["x-men"])
	assert.Less(t, pos["incredible hulk"], pos["hulk"])
	assert.GreaterOrEqual(t, len(pos), 25)
}

func TestGradeTableOrder(t *testing.T) {
	patterns := GradePatterns()
	require.NotEmpty(t, patterns)
	assert.Equal(t, 1.0, patterns[0].Confidence)
	last := patterns[len(patterns)-1]
	assert.Equal(t, DefaultGrade, last.Grade)
	assert.Equal(t, 0.5, last.Confidence)
}

func TestLegacySeriesAlias(t *testing.T) {
	assert.Equal(t, "asm", LegacySeriesAlias("amazing-spider-man-1963"))
	assert.Equal(t, "batman", LegacySeriesAlias("batman-1940"))
	assert.Equal(t, "x-men", LegacySeriesAlias("x-men-1963"))
	assert.Equal(t, "web-of-spider-man-unknown-year", LegacySeriesAlias("web-of-spider-man-unknown-year"))
}

func TestParseLegacy(t *testing.T) {
	got := ParseLegacy("Amazing Spider-Man #300 CGC 9.8")
	assert.Equal(t, "asm", got.Series)
	assert.Equal(t, "300", got.IssueNumber)
	assert.Empty(t, got.Variant)

	got = ParseLegacy("Batman #1a Newsstand")
	assert.Equal(t, "batman", got.Series)
	assert.Equal(t, "a", got.Variant)

	got = ParseLegacy("X-Men #1 Variant CGC 9.4")
	assert.Equal(t, "x-men", got.Series)
	assert.Equal(t, "variant", got.Variant)
}

func TestVariant(t *testing.T) {
	assert.Equal(t, "a", Variant("Batman #1a Newsstand"))
	assert.Equal(t, "newsstand", Variant("  Batman #5 Newsstand "))
	assert.Equal(t, "direct", Variant("X-Men #266 Direct Edition"))
	assert.Empty(t, Variant("Amazing Spider-Man #300 CGC 9.8"))
}
