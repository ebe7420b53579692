package models

// ParsedTitle is the structured identity extracted from a free-text listing title.
type ParsedTitle struct {
	SeriesID    string  `json:"seriesId"`
	IssueNumber string  `json:"issueNumber"`
	Grade       string  `json:"grade"`
	Confidence  float64 `json:"confidence"`
	Notes       string  `json:"notes,omitempty"`
}

// LegacyTitle is the older alias-style view of a parsed title.
type LegacyTitle struct {
	Series      string `json:"series"`
	IssueNumber string `json:"issueNumber"`
	Variant     string `json:"variant,omitempty"`
}
