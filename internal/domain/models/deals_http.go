package models

import "time"

// Requests for the deals HTTP endpoints.

type TopDealsRequest struct {
	MinScore    float64 `query:"minScore" json:"minScore" validate:"gte=0,lte=100"`
	SearchTerms string  `query:"searchTerms" json:"searchTerms" validate:"max=1000"`
}

type NormalizeRequest struct {
	Title string `query:"title" json:"title" validate:"max=500"`
}

type NormalizeBatchRequest struct {
	Titles []string `json:"titles" validate:"required,min=1,max=100,dive,max=500"`
}

type MarketValueRequest struct {
	IssueID    string `query:"issueId" json:"issueId" validate:"required"`
	GradeID    string `query:"gradeId" json:"gradeId" validate:"required"`
	WindowDays int    `query:"windowDays" json:"windowDays" default:"30" validate:"gte=1,lte=365"`
}

// NormalizeResponse pairs the parsed title with its legacy view.
type NormalizeResponse struct {
	Title  string      `json:"title"`
	Parsed ParsedTitle `json:"parsed"`
	Legacy LegacyTitle `json:"legacy"`
}

type TopDealsMeta struct {
	Count       int       `json:"count"`
	MinScore    float64   `json:"minScore"`
	SearchTerms []string  `json:"searchTerms"`
	Timestamp   time.Time `json:"timestamp"`
}

type TopDealsResponse struct {
	Deals []TopDeal    `json:"deals"`
	Meta  TopDealsMeta `json:"meta"`
}
