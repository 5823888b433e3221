package model

// SeoSuggestion is the output of the SEO scorer.
type SeoSuggestion struct {
	TitleVariants   []string                `json:"title_variants"`
	MetaDescription string                  `json:"meta_description"`
	Outline         []OutlineSection        `json:"outline"`
	KeywordMatches  map[string]KeywordMatch `json:"keyword_matches"`
	Score           float64                 `json:"score"`
	PrimaryKeyword  string                  `json:"primary_keyword"`
	Language        string                  `json:"language"`
	Recommendations []string                `json:"recommendations"`
}

// OutlineSection is one heading of a suggested outline.
type OutlineSection struct {
	Level string `json:"level"` // H1, H2
	Title string `json:"title"`
}

// KeywordMatch reports how a requested keyword occurs in the content.
type KeywordMatch struct {
	Present     bool    `json:"present"`
	Density     float64 `json:"density"`
	Occurrences int     `json:"occurrences"`
}
