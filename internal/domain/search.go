package domain

// SearchSpec is the immutable input of a single search call
type SearchSpec struct {
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive"`
	UseRegex      bool   `json:"use_regex"`
	WholeWord     bool   `json:"whole_word"`
}

// MatchResult is one matching line.
// ColumnStart and ColumnEnd are byte offsets of the first match within the line.
type MatchResult struct {
	LineNumber  uint64 `json:"line_number"` // 1-based
	ColumnStart uint32 `json:"column_start"`
	ColumnEnd   uint32 `json:"column_end"`
	LineText    string `json:"line_text"`
}
