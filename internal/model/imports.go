package model

import "time"

// ImportRecord is the provenance entry written once per ingested file.
type ImportRecord struct {
	ImportedAt time.Time
	Location   string
	DateFormat string
	ID         int64
}

// MissingBasis is a raw identifier that failed product resolution.
type MissingBasis struct {
	CreatedAt   time.Time
	Basis       string
	Provisional string
	ResolvedTo  string
	ID          int64
}

// UnmatchedHeader is header text that matched neither a variable nor a date.
type UnmatchedHeader struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Header    string
	SeenCount int
}
