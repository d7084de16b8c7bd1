package model

import (
	"time"
)

// Law represents a statute or regulation tracked by the registry
type Law struct {
	LawID         string
	LawName       string
	LawTypeName   string
	MinistryNames string
	MinistryCodes string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChangeRecord is one row of the registry change-history listing,
// already flattened to strings at the client boundary
type ChangeRecord struct {
	LawID            string
	LawName          string
	LawTypeName      string
	MinistryNames    string
	MinistryCodes    string
	MST              string
	ChangeType       string
	PromulgationNo   string
	PromulgationDate string
	EnforcementDate  string
	HistoryCode      string
}
