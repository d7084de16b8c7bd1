package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Importance levels accepted from the generation service
const (
	ImportanceNone   = "NONE"
	ImportanceLow    = "LOW"
	ImportanceMedium = "MEDIUM"
	ImportanceHigh   = "HIGH"
)

// ChangeEvent represents one creation, amendment or repeal of a law as
// reported by the registry for a collection date
type ChangeEvent struct {
	ChangeID         uuid.UUID
	LawID            string
	MST              string
	ChangeType       sql.NullString
	PromulgationNo   sql.NullString
	PromulgationDate sql.NullTime
	EnforcementDate  sql.NullTime
	HistoryCode      sql.NullString
	CollectedDate    time.Time
	CreatedAt        time.Time

	// Enrichment fields, NULL until the enrichment job fills them once
	ChangeSummary        sql.NullString
	ActionRecommendation sql.NullString
	AIImportance         sql.NullString
}

// Enriched reports whether the enrichment job has already written this event
func (e *ChangeEvent) Enriched() bool {
	return e.ChangeSummary.Valid || e.ActionRecommendation.Valid
}

// Enrichment is the normalized output of one generation call
type Enrichment struct {
	Summary    sql.NullString
	Actions    sql.NullString
	Importance sql.NullString
}
