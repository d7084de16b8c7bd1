package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// OldNewInfo holds the pre/post revision metadata for one revision serial number
type OldNewInfo struct {
	MST       string
	HasOldNew string // "Y" or "N"
	OldBasic  map[string]any
	NewBasic  map[string]any
	CreatedAt time.Time
}

// Comparable reports whether the registry returned any article text for the revision
func (o *OldNewInfo) Comparable() bool {
	return o != nil && o.HasOldNew == "Y"
}

// ArticleDiff is one positional before/after article pair for a revision.
// Either side may be absent (an added or removed article).
type ArticleDiff struct {
	DiffID     uuid.UUID
	MST        string
	Seq        int
	OldNo      sql.NullString
	OldContent sql.NullString
	NewNo      sql.NullString
	NewContent sql.NullString
	CreatedAt  time.Time
}

// ArticleText is one article entry of a revision-detail payload
type ArticleText struct {
	No      string
	Content string
}

// RevisionDetail is the normalized revision-detail payload from the registry
type RevisionDetail struct {
	OldBasic    map[string]any
	NewBasic    map[string]any
	OldArticles []ArticleText
	NewArticles []ArticleText
}
