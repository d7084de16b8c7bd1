package model

// Totals is a point-in-time count of what the pipeline has stored
type Totals struct {
	Laws               int `json:"laws"`
	ChangeEvents       int `json:"change_events"`
	EnrichedEvents     int `json:"enriched_events"`
	PendingEnrichments int `json:"pending_enrichments"`
	OldNewInfos        int `json:"old_new_infos"`
	ArticleDiffs       int `json:"article_diffs"`
}
