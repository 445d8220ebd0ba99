package quote

import "time"

// Quote is the normalized daily quote payload for one symbol.
// Change and PctChange are derived from Close/PrevClose by the upstream
// client so every consumer sees the same numbers.
type Quote struct {
	Close     float64 `json:"close"`
	PrevClose float64 `json:"prevClose"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Change    float64 `json:"change"`
	PctChange float64 `json:"pctChange"`
	MarketCap float64 `json:"marketCap,omitempty"`
	Provider  string  `json:"provider,omitempty"`
}

// Status of a per-symbol result.
const (
	StatusOK    = "ok"
	StatusStale = "stale"
	StatusError = "error"
)

// Source of a per-symbol result.
const (
	SourceCache      = "cache"
	SourceUpstream   = "upstream"
	SourceStaleCache = "stale_cache"
)

// Result is the outcome for a single requested symbol.
type Result struct {
	Symbol string `json:"symbol"`
	Quote  *Quote `json:"quote,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Source string `json:"source,omitempty"`
}

// Meta describes how a batch was satisfied.
type Meta struct {
	Requested   int  `json:"requested"`
	Returned    int  `json:"returned"`
	CacheHits   int  `json:"cache_hits"`
	APICalls    int  `json:"api_calls"`
	RateLimited bool `json:"rate_limited"`
}

// BatchResult holds per-symbol results in the caller's order plus batch meta.
type BatchResult struct {
	Items []Result `json:"items"`
	Meta  Meta     `json:"meta"`
}

// Entry is a cached quote with its fetch time. Entries are replaced
// wholesale on every write; FetchedAt always refers to the whole payload.
type Entry struct {
	Quote     Quote
	FetchedAt time.Time
}
