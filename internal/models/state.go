package models

// AutopostState tracks the sequential cursor over the autopost entries file
// and the fingerprints of recently published posts.
type AutopostState struct {
	NextIndex     uint32   `json:"next_index"`
	LastTimestamp float64  `json:"last_timestamp"` // seconds since epoch
	RecentHashes  []string `json:"recent_hashes"`  // oldest first, bounded by the configured limit
}

// AgentState is the single durable document the agent owns. LastSeenID is the
// high-water mark over processed mention ids; nil means no mention has ever
// been committed.
type AgentState struct {
	LastSeenID *uint64       `json:"last_seen_id"`
	Autopost   AutopostState `json:"autopost"`
}
