package model

import "time"

// SourceKey identifies a lead source platform.
type SourceKey string

const (
	SourcePC     SourceKey = "cabal_pc_th"
	SourceMobile SourceKey = "cabal_mobile_th"
)

// Sources lists the fixed source enumeration in canonical order.
var Sources = []SourceKey{SourcePC, SourceMobile}

// Lead is one prospect from one source on one run. Leads are materialized
// fresh each run and never persisted; only their OutputRows are.
type Lead struct {
	Username     string    `json:"username"`
	Phone        string    `json:"phone"` // digits only after normalization
	Source       SourceKey `json:"source_key"`
	LastActivity time.Time `json:"last_activity"`

	// Optional enrichment. Nil means the source had no data, which is
	// distinct from an explicit zero.
	TopupAmount   *float64 `json:"topup_amount,omitempty"`
	DeclaredTier  string   `json:"declared_tier,omitempty"`
	ArkGemBalance *float64 `json:"ark_gem_balance,omitempty"`
	RewardRank    string   `json:"reward_rank,omitempty"`

	// Derived during the run.
	InactiveDays int    `json:"inactive_days"`
	Window       string `json:"window_label"`
	Caller       string `json:"caller,omitempty"`
}

// Key returns the phone|username|source triple used for blacklist matching
// and cross-pool identity. Phone must already be normalized.
func (l Lead) Key() string {
	return l.Phone + "|" + l.Username + "|" + string(l.Source)
}

// RawLead is a record as fetched from a source, before canonicalization.
// Phone is whatever the source stored (dashes, spaces, Excel floats).
type RawLead struct {
	Username      string     `json:"username"`
	Phone         string     `json:"phone"`
	Source        SourceKey  `json:"source_key"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
	TopupAmount   *float64   `json:"topup_amount,omitempty"`
	DeclaredTier  string     `json:"declared_tier,omitempty"`
	ArkGemBalance *float64   `json:"ark_gem_balance,omitempty"`
	RewardRank    string     `json:"reward_rank,omitempty"`
}

// Caller is a human agent that may receive General-tier rows.
type Caller struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

// AvailableCallers filters to callers that participate in allocation sizing.
func AvailableCallers(callers []Caller) []string {
	var out []string
	for _, c := range callers {
		if c.Available && c.ID != "" {
			out = append(out, c.ID)
		}
	}
	return out
}

// BlacklistEntry excludes a lead when all three fields match.
type BlacklistEntry struct {
	Username string    `json:"username"`
	Phone    string    `json:"phone"`
	Source   SourceKey `json:"source_key"`
}

// Key returns the triple key in the same form as Lead.Key.
func (b BlacklistEntry) Key() string {
	return b.Phone + "|" + b.Username + "|" + string(b.Source)
}
