package model

// Tier is the output category for a kept lead.
type Tier string

const (
	TierHighValue Tier = "Tier A"
	TierGeneral   Tier = "Non A"
)

// OutputRow is the per-lead record as written for a single day. Identity for
// idempotent merging is (AssignDate, Phone).
type OutputRow struct {
	AssignDate   string    `json:"assign_date"` // DD-MM-YYYY
	Username     string    `json:"username"`
	CallingCode  string    `json:"calling_code,omitempty"`
	Phone        string    `json:"phone"`
	Source       SourceKey `json:"source_key"`
	Tier         string    `json:"tier,omitempty"` // declared tier label, e.g. "A-1"
	Window       string    `json:"window_label"`
	InactiveDays int       `json:"inactive_days"`
	Amount       string    `json:"amount,omitempty"`
	ArkGem       string    `json:"ark_gem,omitempty"`
	RewardRank   string    `json:"reward_rank,omitempty"`
	Telesale     string    `json:"telesale,omitempty"`
	RecallAt     string    `json:"recall_at,omitempty"`
	CallStatus   string    `json:"call_status,omitempty"`
	AnswerStatus string    `json:"answer_status,omitempty"`
	Result       string    `json:"result,omitempty"`
}

// Key returns the identity key used by the idempotent merge.
func (r OutputRow) Key() (date, phone string) {
	return r.AssignDate, r.Phone
}

// TripleKey matches the blacklist/lead triple key form.
func (r OutputRow) TripleKey() string {
	return r.Phone + "|" + r.Username + "|" + string(r.Source)
}

// RunStats carries the observability counters a run always produces, even on
// partial degradation.
type RunStats struct {
	Tier         Tier              `json:"tier"`
	RunDate      string            `json:"run_date"`
	PoolSize     int               `json:"pool_size"`
	Kept         int               `json:"kept"`
	DropCounts   map[string]int    `json:"drop_counts"`
	WindowCounts map[string]int    `json:"window_counts"`
	TargetRows   int               `json:"target_rows"`
	TargetBySrc  map[SourceKey]int `json:"target_by_source,omitempty"`
	ActualBySrc  map[SourceKey]int `json:"actual_by_source,omitempty"`
	CallerCounts map[string]int    `json:"caller_counts,omitempty"`
	Unassigned   int               `json:"unassigned"`
	RowsWritten  int               `json:"rows_written"`
}

// Shortfall returns per-source target minus actual where positive.
func (s RunStats) Shortfall() map[SourceKey]int {
	out := make(map[SourceKey]int)
	for src, want := range s.TargetBySrc {
		if got := s.ActualBySrc[src]; got < want {
			out[src] = want - got
		}
	}
	return out
}
