package match

import "sync"

// Summary captures the parameters of a participant's most recently
// completed match, for "play again" and "double or nothing". It is
// overwritten on every completion and never queued.
type Summary struct {
	Opponent int64 // House for bot matches
	Params   Params
}

// SummaryStore keeps the last completed-match summary per participant.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[ParticipantKey]Summary
}

// NewSummaryStore creates an empty summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{summaries: make(map[ParticipantKey]Summary)}
}

// Record overwrites the summary for a participant.
func (st *SummaryStore) Record(p ParticipantKey, s Summary) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.summaries[p] = s
}

// Get returns the participant's last summary, if one exists.
func (st *SummaryStore) Get(p ParticipantKey) (Summary, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.summaries[p]
	return s, ok
}
