package models

import "time"

// Session is the durable per-conversation state. The Profile is never
// discarded once created; follow-up messages merge into it. ReportHistory is
// append-only so "what changed" follow-ups can diff prior reports.
type Session struct {
	ID            string    `json:"id"`
	Profile       Profile   `json:"profile"`
	LatestReport  *Report   `json:"latestReport,omitempty"`
	ReportHistory []*Report `json:"reportHistory,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Commit atomically applies the result of a successful pipeline run: the
// merged profile becomes current and the report is appended to history.
func (s *Session) Commit(profile Profile, report *Report, now time.Time) {
	s.Profile = profile
	if s.LatestReport != nil {
		s.ReportHistory = append(s.ReportHistory, s.LatestReport)
	}
	s.LatestReport = report
	s.UpdatedAt = now
}
