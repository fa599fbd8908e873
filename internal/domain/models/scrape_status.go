package models

import "time"

type ScrapeState string

const (
	ScrapeIdle       ScrapeState = "idle"
	ScrapeProcessing ScrapeState = "processing"
	ScrapeFinished   ScrapeState = "finished"
	ScrapeFailed     ScrapeState = "failed"
)

// RestartableStates are the states from which a new run may be started.
var RestartableStates = []ScrapeState{ScrapeIdle, ScrapeFinished, ScrapeFailed}

func (s ScrapeState) IsTerminal() bool {
	return s == ScrapeFinished || s == ScrapeFailed
}

// ScrapeStatus is the single per-user record of the current or most recent run.
type ScrapeStatus struct {
	UserID        string      `gorm:"primaryKey"`
	State         ScrapeState `gorm:"not null;default:idle;index"`
	StartedAt     *time.Time
	FinishedAt    *time.Time
	PostingCount  int
	FailedSources string
	UpdatedAt     time.Time
}

func IdleStatus(userID string) ScrapeStatus {
	return ScrapeStatus{UserID: userID, State: ScrapeIdle}
}

func (s *ScrapeStatus) FailedSourcesAsArray() []string {
	return splitList(s.FailedSources)
}
