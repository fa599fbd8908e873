package events

var ScrapeFinishedTopic = "ScrapeFinishedEvent"

// ScrapeFinished is published once a run reached the finished state.
type ScrapeFinished struct {
	UserID     string
	PostingIDs []string
}
