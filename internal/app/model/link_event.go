package model

import "time"

// LinkEvent is the message published to JetStream when a link is created or
// followed.
type LinkEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	LinkID    string    `json:"link_id"`
	TargetURL string    `json:"target_url"`
	Redirects int64     `json:"redirects"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	LinkEventCreated    = "created"
	LinkEventRedirected = "redirected"
)

const (
	LinkStreamName     = "LINKS"
	LinkStreamSubject  = "links.events"
	LinkStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
