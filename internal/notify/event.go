package notify

import (
	"time"

	"letterdesk/internal/model"
)

// EventKind names a lifecycle transition worth telling someone about.
type EventKind string

const (
	EventSubmittedForReview EventKind = "SubmittedForReview"
	EventAdjudicated        EventKind = "Adjudicated"
)

// Event is the data every notification is rendered from.
type Event struct {
	Kind         EventKind
	LetterNumber string
	DocumentName string
	// ActorName is the uploader for SubmittedForReview and the reviewer for Adjudicated.
	ActorName string
	Timestamp time.Time
	Status    model.LetterStatus
	Comments  string
}

// Result reports a delivery attempt. Detail is always set.
type Result struct {
	Delivered bool
	Detail    string
}

// Message is a rendered notification ready for a transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}
