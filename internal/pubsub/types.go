package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub. Downstream
// consumers (notification senders, stats aggregators, the game client feed)
// subscribe to these topics; the core only publishes.
type EventType string

const (
	EventMatchCreated        EventType = "match-created"
	EventMatchResolved       EventType = "match-resolved"
	EventGoldenGameScheduled EventType = "golden-game-scheduled"
	EventTournamentCompleted EventType = "tournament-completed"
)
