package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the bridge
const (
	// TopicTransmission carries the progress of a renderer transmission
	// session.
	TopicTransmission = "transmission_status"

	// TopicCollection carries activity-collection progress during a
	// simulation run.
	TopicCollection = "collection_status"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "transmission_status")
	Type    string          `json:"type"`    // Event type (e.g., "session_started", "group_sent")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// TransmissionStatus is the payload of transmission progress events
type TransmissionStatus struct {
	State   string `json:"state"`             // waiting, morphology, connections, activity, complete, failed
	Session string `json:"session,omitempty"` // transmission session ID
	Group   string `json:"group,omitempty"`   // group the event refers to
	Series  int    `json:"series,omitempty"`  // series batches sent for the group
}

// CollectionStatus is the payload of collection progress events
type CollectionStatus struct {
	Group   string  `json:"group"`
	Time    float64 `json:"time"`    // simulation time of the last sample, ms
	Samples int     `json:"samples"` // samples accumulated so far
}
